package otp

import (
	"context"
	"log/slog"
	"time"

	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/notification"
)

// Issuer creates codes.
type Issuer interface {
	Issue(ctx context.Context, subject, purpose string) (string, error)
}

// Users resolves who a code is sent to.
type Users interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// Service issues codes and hands them to the notification pipeline.
type Service struct {
	codes    Issuer
	users    Users
	notifier notification.Dispatcher
	logger   *slog.Logger
}

// NewService constructs an OTP service.
func NewService(codes Issuer, users Users, notifier notification.Dispatcher, logger *slog.Logger) *Service {
	return &Service{codes: codes, users: users, notifier: notifier, logger: logger}
}

// RequestWithdrawalCode issues a withdrawal code for userID and queues it for
// delivery to the user's email. The code is keyed by email, matching how the
// withdrawal path validates it.
func (s *Service) RequestWithdrawalCode(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	code, err := s.codes.Issue(ctx, user.Email, PurposeWithdrawal)
	if err != nil {
		return err
	}
	notification.Notify(ctx, s.notifier, s.logger, notification.NewOneTimeCode(user.Email, notification.OneTimeCode{
		Name:      user.FirstName,
		Code:      code,
		Purpose:   PurposeWithdrawal,
		ValidMins: int(codeValidTo / time.Minute),
	}))
	s.logger.Info("withdrawal code issued", slog.String("user_id", user.ID))
	return nil
}

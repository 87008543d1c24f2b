package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paywave/paywave/internal/flutterwave"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/validate"
)

// Issuer creates virtual bank accounts with the payment processor.
type Issuer interface {
	CreateVirtualAccount(ctx context.Context, req flutterwave.VirtualAccountRequest) (flutterwave.VirtualAccount, error)
}

// Users resolves wallet owners.
type Users interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// Service exposes read access to wallets and provisions new ones.
type Service struct {
	repo   Repository
	users  Users
	issuer Issuer
	logger *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(repo Repository, users Users, issuer Issuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, issuer: issuer, logger: logger}
}

// ProvisionInput carries the identity number the processor needs to issue a
// permanent account.
type ProvisionInput struct {
	BVN string `json:"bvn" validate:"required,len=11,numeric"`
}

// Info returns the caller's wallet.
func (s *Service) Info(ctx context.Context, ownerID string) (Wallet, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// Provision issues a virtual account for ownerID and opens a zero-balance wallet
// linked to it. An owner may hold only one wallet.
func (s *Service) Provision(ctx context.Context, ownerID string, input ProvisionInput) (Wallet, error) {
	if err := validate.Struct(input); err != nil {
		return Wallet{}, err
	}
	if _, err := s.repo.GetByOwner(ctx, ownerID); err == nil {
		return Wallet{}, ErrWalletExists
	} else if !errors.Is(err, ErrWalletNotFound) {
		return Wallet{}, err
	}

	user, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return Wallet{}, err
	}

	account, err := s.issuer.CreateVirtualAccount(ctx, flutterwave.VirtualAccountRequest{
		Email:       user.Email,
		BVN:         input.BVN,
		PhoneNumber: user.PhoneNumber,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Narration:   user.FullName(),
	})
	if err != nil {
		return Wallet{}, err
	}

	now := time.Now().UTC()
	wallet := Wallet{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		AccountNumber: account.AccountNumber,
		BankName:      account.BankName,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}

	s.logger.Info("wallet provisioned",
		slog.String("user_id", ownerID),
		slog.String("wallet_id", wallet.ID),
		slog.String("account_number", wallet.AccountNumber))
	return wallet, nil
}

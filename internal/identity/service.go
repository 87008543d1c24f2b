package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service exposes the user operations the wallet core consumes.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewUserInput describes a user to seed. Account sign-up is owned by a separate
// service; this path exists for fixtures, dev mode and back-office seeding.
type NewUserInput struct {
	Email                   string
	FirstName               string
	LastName                string
	Username                string
	PhoneNumber             string
	PIN                     string
	SettlementAccountNumber string
	SettlementBankCode      string
	SettlementBankName      string
}

// Create stores a user, hashing the PIN when one is supplied.
func (s *Service) Create(ctx context.Context, in NewUserInput) (User, error) {
	user := User{
		ID:                      uuid.NewString(),
		Email:                   in.Email,
		FirstName:               in.FirstName,
		LastName:                in.LastName,
		Username:                in.Username,
		PhoneNumber:             in.PhoneNumber,
		SettlementAccountNumber: in.SettlementAccountNumber,
		SettlementBankCode:      in.SettlementBankCode,
		SettlementBankName:      in.SettlementBankName,
		CreatedAt:               time.Now().UTC(),
	}
	if in.PIN != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.PIN), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		user.PINHash = hash
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// FindByID returns the user with id.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail returns the user registered with email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// FindByUsername returns the user with username.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// VerifyPIN checks the transaction PIN of userID and returns the user.
func (s *Service) VerifyPIN(ctx context.Context, userID, pin string) (User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if len(user.PINHash) == 0 {
		return User{}, ErrPINNotSet
	}
	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return User{}, ErrInvalidPIN
		}
		return User{}, err
	}
	return user, nil
}

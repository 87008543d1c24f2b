package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/flutterwave"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/logging"
)

type issuerMock struct{ mock.Mock }

func (m *issuerMock) CreateVirtualAccount(ctx context.Context, req flutterwave.VirtualAccountRequest) (flutterwave.VirtualAccount, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(flutterwave.VirtualAccount), args.Error(1)
}

type staticUsers map[string]identity.User

func (u staticUsers) FindByID(_ context.Context, id string) (identity.User, error) {
	user, ok := u[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

func TestProvisionCreatesZeroBalanceWallet(t *testing.T) {
	uid := uuid.NewString()
	users := staticUsers{uid: {ID: uid, Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", PhoneNumber: "08030000000"}}
	issuer := &issuerMock{}
	issuer.On("CreateVirtualAccount", mock.Anything, mock.MatchedBy(func(r flutterwave.VirtualAccountRequest) bool {
		return r.Email == "ada@example.com" && r.BVN == "12345678901" && r.Narration == "Ada Obi"
	})).Return(flutterwave.VirtualAccount{AccountNumber: "7824822527", BankName: "WEMA BANK"}, nil).Once()

	repo := NewMemoryRepository()
	svc := NewService(repo, users, issuer, logging.Discard())

	w, err := svc.Provision(context.Background(), uid, ProvisionInput{BVN: "12345678901"})
	require.NoError(t, err)
	assert.Equal(t, "7824822527", w.AccountNumber)
	assert.Zero(t, w.Balance)

	info, err := svc.Info(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, w.ID, info.ID)

	_, err = svc.Provision(context.Background(), uid, ProvisionInput{BVN: "12345678901"})
	require.ErrorIs(t, err, ErrWalletExists)
	issuer.AssertExpectations(t)
}

func TestProvisionValidatesBVN(t *testing.T) {
	svc := NewService(NewMemoryRepository(), staticUsers{}, &issuerMock{}, logging.Discard())
	_, err := svc.Provision(context.Background(), uuid.NewString(), ProvisionInput{BVN: "123"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestInfoUnknownOwner(t *testing.T) {
	svc := NewService(NewMemoryRepository(), staticUsers{}, &issuerMock{}, logging.Discard())
	_, err := svc.Info(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrWalletNotFound)
}

package payout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/flutterwave"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/logging"
	"github.com/paywave/paywave/internal/otp"
	"github.com/paywave/paywave/internal/refcache"
	"github.com/paywave/paywave/internal/wallet"
)

type fakeRail struct {
	mu    sync.Mutex
	calls []flutterwave.TransferRequest
	err   error
	delay time.Duration
}

func (r *fakeRail) SubmitTransfer(_ context.Context, req flutterwave.TransferRequest) (flutterwave.TransferAck, error) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if r.err != nil {
		return flutterwave.TransferAck{}, r.err
	}
	return flutterwave.TransferAck{ID: int64(len(r.calls)), Reference: req.Reference, Status: "NEW"}, nil
}

func (r *fakeRail) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type harness struct {
	svc     *Service
	rail    *fakeRail
	codes   *otp.Store
	refs    *refcache.Cache
	wallets wallet.Repository
	userID  string
	code    string
}

func (h *harness) owner(t *testing.T, reference string) string {
	t.Helper()
	owner, _, err := h.refs.Retrieve(context.Background(), reference)
	if err != nil {
		t.Fatalf("retrieve %s: %v", reference, err)
	}
	return owner
}

func (h *harness) pending(t *testing.T) int64 {
	t.Helper()
	total, err := h.refs.Pending(context.Background(), h.userID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	return total
}

func newHarness(t *testing.T, balance int64) *harness {
	t.Helper()
	ctx := context.Background()
	users := identity.NewService(identity.NewMemoryRepository())
	user, err := users.Create(ctx, identity.NewUserInput{
		Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", Username: "ada", PIN: "1234",
		SettlementAccountNumber: "0690000040", SettlementBankCode: "044", SettlementBankName: "Access Bank",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	wallets := wallet.NewMemoryRepository()
	if err := wallets.Create(ctx, wallet.Wallet{ID: uuid.NewString(), OwnerID: user.ID, AccountNumber: "7824822527", Balance: balance}); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{rail: &fakeRail{}, codes: otp.NewStore(client), refs: refcache.New(client), wallets: wallets, userID: user.ID}
	h.code, err = h.codes.Issue(ctx, user.Email, otp.PurposeWithdrawal)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	h.svc = NewService(users, wallets, h.codes, h.refs, h.rail, logging.Discard())
	return h
}

func TestDisburseStoresReferenceWithoutDebiting(t *testing.T) {
	h := newHarness(t, 100_000)

	receipt, err := h.svc.Disburse(context.Background(), h.userID, DisburseInput{
		BankCode: "058", AccountNumber: "0123456789", Amount: 40_000, Narration: "rent", PIN: "1234",
	})
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if len(h.rail.calls) != 1 || h.rail.calls[0].Reference != receipt.Reference {
		t.Fatalf("rail not called with receipt reference: %+v", h.rail.calls)
	}
	if owner := h.owner(t, receipt.Reference); owner != h.userID {
		t.Fatalf("reference mapped to %q, want %q", owner, h.userID)
	}
	if got := wallet.MustBalance(h.wallets, h.userID); got != 100_000 {
		t.Fatalf("balance changed before settlement: %d", got)
	}
	if receipt.Amount != "400.00" {
		t.Fatalf("unexpected receipt amount %s", receipt.Amount)
	}
}

func TestDisburseInsufficientBalanceNeverCallsRail(t *testing.T) {
	h := newHarness(t, 500)

	_, err := h.svc.Disburse(context.Background(), h.userID, DisburseInput{
		BankCode: "058", AccountNumber: "0123456789", Amount: 1000, PIN: "1234",
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(h.rail.calls) != 0 {
		t.Fatal("rail must not be called")
	}
	if got := wallet.MustBalance(h.wallets, h.userID); got != 500 {
		t.Fatalf("balance changed: %d", got)
	}
}

func TestDisburseWrongPIN(t *testing.T) {
	h := newHarness(t, 10_000)
	_, err := h.svc.Disburse(context.Background(), h.userID, DisburseInput{
		BankCode: "058", AccountNumber: "0123456789", Amount: 1000, PIN: "9999",
	})
	if !errors.Is(err, identity.ErrInvalidPIN) {
		t.Fatalf("expected invalid pin, got %v", err)
	}
}

func TestDisburseValidation(t *testing.T) {
	h := newHarness(t, 10_000)
	_, err := h.svc.Disburse(context.Background(), h.userID, DisburseInput{AccountNumber: "12", Amount: 0, PIN: "1234"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDisburseRailFailurePersistsNothing(t *testing.T) {
	h := newHarness(t, 10_000)
	h.rail.err = apperr.Upstream("rejected", &flutterwave.APIError{StatusCode: 400})

	_, err := h.svc.Disburse(context.Background(), h.userID, DisburseInput{
		BankCode: "058", AccountNumber: "0123456789", Amount: 1000, PIN: "1234",
	})
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if owner := h.owner(t, h.rail.calls[0].Reference); owner != "" {
		t.Fatalf("reference kept after rail failure: %q", owner)
	}
	if got := h.pending(t); got != 0 {
		t.Fatalf("hold kept after rail failure: %d", got)
	}
}

func TestDisburseTimeoutKeepsReference(t *testing.T) {
	h := newHarness(t, 10_000)
	h.rail.err = apperr.Wrap(flutterwave.ErrOutcomeUnknown, context.DeadlineExceeded)

	receipt, err := h.svc.Disburse(context.Background(), h.userID, DisburseInput{
		BankCode: "058", AccountNumber: "0123456789", Amount: 1000, PIN: "1234",
	})
	if !errors.Is(err, ErrOutcomeUnknown) {
		t.Fatalf("expected outcome unknown, got %v", err)
	}
	if len(h.rail.calls) != 1 {
		t.Fatalf("rail must not be retried, got %d calls", len(h.rail.calls))
	}
	if h.owner(t, receipt.Reference) != h.userID {
		t.Fatal("reference must be kept so a late callback can settle")
	}
	if got := h.pending(t); got != 1000 {
		t.Fatalf("hold = %d, want 1000 until the callback arrives", got)
	}
}

func TestSequentialDisbursementsCannotExceedBalance(t *testing.T) {
	h := newHarness(t, 100_000)
	in := DisburseInput{BankCode: "058", AccountNumber: "0123456789", Amount: 100_000, PIN: "1234"}

	if _, err := h.svc.Disburse(context.Background(), h.userID, in); err != nil {
		t.Fatalf("first disburse: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := h.svc.Disburse(context.Background(), h.userID, in)
		if !errors.Is(err, wallet.ErrInsufficientFunds) {
			t.Fatalf("disburse %d while first is pending: got %v", i+2, err)
		}
	}
	if got := h.rail.count(); got != 1 {
		t.Fatalf("rail called %d times, want 1", got)
	}
}

func TestConcurrentDisbursementsCannotExceedBalance(t *testing.T) {
	h := newHarness(t, 100_000)
	h.rail.delay = 20 * time.Millisecond
	in := DisburseInput{BankCode: "058", AccountNumber: "0123456789", Amount: 60_000, PIN: "1234"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Disburse(context.Background(), h.userID, in); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 || h.rail.count() != 1 {
		t.Fatalf("accepted %d, rail calls %d; want 1 and 1", accepted, h.rail.count())
	}
}

func TestWithdrawConsumesCodeOnlyAfterAcceptance(t *testing.T) {
	h := newHarness(t, 10_000)
	h.rail.err = apperr.Upstream("rejected", errors.New("bank offline"))

	_, err := h.svc.Withdraw(context.Background(), h.userID, WithdrawInput{Amount: 1000, PIN: "1234", OTP: h.code})
	if err == nil {
		t.Fatal("expected rail error")
	}
	if ok, _ := h.codes.Validate(context.Background(), "ada@example.com", h.code, otp.PurposeWithdrawal); !ok {
		t.Fatal("code unusable although the rail rejected the transfer")
	}

	h.rail.err = nil
	receipt, err := h.svc.Withdraw(context.Background(), h.userID, WithdrawInput{Amount: 1000, PIN: "1234", OTP: h.code})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if ok, _ := h.codes.Validate(context.Background(), "ada@example.com", h.code, otp.PurposeWithdrawal); ok {
		t.Fatal("code should be consumed after acceptance")
	}
	last := h.rail.calls[len(h.rail.calls)-1]
	if last.AccountNumber != "0690000040" || last.BankCode != "044" {
		t.Fatalf("withdrawal sent to wrong account: %+v", last)
	}
	if h.owner(t, receipt.Reference) != h.userID {
		t.Fatal("reference not stored")
	}

	_, err = h.svc.Withdraw(context.Background(), h.userID, WithdrawInput{Amount: 1000, PIN: "1234", OTP: h.code})
	if !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected consumed code to be rejected, got %v", err)
	}
}

func TestConcurrentWithdrawalsShareOneCodeOnce(t *testing.T) {
	h := newHarness(t, 10_000)
	h.rail.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Withdraw(context.Background(), h.userID, WithdrawInput{Amount: 1000, PIN: "1234", OTP: h.code})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case !errors.Is(err, ErrInvalidOTP):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || h.rail.count() != 1 {
		t.Fatalf("accepted %d, rail calls %d; want 1 and 1", accepted, h.rail.count())
	}
}

package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists wallets. Increment and Decrement are the only ways a
// balance changes; each is a single atomic statement at the storage layer.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	GetByOwner(ctx context.Context, ownerID string) (Wallet, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (Wallet, error)
	Increment(ctx context.Context, ownerID string, amount int64) (int64, error)
	Decrement(ctx context.Context, ownerID string, amount int64) (int64, error)
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so balance statements
// can run standalone or inside a settlement transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, owner_id, account_number, bank_name, balance, status, created_at, updated_at`

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(wallet.OwnerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		walletID, ownerID, wallet.AccountNumber, wallet.BankName, wallet.Balance, wallet.Status,
		wallet.CreatedAt.UTC(), wallet.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrWalletExists
	}
	return err
}

// GetByOwner fetches the wallet owned by ownerID.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	id, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	return r.getOne(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, id)
}

// GetByAccountNumber fetches a wallet by its virtual account number.
func (r *PostgresRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (Wallet, error) {
	return r.getOne(ctx, `SELECT `+walletColumns+` FROM wallets WHERE account_number = $1`, accountNumber)
}

// Increment adds amount to the owner's balance.
func (r *PostgresRepository) Increment(ctx context.Context, ownerID string, amount int64) (int64, error) {
	return IncrementWith(ctx, r.db, ownerID, amount)
}

// Decrement subtracts amount from the owner's balance, refusing to go negative.
func (r *PostgresRepository) Decrement(ctx context.Context, ownerID string, amount int64) (int64, error) {
	return DecrementWith(ctx, r.db, ownerID, amount)
}

// IncrementWith runs the atomic credit statement on q.
func IncrementWith(ctx context.Context, q Querier, ownerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	id, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, ErrWalletNotFound
	}
	var balance int64
	err = q.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = now()
        WHERE owner_id = $2 RETURNING balance`, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return balance, err
}

// DecrementWith runs the atomic guarded debit statement on q. A zero-row
// update is disambiguated into not-found versus insufficient funds.
func DecrementWith(ctx context.Context, q Querier, ownerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	id, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, ErrWalletNotFound
	}
	var balance int64
	err = q.QueryRow(ctx, `UPDATE wallets SET balance = balance - $1, updated_at = now()
        WHERE owner_id = $2 AND balance >= $1 RETURNING balance`, amount, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE owner_id = $1)`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrWalletNotFound
	}
	return 0, ErrInsufficientFunds
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (Wallet, error) {
	var (
		w       Wallet
		idVal   uuid.UUID
		ownerID uuid.UUID
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&idVal, &ownerID, &w.AccountNumber, &w.BankName, &w.Balance,
		&w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = idVal.String()
	w.OwnerID = ownerID.String()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists ledger rows. It performs no authorization; callers check
// wallet ownership before disclosing a row.
type Store interface {
	Record(ctx context.Context, tx Transaction) (Transaction, error)
	History(ctx context.Context, walletID string, page, limit int) ([]Transaction, int64, error)
	Detail(ctx context.Context, id string) (Transaction, error)
}

// Execer is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps ledger rows in the transactions table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const transactionColumns = `id, wallet_id, origin, counterparty_name, counterparty_bank, amount_credited,
        amount_debited, reference, processor_ref, type, status, description, created_at`

// Record validates and inserts tx.
func (s *PostgresStore) Record(ctx context.Context, tx Transaction) (Transaction, error) {
	return RecordWith(ctx, s.db, tx)
}

// RecordWith inserts tx using q, so settlement can write rows inside its own
// database transaction. A missing ID or CreatedAt is filled in.
func RecordWith(ctx context.Context, q Execer, tx Transaction) (Transaction, error) {
	tx, err := prepare(tx)
	if err != nil {
		return Transaction{}, err
	}
	_, err = q.Exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.WalletID, tx.From, tx.CounterpartyName, tx.CounterpartyBank, tx.AmountCredited,
		tx.AmountDebited, tx.Reference, tx.ProcessorRef, string(tx.Type), string(tx.Status), tx.Description, tx.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Transaction{}, ErrDuplicateReference
	}
	if err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// History returns one page of the wallet's rows, newest first, and the total.
func (s *PostgresStore) History(ctx context.Context, walletID string, page, limit int) ([]Transaction, int64, error) {
	page, limit = NormalizePage(page, limit)
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE wallet_id = $1`, walletID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		walletID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Transaction, 0, limit)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, tx)
	}
	return items, total, rows.Err()
}

// Detail loads one row by id.
func (s *PostgresStore) Detail(ctx context.Context, id string) (Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	tx, err := scanTransaction(s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, err
}

func prepare(tx Transaction) (Transaction, error) {
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx               Transaction
		id, walletID     uuid.UUID
		txType, txStatus string
	)
	err := row.Scan(&id, &walletID, &tx.From, &tx.CounterpartyName, &tx.CounterpartyBank, &tx.AmountCredited,
		&tx.AmountDebited, &tx.Reference, &tx.ProcessorRef, &txType, &txStatus, &tx.Description, &tx.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.WalletID = walletID.String()
	tx.Type = Type(txType)
	tx.Status = Status(txStatus)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}

package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, username, phone_number, pin_hash,
        settlement_account_number, settlement_bank_code, settlement_bank_name, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		userID, strings.ToLower(user.Email), user.FirstName, user.LastName, user.Username, user.PhoneNumber,
		user.PINHash, user.SettlementAccountNumber, user.SettlementBankCode, user.SettlementBankName, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username))
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (User, error) {
	var (
		id   uuid.UUID
		user User
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &user.Email, &user.FirstName, &user.LastName, &user.Username,
		&user.PhoneNumber, &user.PINHash, &user.SettlementAccountNumber, &user.SettlementBankCode,
		&user.SettlementBankName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

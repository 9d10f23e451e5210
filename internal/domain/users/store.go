package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	GetByID(context.Context, int64) (*User, error)
	GetByEmail(context.Context, string) (*User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	DeleteRefreshToken(ctx context.Context, userID int64) error
	GetRefreshToken(ctx context.Context, userID int64) (string, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const userColumns = `
        u.id, u.first_name, u.last_name, u.email, u.company_name,
        u.account_type, u.role_id, r.name, u.is_active,
        u.created_at, u.updated_at
`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.CompanyName,
		&user.AccountType,
		&user.RoleID,
		&user.RoleCode,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT ` + userColumns + `
        FROM users u
        LEFT JOIN roles r ON r.id = u.role_id
        WHERE u.id = $1 AND u.is_active = true
    `
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT ` + userColumns + `
        FROM users u
        LEFT JOIN roles r ON r.id = u.role_id
        WHERE u.email = $1 AND u.is_active = true
    `
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// VerifyCredentials delegates the password comparison to pgcrypto so hashes
// never cross into application code; this service does not own hashing.
func (r *Repository) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT ` + userColumns + `
        FROM users u
        LEFT JOIN roles r ON r.id = u.role_id
        WHERE u.email = $1
          AND u.is_active = true
          AND u.password_hash = crypt($2, u.password_hash)
    `
	user, err := scanUser(r.db.QueryRow(ctx, query, email, password))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	return user, nil
}

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, refreshToken, userID)
	return err
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var token string
	query := `SELECT COALESCE(refresh_token, '') FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return token, nil
}

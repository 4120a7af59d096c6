package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

const userColumns = `id, email, username, password, role, is_verified, verification_token, google_id, created_at`

func scanUser(row interface{ Scan(...interface{}) error }, u *domain.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.IsVerified, &u.VerificationToken, &u.GoogleID, &u.CreatedAt)
}

// CreateUser inserts u. Any unique violation (email, username, google id) becomes ErrUserExists.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	query := `
		INSERT INTO users (email, username, password, role, is_verified, verification_token, google_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns + `;`
	var created domain.User
	err := scanUser(s.db.QueryRowContext(ctx, query,
		u.Email, u.Username, u.PasswordHash, role, u.IsVerified, u.VerificationToken, u.GoogleID,
	), &created)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) getUserWhere(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	var u domain.User
	err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1;`, arg), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: failed to load user by %s: %w", where, err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUserWhere(ctx, "id", id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUserWhere(ctx, "email", email)
}

func (s *PostgresStore) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return s.getUserWhere(ctx, "google_id", googleID)
}

func (s *PostgresStore) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return s.getUserWhere(ctx, "verification_token", token)
}

func (s *PostgresStore) execUserUpdate(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrUserExists
		}
		return fmt.Errorf("store: %s failed to execute update: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s failed to get rows affected: %w", op, err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MarkUserVerified sets is_verified and consumes the verification token.
func (s *PostgresStore) MarkUserVerified(ctx context.Context, id int64) error {
	return s.execUserUpdate(ctx, "MarkUserVerified",
		`UPDATE users SET is_verified = TRUE, verification_token = NULL WHERE id = $1;`, id)
}

// SetVerificationToken stores a fresh single-use token for verify or reset links.
func (s *PostgresStore) SetVerificationToken(ctx context.Context, id int64, token string) error {
	return s.execUserUpdate(ctx, "SetVerificationToken",
		`UPDATE users SET verification_token = $1 WHERE id = $2;`, token, id)
}

// SetPassword stores a new hash and consumes the token that authorised it.
func (s *PostgresStore) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.execUserUpdate(ctx, "SetPassword",
		`UPDATE users SET password = $1, verification_token = NULL WHERE id = $2;`, passwordHash, id)
}

// LinkGoogleAccount attaches a Google identity to an existing account and marks it verified.
func (s *PostgresStore) LinkGoogleAccount(ctx context.Context, id int64, googleID string) error {
	return s.execUserUpdate(ctx, "LinkGoogleAccount",
		`UPDATE users SET google_id = $1, is_verified = TRUE WHERE id = $2;`, googleID, id)
}

func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users;`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListUsers failed to count users: %w", err)
	}
	if totalCount == 0 {
		return []domain.User{}, 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2;`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListUsers failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("store: ListUsers failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListUsers iteration error: %w", err)
	}
	return users, totalCount, nil
}

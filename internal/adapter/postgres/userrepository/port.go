package userrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
)

var _ secondary.UserPort = &userRepo{}

type userRepo struct {
	db     *sqlx.DB
	logger primary.Logger
}

func New(db *sqlx.DB, logger primary.Logger) secondary.UserPort {
	return &userRepo{
		db:     db,
		logger: logger,
	}
}

func (u *userRepo) Create(ctx context.Context, user *domain.Users) error {
	query := `
		INSERT INTO users (id, user_name, password_hash, email, auth_provider, google_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := u.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.UserName,
		user.PasswordHash,
		user.Email,
		user.AuthProvider,
		user.GoogleID,
	)
	if err != nil {
		u.logger.Error("Failed to create user", "userName", user.UserName, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (u *userRepo) GetByUserName(ctx context.Context, userName string) (*domain.Users, error) {
	query := `
		SELECT id, user_name, password_hash, email, auth_provider, google_id
		FROM users
		WHERE user_name = $1
		LIMIT 1
	`
	return u.getOne(ctx, query, userName)
}

func (u *userRepo) GetByGoogleID(ctx context.Context, googleID string) (*domain.Users, error) {
	query := `
		SELECT id, user_name, password_hash, email, auth_provider, google_id
		FROM users
		WHERE google_id = $1
		LIMIT 1
	`
	return u.getOne(ctx, query, googleID)
}

func (u *userRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.Users, error) {
	var user domain.Users
	var passwordHash, email, googleID sql.NullString

	err := u.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.UserName,
		&passwordHash,
		&email,
		&user.AuthProvider,
		&googleID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		u.logger.Error("Failed to get user", "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if email.Valid {
		user.Email = &email.String
	}
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}

	return &user, nil
}

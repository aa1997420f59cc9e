package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// TokenRepo persists remember-me tokens.  Each user holds at most one; it
// lives in the users.remember_token and users.token_expires columns and
// only its SHA-256 hash is stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRemember sets the token hash and expiry for a user, replacing any
// previous token.
func (r *TokenRepo) StoreRemember(ctx context.Context, userID int64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET remember_token=?, token_expires=? WHERE id=?",
		tokenHash, exp, userID)
	return err
}

// UserByRemember returns the user owning a non-expired token.
func (r *TokenRepo) UserByRemember(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE remember_token=? AND token_expires > ? LIMIT 1",
		tokenHash, now))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// ClearRemember revokes the user's token.
func (r *TokenRepo) ClearRemember(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET remember_token=NULL, token_expires=NULL WHERE id=?", userID)
	return err
}

// PurgeExpired clears every token whose expiry has passed and reports how
// many rows changed.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET remember_token=NULL, token_expires=NULL WHERE remember_token IS NOT NULL AND token_expires <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

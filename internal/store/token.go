package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepository handles persistence for the active session token set.
// A token row existing for a user means that session has not been
// revoked; logout removes exactly one row, logout-all removes them all.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Add(ctx context.Context, userID int, token string) error {
	const query = `
		INSERT INTO session_tokens (user_id, token, created_at)
		VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, userID, token, time.Now())
	return err
}

func (r *TokenRepository) Exists(ctx context.Context, userID int, token string) (bool, error) {
	const query = `
		SELECT 1 FROM session_tokens
		WHERE user_id = $1 AND token = $2`
	var one int
	err := r.db.QueryRowContext(ctx, query, userID, token).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *TokenRepository) Remove(ctx context.Context, userID int, token string) error {
	const query = `
		DELETE FROM session_tokens
		WHERE user_id = $1 AND token = $2`
	result, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TokenRepository) RemoveAll(ctx context.Context, userID int) error {
	const query = `DELETE FROM session_tokens WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

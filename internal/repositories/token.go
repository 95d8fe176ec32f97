package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vibemix/internal/shared"
	"golang.org/x/oauth2"
)

// TokenRepository persists OAuth tokens, one per service.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// LoadToken returns the stored token for service, or [shared.ErrNotAuthenticated] when none is stored.
func (r *TokenRepository) LoadToken(ctx context.Context, service string) (*oauth2.Token, error) {
	query := `SELECT access_token, refresh_token, token_type, expiry FROM oauth_tokens WHERE service = ?`

	var (
		tok    oauth2.Token
		expiry sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, service).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s token stored", shared.ErrNotAuthenticated, service)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load token: %v", shared.ErrPersistence, err)
	}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	return &tok, nil
}

// SaveToken inserts or replaces the token for service.
func (r *TokenRepository) SaveToken(ctx context.Context, service string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidArgument)
	}

	var expiry sql.NullTime
	if !token.Expiry.IsZero() {
		expiry = sql.NullTime{Time: token.Expiry.UTC(), Valid: true}
	}
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	query := `
		INSERT INTO oauth_tokens (service, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, service, token.AccessToken, token.RefreshToken, tokenType, expiry, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to save token: %v", shared.ErrPersistence, err)
	}
	return nil
}

// DeleteToken removes the token for service. Deleting a missing token is not an error.
func (r *TokenRepository) DeleteToken(ctx context.Context, service string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM oauth_tokens WHERE service = ?", service); err != nil {
		return fmt.Errorf("%w: failed to delete token: %v", shared.ErrPersistence, err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PutCallbackToken mints an opaque token for an inline button and
// records the action and payload it stands for. Buttons carry only the
// token, so payloads never have to survive round-tripping through
// Telegram's callback-data field.
func (s *Store) PutCallbackToken(ctx context.Context, action, payload string) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO callback_tokens (token, action, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		token, action, payload, s.nowString(),
	)
	if err != nil {
		return "", fmt.Errorf("put callback token: %w", err)
	}
	return token, nil
}

// GetCallbackToken resolves a pressed button's token, or ErrNotFound
// when the token was never minted (or the database has been reset).
func (s *Store) GetCallbackToken(ctx context.Context, token string) (CallbackToken, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		ct        CallbackToken
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, action, payload, created_at
		FROM callback_tokens WHERE token = ?`, token).
		Scan(&ct.Token, &ct.Action, &ct.Payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CallbackToken{}, ErrNotFound
	}
	if err != nil {
		return CallbackToken{}, fmt.Errorf("get callback token: %w", err)
	}
	ct.CreatedAt = parseTime(createdAt)
	return ct, nil
}

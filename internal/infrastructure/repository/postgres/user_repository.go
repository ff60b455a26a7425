package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureUser returns the user bound to sessionID, creating it on first sight.
func (r *UserRepository) EnsureUser(ctx context.Context, sessionID string) (*domain.User, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ensure user", errors.New("session id is empty"))
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, session_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO NOTHING
`, uuid.NewString(), sessionID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensure user insert: %w", err)
	}
	return r.GetBySession(ctx, sessionID)
}

func (r *UserRepository) GetBySession(ctx context.Context, sessionID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, created_at
FROM users
WHERE session_id = $1
`, sessionID)

	var user domain.User
	if err := row.Scan(&user.ID, &user.SessionID, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get user", fmt.Errorf("session %s", sessionID))
		}
		return nil, fmt.Errorf("get user by session: %w", err)
	}
	return &user, nil
}

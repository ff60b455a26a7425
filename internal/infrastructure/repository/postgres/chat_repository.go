package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	return insertChatMessage(ctx, r.db, msg)
}

func insertChatMessage(ctx context.Context, exec execer, msg *domain.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	citationsJSON, err := json.Marshal(nonNil(msg.Citations))
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}
	_, err = exec.ExecContext(ctx, `
INSERT INTO chat_messages (id, user_id, message, response, legal_category, citations, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, msg.ID, msg.UserID, msg.Message, msg.Response, nullableString(msg.LegalCategory), citationsJSON, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// ListByUser returns every exchange in chronological order.
func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, message, response, COALESCE(legal_category, ''), citations, created_at
FROM chat_messages
WHERE user_id = $1
ORDER BY created_at ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return collectChatMessages(rows)
}

// ListRecent returns the latest limit exchanges in chronological order.
func (r *ChatRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, message, response, COALESCE(legal_category, ''), citations, created_at
FROM chat_messages
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent chat messages: %w", err)
	}
	out, err := collectChatMessages(rows)
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func collectChatMessages(rows *sql.Rows) ([]domain.ChatMessage, error) {
	defer rows.Close()

	out := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var (
			msg          domain.ChatMessage
			citationsRaw []byte
		)
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Message, &msg.Response, &msg.LegalCategory, &citationsRaw, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if err := json.Unmarshal(citationsRaw, &msg.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

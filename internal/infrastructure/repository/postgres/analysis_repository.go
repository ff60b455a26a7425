package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, user_id, filename, document_type, COALESCE(storage_path, ''), document_text, analysis_summary,
	claimant_arguments, defence_points, claim_value_estimate, track_type, legal_categories, urgency_level, outcome,
	created_at, updated_at`

// Create inserts the analysis and, when given, the chat message carrying its
// report in one transaction.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.DocumentAnalysis, report *domain.ChatMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin analysis tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertAnalysis(ctx, tx, a); err != nil {
		return err
	}
	if report != nil {
		if err := insertChatMessage(ctx, tx, report); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis tx: %w", err)
	}
	return nil
}

func insertAnalysis(ctx context.Context, exec execer, a *domain.DocumentAnalysis) error {
	argumentsJSON, err := json.Marshal(nonNil(a.ClaimantArguments))
	if err != nil {
		return fmt.Errorf("marshal claimant arguments: %w", err)
	}
	defenceJSON, err := json.Marshal(nonNil(a.DefencePoints))
	if err != nil {
		return fmt.Errorf("marshal defence points: %w", err)
	}
	categoriesJSON, err := json.Marshal(nonNil(a.LegalCategories))
	if err != nil {
		return fmt.Errorf("marshal legal categories: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
INSERT INTO document_analyses (
	id, user_id, filename, document_type, storage_path, document_text, analysis_summary,
	claimant_arguments, defence_points, claim_value_estimate, track_type, legal_categories, urgency_level, outcome,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		a.ID, a.UserID, a.Filename, a.DocumentType, nullableString(a.StoragePath), a.DocumentText, a.Summary,
		argumentsJSON, defenceJSON, a.ClaimValue, string(a.Track), categoriesJSON, string(a.Urgency), string(a.Outcome),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, userID, id string) (*domain.DocumentAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+analysisColumns+`
FROM document_analyses
WHERE user_id = $1 AND id = $2
`, userID, id)

	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document analysis", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get document analysis: %w", err)
	}
	return &a, nil
}

// ListByUser returns the user's analyses, newest first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string) ([]domain.DocumentAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+analysisColumns+`
FROM document_analyses
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list document analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentAnalysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (domain.DocumentAnalysis, error) {
	var (
		a                                    domain.DocumentAnalysis
		argumentsRaw, defenceRaw, categories []byte
		track, urgency, outcome              string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.Filename, &a.DocumentType, &a.StoragePath, &a.DocumentText, &a.Summary,
		&argumentsRaw, &defenceRaw, &a.ClaimValue, &track, &categories, &urgency, &outcome,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentAnalysis{}, err
	}
	if err := json.Unmarshal(argumentsRaw, &a.ClaimantArguments); err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("unmarshal claimant arguments: %w", err)
	}
	if err := json.Unmarshal(defenceRaw, &a.DefencePoints); err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("unmarshal defence points: %w", err)
	}
	if err := json.Unmarshal(categories, &a.LegalCategories); err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("unmarshal legal categories: %w", err)
	}
	a.Track = domain.Track(track)
	a.Urgency = domain.Urgency(urgency)
	a.Outcome = domain.AnalysisOutcome(outcome)
	return a, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

type ReferralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Create stores a referral. A second referral for the same analysis is ignored.
func (r *ReferralRepository) Create(ctx context.Context, ref *domain.SolicitorReferral) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO solicitor_referrals (id, user_id, analysis_id, legal_category, track_type, reason, solicitor_type, urgency, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (analysis_id) DO NOTHING
`, ref.ID, ref.UserID, nullableString(ref.AnalysisID), ref.LegalCategory, string(ref.Track), ref.Reason,
		ref.SolicitorType, string(ref.Urgency), string(ref.Status), ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert solicitor referral: %w", err)
	}
	return nil
}

func (r *ReferralRepository) ExistsForAnalysis(ctx context.Context, analysisID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM solicitor_referrals WHERE analysis_id = $1)
`, analysisID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check solicitor referral: %w", err)
	}
	return exists, nil
}

// ListByUser returns the user's referrals, newest first.
func (r *ReferralRepository) ListByUser(ctx context.Context, userID string) ([]domain.SolicitorReferral, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, COALESCE(analysis_id, ''), legal_category, track_type, reason, solicitor_type, urgency, status, created_at
FROM solicitor_referrals
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list solicitor referrals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SolicitorReferral, 0)
	for rows.Next() {
		var (
			ref                   domain.SolicitorReferral
			track, urgency, state string
		)
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.AnalysisID, &ref.LegalCategory, &track, &ref.Reason,
			&ref.SolicitorType, &urgency, &state, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan solicitor referral: %w", err)
		}
		ref.Track = domain.Track(track)
		ref.Urgency = domain.Urgency(urgency)
		ref.Status = domain.ReferralStatus(state)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solicitor referrals: %w", err)
	}
	return out, nil
}

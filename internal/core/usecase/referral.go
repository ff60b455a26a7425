package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
)

// ReferralUseCase turns completed analyses into pending solicitor referrals.
type ReferralUseCase struct {
	users     ports.UserStore
	referrals ports.ReferralRepository
	logger    *slog.Logger
	now       func() time.Time
}

func NewReferralUseCase(users ports.UserStore, referrals ports.ReferralRepository, logger *slog.Logger) *ReferralUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferralUseCase{
		users:     users,
		referrals: referrals,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleAnalysisCompleted stores at most one referral per analysis.
// Redelivered events are ignored.
func (uc *ReferralUseCase) HandleAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error {
	if strings.TrimSpace(event.AnalysisID) == "" || strings.TrimSpace(event.UserID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "handle analysis completed", errors.New("event is missing analysis or user id"))
	}

	reason := analysisReferralReason(event)
	if reason == "" {
		uc.logger.Debug("referral.skipped", "analysis_id", event.AnalysisID, "track", event.Track)
		return nil
	}

	exists, err := uc.referrals.ExistsForAnalysis(ctx, event.AnalysisID)
	if err != nil {
		return fmt.Errorf("check existing referral: %w", err)
	}
	if exists {
		uc.logger.Info("referral.duplicate", "analysis_id", event.AnalysisID)
		return nil
	}

	category := primaryCategory(event.LegalCategories)
	urgency := event.Urgency
	if !urgency.Valid() {
		urgency = domain.UrgencyMedium
	}
	referral := &domain.SolicitorReferral{
		ID:            uuid.NewString(),
		UserID:        event.UserID,
		AnalysisID:    event.AnalysisID,
		LegalCategory: category,
		Track:         event.Track,
		Reason:        reason,
		SolicitorType: solicitorTypeFor(category),
		Urgency:       urgency,
		Status:        domain.ReferralPending,
		CreatedAt:     uc.now(),
	}
	if err := uc.referrals.Create(ctx, referral); err != nil {
		return fmt.Errorf("create referral: %w", err)
	}

	uc.logger.Info("referral.created",
		"referral_id", referral.ID,
		"analysis_id", event.AnalysisID,
		"user_id", event.UserID,
		"urgency", referral.Urgency,
	)
	return nil
}

func (uc *ReferralUseCase) ListReferrals(ctx context.Context, sessionID string) ([]domain.SolicitorReferral, error) {
	user, err := lookupSessionUser(ctx, uc.users, sessionID)
	if err != nil || user == nil {
		return []domain.SolicitorReferral{}, err
	}
	items, err := uc.referrals.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	if items == nil {
		items = []domain.SolicitorReferral{}
	}
	return items, nil
}

// primaryCategory prefers a complex category, since it drives the solicitor type.
func primaryCategory(categories []string) string {
	for _, c := range categories {
		if IsComplexCategory(c) {
			return normalizeCategory(c)
		}
	}
	if len(categories) > 0 {
		return normalizeCategory(categories[0])
	}
	return defaultCategory
}

package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
)

// HistoryUseCase serves the stored analyses of one session. Unknown sessions
// see an empty history rather than an error.
type HistoryUseCase struct {
	users    ports.UserStore
	analyses ports.AnalysisRepository
	exporter ports.HistoryExporter
}

func NewHistoryUseCase(users ports.UserStore, analyses ports.AnalysisRepository, exporter ports.HistoryExporter) *HistoryUseCase {
	return &HistoryUseCase{users: users, analyses: analyses, exporter: exporter}
}

func (uc *HistoryUseCase) ListAnalyses(ctx context.Context, sessionID string) ([]domain.DocumentAnalysis, error) {
	user, err := lookupSessionUser(ctx, uc.users, sessionID)
	if err != nil || user == nil {
		return []domain.DocumentAnalysis{}, err
	}
	items, err := uc.analyses.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list document analyses: %w", err)
	}
	if items == nil {
		items = []domain.DocumentAnalysis{}
	}
	return items, nil
}

func (uc *HistoryUseCase) GetAnalysis(ctx context.Context, sessionID, id string) (*domain.DocumentAnalysis, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document analysis", fmt.Errorf("empty id"))
	}
	user, err := lookupSessionUser(ctx, uc.users, sessionID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get document analysis", fmt.Errorf("analysis %s", id))
	}
	item, err := uc.analyses.GetByID(ctx, user.ID, id)
	if err != nil {
		return nil, fmt.Errorf("get document analysis: %w", err)
	}
	return item, nil
}

func (uc *HistoryUseCase) ExportAnalyses(ctx context.Context, sessionID string) ([]byte, error) {
	items, err := uc.ListAnalyses(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := uc.exporter.ExportAnalyses(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("export document analyses: %w", err)
	}
	return raw, nil
}

// lookupSessionUser returns nil without error when the session has no user yet.
func lookupSessionUser(ctx context.Context, users ports.UserStore, sessionID string) (*domain.User, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}
	user, err := users.GetBySession(ctx, sessionID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session user: %w", err)
	}
	return user, nil
}

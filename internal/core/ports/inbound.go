package ports

import (
	"context"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

// DocumentAnalyzer is the inbound contract for document upload and analysis.
type DocumentAnalyzer interface {
	Upload(ctx context.Context, sessionID, filename string, content []byte) (*domain.UploadResult, error)
}

// DocumentHistory is the read model for stored analyses.
type DocumentHistory interface {
	ListAnalyses(ctx context.Context, sessionID string) ([]domain.DocumentAnalysis, error)
	GetAnalysis(ctx context.Context, sessionID, id string) (*domain.DocumentAnalysis, error)
	ExportAnalyses(ctx context.Context, sessionID string) ([]byte, error)
}

// LegalChat is the inbound contract for chat turns and history.
type LegalChat interface {
	Ask(ctx context.Context, sessionID, message string) (*domain.ChatReply, error)
	History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
}

// ReferralService handles completed analyses and lists stored referrals.
type ReferralService interface {
	HandleAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error
	ListReferrals(ctx context.Context, sessionID string) ([]domain.SolicitorReferral, error)
}

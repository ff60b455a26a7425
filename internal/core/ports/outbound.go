package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

// TextExtractor converts uploaded bytes into plain text, dispatching on the filename suffix.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, filename string) (string, error)
}

// Completer sends one system+user exchange to an LLM backend and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// AnalysisClient asks the LLM for a JSON analysis of a prompt.
type AnalysisClient interface {
	Analyze(ctx context.Context, prompt string) (map[string]any, error)
}

// UserStore creates and resolves session users.
type UserStore interface {
	EnsureUser(ctx context.Context, sessionID string) (*domain.User, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.User, error)
}

// AnalysisRepository persists document analyses. Create stores the analysis
// and the chat record of its report together or not at all; report may be nil.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *domain.DocumentAnalysis, report *domain.ChatMessage) error
	GetByID(ctx context.Context, userID, id string) (*domain.DocumentAnalysis, error)
	ListByUser(ctx context.Context, userID string) ([]domain.DocumentAnalysis, error)
}

// ChatRepository persists chat exchanges.
type ChatRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	ListByUser(ctx context.Context, userID string) ([]domain.ChatMessage, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error)
}

// ReferralRepository persists solicitor referrals.
type ReferralRepository interface {
	Create(ctx context.Context, referral *domain.SolicitorReferral) error
	ExistsForAnalysis(ctx context.Context, analysisID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SolicitorReferral, error)
}

// ObjectStorage stores original uploads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// EventPublisher announces completed analyses.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error
}

// EventSubscriber consumes completed-analysis events until ctx is done.
type EventSubscriber interface {
	SubscribeAnalysisCompleted(ctx context.Context, handler func(context.Context, domain.AnalysisCompleted) error) error
}

// KnowledgeBase retrieves canned case law and procedures.
type KnowledgeBase interface {
	Lookup(query string, category string, track domain.Track) domain.KnowledgeResult
}

// HistoryExporter renders a document history as a spreadsheet.
type HistoryExporter interface {
	ExportAnalyses(ctx context.Context, analyses []domain.DocumentAnalysis) ([]byte, error)
}

// AnalysisObserver records the outcome of each upload. Outcome is one of
// analyzed, fallback, rejected or error.
type AnalysisObserver interface {
	ObserveAnalysis(outcome string, duration time.Duration)
}

// ChatObserver records each chat reply.
type ChatObserver interface {
	ObserveChatReply(referred bool, aiGuidance bool)
}

// LegalAdvisor asks the LLM for structured guidance on a chat query.
type LegalAdvisor interface {
	Guidance(ctx context.Context, query string, history []domain.ChatTurn) (domain.LegalGuidance, error)
}

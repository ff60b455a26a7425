package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/defence-assistant/internal/core/analysis"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
)

const documentAnalysisCategory = "document_analysis"

// Causes wrapped into domain.ErrInvalidInput by Upload.
var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrEmptyFile      = errors.New("uploaded file is empty")
	ErrFileTooLarge   = fmt.Errorf("file exceeds %d bytes", domain.MaxUploadBytes)
)

type AnalyzeDocumentUseCase struct {
	users     ports.UserStore
	analyses  ports.AnalysisRepository
	storage   ports.ObjectStorage
	publisher ports.EventPublisher
	extractor ports.TextExtractor
	pipeline  *analysis.Pipeline
	observer  ports.AnalysisObserver
	logger    *slog.Logger
	now       func() time.Time
}

type AnalyzeOption func(*AnalyzeDocumentUseCase)

func WithAnalysisObserver(observer ports.AnalysisObserver) AnalyzeOption {
	return func(uc *AnalyzeDocumentUseCase) {
		uc.observer = observer
	}
}

func WithAnalyzeLogger(logger *slog.Logger) AnalyzeOption {
	return func(uc *AnalyzeDocumentUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func NewAnalyzeDocumentUseCase(
	users ports.UserStore,
	analyses ports.AnalysisRepository,
	storage ports.ObjectStorage,
	publisher ports.EventPublisher,
	extractor ports.TextExtractor,
	pipeline *analysis.Pipeline,
	opts ...AnalyzeOption,
) *AnalyzeDocumentUseCase {
	uc := &AnalyzeDocumentUseCase{
		users:     users,
		analyses:  analyses,
		storage:   storage,
		publisher: publisher,
		extractor: extractor,
		pipeline:  pipeline,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Upload validates, extracts and analyses one document, then stores the
// original bytes, the analysis and a chat record of the report. A failed
// upload leaves neither rows nor the stored file behind.
func (uc *AnalyzeDocumentUseCase) Upload(ctx context.Context, sessionID, filename string, content []byte) (*domain.UploadResult, error) {
	started := time.Now()
	result, err := uc.upload(ctx, sessionID, filename, content)
	uc.observe(result, err, time.Since(started))
	return result, err
}

func (uc *AnalyzeDocumentUseCase) upload(ctx context.Context, sessionID, filename string, content []byte) (*domain.UploadResult, error) {
	filename = sanitizeFilename(filename)
	if err := validateUpload(filename, content); err != nil {
		return nil, err
	}

	text, err := uc.extractText(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	user, err := uc.users.EnsureUser(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session user: %w", err)
	}

	outcome := uc.pipeline.Analyze(ctx, text)
	report := analysis.FormatReport(outcome.Result)

	record := uc.newRecord(user.ID, filename, text, outcome)
	if err := uc.storeOriginal(ctx, record, content); err != nil {
		return nil, err
	}
	if err := uc.analyses.Create(ctx, record, reportMessage(record, report)); err != nil {
		uc.discardOriginal(ctx, record)
		return nil, fmt.Errorf("create document analysis: %w", err)
	}
	uc.publish(ctx, record)

	uc.logger.Info("document.upload.done",
		"document_id", record.ID,
		"user_id", user.ID,
		"filename", filename,
		"outcome", record.Outcome,
		"track", record.Track,
	)

	return &domain.UploadResult{
		Analysis:          outcome.Result,
		FormattedResponse: report,
		DocumentID:        record.ID,
		Filename:          filename,
		Outcome:           record.Outcome,
	}, nil
}

func validateUpload(filename string, content []byte) error {
	const op = "validate upload"
	switch {
	case filename == "":
		return domain.WrapError(domain.ErrInvalidInput, op, ErrNoFileSelected)
	case !domain.IsSupportedDocument(filename):
		return domain.WrapError(domain.ErrUnsupportedFormat, op, fmt.Errorf("unsupported file type %q", filepath.Ext(filename)))
	case len(content) == 0:
		return domain.WrapError(domain.ErrInvalidInput, op, ErrEmptyFile)
	case len(content) > domain.MaxUploadBytes:
		return domain.WrapError(domain.ErrInvalidInput, op, ErrFileTooLarge)
	}
	return nil
}

func (uc *AnalyzeDocumentUseCase) extractText(ctx context.Context, filename string, content []byte) (string, error) {
	text, err := uc.extractor.Extract(ctx, content, filename)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < domain.MinAnalysableChars {
		return "", domain.WrapError(domain.ErrInsufficientText, "extract text",
			fmt.Errorf("extracted %d characters, need at least %d", utf8.RuneCountInString(text), domain.MinAnalysableChars))
	}
	return text, nil
}

func (uc *AnalyzeDocumentUseCase) newRecord(userID, filename, text string, outcome analysis.Outcome) *domain.DocumentAnalysis {
	now := uc.now()
	id := uuid.NewString()
	result := outcome.Result

	kind := domain.OutcomeAnalyzed
	if outcome.FellBack {
		kind = domain.OutcomeFallback
	}

	return &domain.DocumentAnalysis{
		ID:                id,
		UserID:            userID,
		Filename:          filename,
		DocumentType:      domain.DocumentTypeSkeletonArgument,
		StoragePath:       fmt.Sprintf("%s/%s.%s", userID, id, domain.DocumentExtension(filename)),
		DocumentText:      truncateRunes(text, domain.MaxStoredDocumentChars),
		Summary:           result.DocumentSummary,
		ClaimantArguments: result.ClaimantArguments,
		DefencePoints:     result.DefencePoints,
		ClaimValue:        result.ClaimValueEstimate,
		Track:             result.TrackAssessment,
		LegalCategories:   result.LegalCategories,
		Urgency:           result.UrgencyLevel,
		Outcome:           kind,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (uc *AnalyzeDocumentUseCase) storeOriginal(ctx context.Context, record *domain.DocumentAnalysis, content []byte) error {
	if uc.storage == nil {
		record.StoragePath = ""
		return nil
	}
	if err := uc.storage.Save(ctx, record.StoragePath, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("save original document: %w", err)
	}
	return nil
}

// discardOriginal removes bytes saved for an upload whose rows were not
// written. It runs even when the request has been cancelled.
func (uc *AnalyzeDocumentUseCase) discardOriginal(ctx context.Context, record *domain.DocumentAnalysis) {
	if uc.storage == nil || record.StoragePath == "" {
		return
	}
	if err := uc.storage.Delete(context.WithoutCancel(ctx), record.StoragePath); err != nil {
		uc.logger.Warn("document.upload.discard_failed", "document_id", record.ID, "key", record.StoragePath, "error", err)
	}
}

func reportMessage(record *domain.DocumentAnalysis, report string) *domain.ChatMessage {
	category := documentAnalysisCategory
	if len(record.LegalCategories) > 0 {
		category = record.LegalCategories[0]
	}
	claimValue := record.ClaimValue
	return &domain.ChatMessage{
		ID:            uuid.NewString(),
		UserID:        record.UserID,
		Message:       "Document Analysis: " + record.Filename,
		Response:      report,
		LegalCategory: category,
		Citations: []domain.Citation{{
			Type:       documentAnalysisCategory,
			Filename:   record.Filename,
			ClaimValue: &claimValue,
			TrackType:  string(record.Track),
		}},
		CreatedAt: record.CreatedAt,
	}
}

// publish announces the stored analysis. Failures are logged only; the
// upload has already succeeded.
func (uc *AnalyzeDocumentUseCase) publish(ctx context.Context, record *domain.DocumentAnalysis) {
	if uc.publisher == nil {
		return
	}
	event := domain.AnalysisCompleted{
		AnalysisID:      record.ID,
		UserID:          record.UserID,
		Filename:        record.Filename,
		ClaimValue:      record.ClaimValue,
		Track:           record.Track,
		Urgency:         record.Urgency,
		LegalCategories: record.LegalCategories,
		Outcome:         record.Outcome,
		CreatedAt:       record.CreatedAt,
	}
	if err := uc.publisher.PublishAnalysisCompleted(ctx, event); err != nil {
		uc.logger.Warn("document.upload.publish_failed", "document_id", record.ID, "error", err)
	}
}

func (uc *AnalyzeDocumentUseCase) observe(result *domain.UploadResult, err error, elapsed time.Duration) {
	if uc.observer == nil {
		return
	}
	switch {
	case err == nil && result != nil:
		uc.observer.ObserveAnalysis(string(result.Outcome), elapsed)
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrCorruptDocument),
		domain.IsKind(err, domain.ErrInsufficientText):
		uc.observer.ObserveAnalysis("rejected", elapsed)
	default:
		uc.observer.ObserveAnalysis("error", elapsed)
	}
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return strings.TrimLeft(base, ".")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

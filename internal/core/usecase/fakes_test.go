package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

type userStoreFake struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
}

func newUserStoreFake() *userStoreFake {
	return &userStoreFake{users: map[string]*domain.User{}}
}

func (f *userStoreFake) EnsureUser(_ context.Context, sessionID string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[sessionID]; ok {
		return u, nil
	}
	u := &domain.User{ID: "user-" + sessionID, SessionID: sessionID, CreatedAt: time.Now().UTC()}
	f.users[sessionID] = u
	return u, nil
}

func (f *userStoreFake) GetBySession(_ context.Context, sessionID string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[sessionID]; ok {
		return u, nil
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get user", errors.New(sessionID))
}

// analysisRepoFake commits an analysis and its report together, like the
// transactional repository: a failure on either stores nothing.
type analysisRepoFake struct {
	created   []domain.DocumentAnalysis
	reports   []domain.ChatMessage
	err       error
	reportErr error
}

func (f *analysisRepoFake) Create(_ context.Context, a *domain.DocumentAnalysis, report *domain.ChatMessage) error {
	if f.err != nil {
		return f.err
	}
	if report != nil && f.reportErr != nil {
		return f.reportErr
	}
	f.created = append(f.created, *a)
	if report != nil {
		f.reports = append(f.reports, *report)
	}
	return nil
}

func (f *analysisRepoFake) GetByID(_ context.Context, userID, id string) (*domain.DocumentAnalysis, error) {
	for _, a := range f.created {
		if a.ID == id && a.UserID == userID {
			copyA := a
			return &copyA, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get analysis", errors.New(id))
}

func (f *analysisRepoFake) ListByUser(_ context.Context, userID string) ([]domain.DocumentAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.DocumentAnalysis
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].UserID == userID {
			out = append(out, f.created[i])
		}
	}
	return out, nil
}

type chatRepoFake struct {
	messages  []domain.ChatMessage
	appendErr error
}

func (f *chatRepoFake) Append(_ context.Context, msg *domain.ChatMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *chatRepoFake) ListByUser(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	for _, m := range f.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *chatRepoFake) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	all, _ := f.ListByUser(ctx, userID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

type referralRepoFake struct {
	created   []domain.SolicitorReferral
	existsErr error
}

func (f *referralRepoFake) Create(_ context.Context, r *domain.SolicitorReferral) error {
	f.created = append(f.created, *r)
	return nil
}

func (f *referralRepoFake) ExistsForAnalysis(_ context.Context, analysisID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.created {
		if r.AnalysisID == analysisID {
			return true, nil
		}
	}
	return false, nil
}

func (f *referralRepoFake) ListByUser(_ context.Context, userID string) ([]domain.SolicitorReferral, error) {
	var out []domain.SolicitorReferral
	for _, r := range f.created {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type storageFake struct {
	saved   map[string]string
	deleted []string
	err     error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.saved[key])), nil
}

type publisherFake struct {
	events []domain.AnalysisCompleted
	err    error
}

func (f *publisherFake) PublishAnalysisCompleted(_ context.Context, event domain.AnalysisCompleted) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type extractorFake struct {
	text  string
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type analysisClientFake struct {
	raw   map[string]any
	err   error
	calls int
}

func (f *analysisClientFake) Analyze(context.Context, string) (map[string]any, error) {
	f.calls++
	return f.raw, f.err
}

type advisorFake struct {
	guidance domain.LegalGuidance
	err      error
	query    string
	history  []domain.ChatTurn
}

func (f *advisorFake) Guidance(_ context.Context, query string, history []domain.ChatTurn) (domain.LegalGuidance, error) {
	f.query = query
	f.history = history
	return f.guidance, f.err
}

type knowledgeFake struct {
	result   domain.KnowledgeResult
	category string
	track    domain.Track
}

func (f *knowledgeFake) Lookup(_ string, category string, track domain.Track) domain.KnowledgeResult {
	f.category = category
	f.track = track
	return f.result
}

type exporterFake struct {
	rows int
}

func (f *exporterFake) ExportAnalyses(_ context.Context, analyses []domain.DocumentAnalysis) ([]byte, error) {
	f.rows = len(analyses)
	return []byte("xlsx"), nil
}

type observerFake struct {
	outcomes []string
	replies  []bool
}

func (f *observerFake) ObserveAnalysis(outcome string, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
}

func (f *observerFake) ObserveChatReply(referred bool, _ bool) {
	f.replies = append(f.replies, referred)
}

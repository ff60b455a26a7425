package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/defence-assistant/internal/core/analysis"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
)

const (
	// ChatHistoryExchanges is how many earlier exchanges are replayed to the LLM.
	ChatHistoryExchanges = 6
	// MaxChatMessageChars bounds a single chat query.
	MaxChatMessageChars = 4000

	maxCitedCases      = 2
	maxCitedProcedures = 2
	defaultCategory    = "general"
	aiCitationSource   = "AI Legal Assistant"
)

// Causes wrapped into domain.ErrInvalidInput by Ask.
var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrQueryTooLong = fmt.Errorf("query exceeds %d characters", MaxChatMessageChars)
)

// claimAmountRe finds a stated sum such as "£12,500" or "12500 pounds".
var claimAmountRe = regexp.MustCompile(`(?i)£\s*(\d[\d,]*)|(\d[\d,]*)\s*(?:pounds|gbp)\b`)

type ChatUseCase struct {
	users     ports.UserStore
	chats     ports.ChatRepository
	advisor   ports.LegalAdvisor
	knowledge ports.KnowledgeBase
	observer  ports.ChatObserver
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

type ChatOption func(*ChatUseCase)

func WithChatObserver(observer ports.ChatObserver) ChatOption {
	return func(uc *ChatUseCase) {
		uc.observer = observer
	}
}

func WithChatLogger(logger *slog.Logger) ChatOption {
	return func(uc *ChatUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// WithGuidanceTimeout bounds each LLM guidance call. Zero means no bound.
func WithGuidanceTimeout(timeout time.Duration) ChatOption {
	return func(uc *ChatUseCase) {
		if timeout > 0 {
			uc.timeout = timeout
		}
	}
}

func NewChatUseCase(
	users ports.UserStore,
	chats ports.ChatRepository,
	advisor ports.LegalAdvisor,
	knowledge ports.KnowledgeBase,
	opts ...ChatOption,
) *ChatUseCase {
	uc := &ChatUseCase{
		users:     users,
		chats:     chats,
		advisor:   advisor,
		knowledge: knowledge,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ask answers one chat query, combining LLM guidance with canned knowledge,
// and stores the exchange. An unreachable LLM degrades to knowledge-only guidance.
func (uc *ChatUseCase) Ask(ctx context.Context, sessionID, message string) (*domain.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", ErrEmptyQuery)
	}
	if len([]rune(message)) > MaxChatMessageChars {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", ErrQueryTooLong)
	}

	user, err := uc.users.EnsureUser(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session user: %w", err)
	}

	history, err := uc.recentTurns(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	guidance := uc.guidance(ctx, message, history)
	query := classifyQuery(message, guidance)

	var knowledge domain.KnowledgeResult
	if uc.knowledge != nil {
		knowledge = uc.knowledge.Lookup(message, query.Category, query.Track)
	}

	response, citations := buildLegalResponse(message, query, guidance, knowledge)

	var referral *domain.ReferralRecommendation
	if reason := referralReason(query, message); reason != "" {
		referral = recommendReferral(query, message, reason)
	}

	record := &domain.ChatMessage{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Message:       message,
		Response:      response,
		LegalCategory: query.Category,
		Citations:     citations,
		CreatedAt:     uc.now(),
	}
	if err := uc.chats.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append chat message: %w", err)
	}

	if uc.observer != nil {
		uc.observer.ObserveChatReply(referral != nil, guidance.Response != "")
	}
	uc.logger.Info("chat.reply",
		"user_id", user.ID,
		"category", query.Category,
		"track", query.Track,
		"referral", referral != nil,
	)

	return &domain.ChatReply{
		Message:       response,
		Citations:     citations,
		LegalCategory: query.Category,
		TrackType:     query.Track,
		ReferralInfo:  referral,
	}, nil
}

func (uc *ChatUseCase) History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	user, err := lookupSessionUser(ctx, uc.users, sessionID)
	if err != nil || user == nil {
		return []domain.ChatMessage{}, err
	}
	items, err := uc.chats.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	if items == nil {
		items = []domain.ChatMessage{}
	}
	return items, nil
}

// recentTurns replays the latest exchanges oldest first.
func (uc *ChatUseCase) recentTurns(ctx context.Context, userID string) ([]domain.ChatTurn, error) {
	recent, err := uc.chats.ListRecent(ctx, userID, ChatHistoryExchanges)
	if err != nil {
		return nil, fmt.Errorf("load recent chat history: %w", err)
	}
	turns := make([]domain.ChatTurn, 0, len(recent)*2)
	for _, msg := range recent {
		turns = append(turns,
			domain.ChatTurn{Sender: "user", Content: msg.Message},
			domain.ChatTurn{Sender: "assistant", Content: msg.Response},
		)
	}
	return turns, nil
}

func (uc *ChatUseCase) guidance(ctx context.Context, message string, history []domain.ChatTurn) domain.LegalGuidance {
	if uc.advisor == nil {
		return domain.LegalGuidance{}
	}
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}
	guidance, err := uc.advisor.Guidance(ctx, message, history)
	if err != nil {
		uc.logger.Warn("chat.guidance.unavailable", "error", err)
		return domain.LegalGuidance{}
	}
	return guidance
}

// classifyQuery derives routing information from the LLM's guidance, falling
// back to a sum stated in the query for the track.
func classifyQuery(message string, guidance domain.LegalGuidance) domain.QueryAnalysis {
	q := domain.QueryAnalysis{
		Category: normalizeCategory(guidance.Category),
		Urgency:  strings.ToLower(strings.TrimSpace(guidance.Urgency)),
	}
	if q.Category == "" {
		q.Category = defaultCategory
	}
	if track := domain.Track(strings.ToLower(strings.TrimSpace(guidance.Track))); track.Valid() {
		q.Track = track
	} else if amount, ok := statedAmount(message); ok {
		q.Track = domain.TrackForClaimValue(amount)
	}
	return q
}

func statedAmount(message string) (int, bool) {
	m := claimAmountRe.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	amount := analysis.ParseClaimValue(raw)
	return amount, amount > 0
}

var trackBlurbs = map[domain.Track][2]string{
	domain.TrackSmallClaims: {
		"**Small Claims Track (up to £10,000)**\n",
		"This appears to be a small claims matter. Small claims are designed to be accessible to litigants in person, with simplified procedures and limited costs exposure.",
	},
	domain.TrackFastTrack: {
		"**Fast Track (£10,000 - £25,000)**\n",
		"This appears to be a fast track claim. Fast track claims have standard directions and fixed trial costs, with cases typically concluded within 30 weeks.",
	},
	domain.TrackMultiTrack: {
		"**Multi-Track (£25,000 - £100,000)**\n",
		"This appears to be a multi-track claim. Multi-track claims involve case management conferences, costs budgeting, and more complex procedures.",
	},
}

var courtFeeNotes = map[domain.Track]string{
	domain.TrackSmallClaims: "• Small claims have limited costs exposure - generally only court fees and expert witness costs",
	domain.TrackFastTrack:   "• Fast track claims have fixed trial costs and limited recoverable costs",
	domain.TrackMultiTrack:  "• Multi-track claims require costs budgeting and have full costs exposure",
}

// buildLegalResponse assembles the reply text and its citations.
func buildLegalResponse(query string, q domain.QueryAnalysis, guidance domain.LegalGuidance, knowledge domain.KnowledgeResult) (string, []domain.Citation) {
	parts := []string{}
	citations := []domain.Citation{}

	if blurb, ok := trackBlurbs[q.Track]; ok {
		parts = append(parts, blurb[0], blurb[1])
	}

	if guidance.Response != "" {
		parts = append(parts, "\n**AI Legal Guidance:**", guidance.Response)
		if guidance.Category != "" {
			citations = append(citations, domain.Citation{
				Type:     "ai_analysis",
				Category: guidance.Category,
				Track:    guidance.Track,
				Urgency:  guidance.Urgency,
				Source:   aiCitationSource,
			})
		}
	}

	if len(knowledge.Cases) > 0 {
		parts = append(parts, "\n**Relevant Case Law:**")
		for _, c := range first(knowledge.Cases, maxCitedCases) {
			parts = append(parts, fmt.Sprintf("• %s %s - %s", c.CaseName, c.Citation, c.Summary))
			citations = append(citations, domain.Citation{Type: "case", Name: c.CaseName, Citation: c.Citation, URL: c.URL})
		}
	}

	if len(knowledge.Procedures) > 0 {
		parts = append(parts, "\n**Relevant Procedures:**")
		for _, p := range first(knowledge.Procedures, maxCitedProcedures) {
			parts = append(parts, fmt.Sprintf("• %s: %s", p.Title, p.Summary))
			citations = append(citations, domain.Citation{Type: "procedure", Title: p.Title, Source: p.Source})
		}
	}

	parts = append(parts,
		"\n**Important Notes:**",
		"• This information is for guidance only and does not constitute legal advice",
		"• Consider seeking professional legal advice for your specific circumstances",
		"• Court procedures and deadlines are strict - ensure compliance with all requirements",
	)

	lower := strings.ToLower(query)
	if note, ok := courtFeeNotes[q.Track]; ok && (strings.Contains(lower, "costs") || strings.Contains(lower, "fees")) {
		parts = append(parts, "\n**Court Fees Information:**", note)
	}

	return strings.Join(parts, "\n"), citations
}

func first[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

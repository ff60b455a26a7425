package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
)

const (
	DefaultGuidanceTemperature = 0.3
	DefaultGuidanceMaxTokens   = 1000

	guidanceOperation = "llm.legal_guidance"
)

const GuidanceSystemPrompt = `You are a UK civil litigation assistant helping litigants in person in England and Wales.
Answer questions about civil claims worth up to £100,000, the small claims, fast and multi tracks,
the Civil Procedure Rules, pre-action protocols, defences, settlement and costs.
Give practical, plain-English guidance. Do not give definitive legal advice and recommend a solicitor
where the matter is complex, urgent, or high value.

Respond with a single JSON object with these keys:
- "response": your guidance as Markdown text
- "category": one of contract, debt, negligence, professional_negligence, personal_injury, employment,
  landlord_tenant, consumer, commercial_dispute, procedure, general
- "track": one of small_claims, fast_track, multi_track, unknown
- "urgency": one of low, medium, high`

// GuidanceClient asks a Completer for structured chat guidance.
type GuidanceClient struct {
	completer   ports.Completer
	temperature float64
	maxTokens   int
}

func NewGuidanceClient(completer ports.Completer, temperature float64, maxTokens int) *GuidanceClient {
	if temperature < 0 {
		temperature = DefaultGuidanceTemperature
	}
	if maxTokens <= 0 {
		maxTokens = DefaultGuidanceMaxTokens
	}
	return &GuidanceClient{completer: completer, temperature: temperature, maxTokens: maxTokens}
}

func (c *GuidanceClient) Guidance(ctx context.Context, query string, history []domain.ChatTurn) (domain.LegalGuidance, error) {
	reply, err := c.completer.Complete(ctx, domain.CompletionRequest{
		System:      GuidanceSystemPrompt,
		User:        query,
		History:     history,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		JSON:        true,
	})
	if err != nil {
		return domain.LegalGuidance{}, fmt.Errorf("%s: %w", guidanceOperation, err)
	}

	parsed, err := ParseJSONObject(reply)
	if err != nil {
		// Some models ignore JSON mode for conversational prompts; keep the prose.
		if text := strings.TrimSpace(stripMarkdownFences(reply)); text != "" && !strings.HasPrefix(text, "{") {
			return domain.LegalGuidance{Response: text}, nil
		}
		return domain.LegalGuidance{}, fmt.Errorf("%s: %w", guidanceOperation, err)
	}

	guidance := domain.LegalGuidance{
		Response: stringField(parsed, "response"),
		Category: strings.ToLower(stringField(parsed, "category")),
		Track:    strings.ToLower(stringField(parsed, "track")),
		Urgency:  strings.ToLower(stringField(parsed, "urgency")),
	}
	if guidance.Response == "" {
		return domain.LegalGuidance{}, fmt.Errorf("%s: %w", guidanceOperation, errors.New("reply has no response text"))
	}
	return guidance, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/defence-assistant/internal/core/analysis"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/resilience"
)

const (
	DefaultAnalysisTemperature = 0.3
	DefaultAnalysisMaxTokens   = 4000

	analyzeOperation = "llm.analyze_document"
)

// AnalysisClient asks a Completer for a JSON defence analysis. It makes a
// single attempt per call; the executor only contributes the circuit breaker.
type AnalysisClient struct {
	completer   ports.Completer
	executor    *resilience.Executor
	temperature float64
	maxTokens   int
}

type AnalysisOption func(*AnalysisClient)

func WithSampling(temperature float64, maxTokens int) AnalysisOption {
	return func(c *AnalysisClient) {
		if temperature >= 0 {
			c.temperature = temperature
		}
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

func WithExecutor(executor *resilience.Executor) AnalysisOption {
	return func(c *AnalysisClient) {
		c.executor = executor
	}
}

func NewAnalysisClient(completer ports.Completer, opts ...AnalysisOption) *AnalysisClient {
	c := &AnalysisClient{
		completer:   completer,
		temperature: DefaultAnalysisTemperature,
		maxTokens:   DefaultAnalysisMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze returns the parsed JSON object of the reply. Every failure is
// reported as domain.ErrAnalysisUnavailable.
func (c *AnalysisClient) Analyze(ctx context.Context, prompt string) (map[string]any, error) {
	req := domain.CompletionRequest{
		System:      analysis.SystemPrompt,
		User:        prompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		JSON:        true,
	}

	var reply string
	call := func(callCtx context.Context) error {
		out, err := c.completer.Complete(callCtx, req)
		if err != nil {
			return err
		}
		reply = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, analyzeOperation, call, Classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrAnalysisUnavailable, analyzeOperation, err)
	}

	parsed, err := ParseJSONObject(reply)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAnalysisUnavailable, analyzeOperation, err)
	}
	return parsed, nil
}

var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes a code fence wrapped around a reply, including
// an unterminated opening fence left by a truncated response.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// ParseJSONObject decodes the outermost JSON object of an LLM reply.
func ParseJSONObject(reply string) (map[string]any, error) {
	text := extractJSONObject(stripMarkdownFences(reply))
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty reply")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse reply json: %w", err)
	}
	if out == nil {
		return nil, errors.New("reply is not a json object")
	}
	return out, nil
}

package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
)

const DefaultAnalysisTimeout = 90 * time.Second

// Outcome is the result of one pipeline run. Result is always fully
// populated; Err records why the fallback was used.
type Outcome struct {
	Result   domain.AnalysisResult
	FellBack bool
	Err      error
}

type Pipeline struct {
	client  ports.AnalysisClient
	logger  *slog.Logger
	timeout time.Duration
}

func NewPipeline(client ports.AnalysisClient, logger *slog.Logger, timeout time.Duration) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	return &Pipeline{client: client, logger: logger, timeout: timeout}
}

// Analyze asks the LLM for an analysis of text and normalizes the reply.
// Any client failure, including the timeout, degrades to Fallback.
func (p *Pipeline) Analyze(ctx context.Context, text string) Outcome {
	if p.client == nil {
		return p.fallback(text, domain.WrapError(domain.ErrAnalysisUnavailable, "analyze document", errors.New("no analysis client configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	p.logger.Debug("document.analysis.start", "text_chars", len(text))
	raw, err := p.client.Analyze(callCtx, BuildPrompt(text))
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		if !domain.IsKind(err, domain.ErrAnalysisUnavailable) {
			err = domain.WrapError(domain.ErrAnalysisUnavailable, "analyze document", err)
		}
		return p.fallback(text, err)
	}

	result := Normalize(raw)
	if err := CheckConformance(result); err != nil {
		p.logger.Warn("document.analysis.schema_violation", "error", err)
	}
	p.logger.Info("document.analysis.done",
		"duration_ms", time.Since(started).Milliseconds(),
		"claim_value", result.ClaimValueEstimate,
		"track", result.TrackAssessment,
		"urgency", result.UrgencyLevel,
	)
	return Outcome{Result: result}
}

func (p *Pipeline) fallback(text string, err error) Outcome {
	p.logger.Warn("document.analysis.fallback", "error", err)
	return Outcome{Result: Fallback(text), FellBack: true, Err: err}
}

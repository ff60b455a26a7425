package llm

import (
	"context"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/resilience"
)

// ResilientCompleter retries transient provider failures behind a breaker.
// Chat guidance uses it; document analysis goes through AnalysisClient.
type ResilientCompleter struct {
	next      ports.Completer
	executor  *resilience.Executor
	operation string
}

func NewResilientCompleter(next ports.Completer, executor *resilience.Executor, operation string) *ResilientCompleter {
	return &ResilientCompleter{next: next, executor: executor, operation: operation}
}

func (c *ResilientCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c.executor == nil {
		return c.next.Complete(ctx, req)
	}

	var reply string
	err := c.executor.Execute(ctx, c.operation, func(callCtx context.Context) error {
		out, err := c.next.Complete(callCtx, req)
		if err != nil {
			return err
		}
		reply = out
		return nil
	}, Classify)
	if err != nil {
		return "", wrapTemporaryIfNeeded(c.operation, err)
	}
	return reply, nil
}

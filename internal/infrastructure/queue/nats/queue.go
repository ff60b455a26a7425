// Package nats carries analysis-completed events from the API to the referral worker.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/resilience"
)

const (
	workerQueueGroup = "referral-workers"
	drainTimeout     = 5 * time.Second

	headerAnalysisID = "Analysis-Id"
	headerEventType  = "Event-Type"
	eventTypeDone    = "analysis.completed"
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type settings struct {
	connectTimeout time.Duration
	reconnectWait  time.Duration
	maxReconnects  int
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Option func(*settings)

// WithExecutor routes publishes through the shared retry and breaker executor.
func WithExecutor(executor *resilience.Executor) Option {
	return func(s *settings) {
		s.executor = executor
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReconnect overrides how long and how often the client retries a lost
// server. Non-positive values keep the defaults.
func WithReconnect(wait time.Duration, attempts int) Option {
	return func(s *settings) {
		if wait > 0 {
			s.reconnectWait = wait
		}
		if attempts > 0 {
			s.maxReconnects = attempts
		}
	}
}

// New connects to url. The client keeps retrying a server that is not up yet,
// so the API can start before NATS does.
func New(url, subject string, opts ...Option) (*Queue, error) {
	s := settings{
		connectTimeout: 2 * time.Second,
		reconnectWait:  2 * time.Second,
		maxReconnects:  60,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	conn, err := nats.Connect(url,
		nats.Name("defence-assistant"),
		nats.Timeout(s.connectTimeout),
		nats.ReconnectWait(s.reconnectWait),
		nats.MaxReconnects(s.maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats.disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats.reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{conn: conn, subject: subject, executor: s.executor, logger: s.logger}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishAnalysisCompleted announces a stored analysis. Connection failures
// surface as domain.ErrTemporary.
func (q *Queue) PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error {
	msg, err := newMessage(q.subject, event)
	if err != nil {
		return err
	}

	publish := func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if q.executor == nil {
		err = publish(ctx)
	} else {
		err = q.executor.Execute(ctx, "nats.publish", publish, classifyNATSError)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeAnalysisCompleted joins the worker queue group and hands every
// event to handler until ctx is done, then drains the subscription.
func (q *Queue) SubscribeAnalysisCompleted(ctx context.Context, handler func(context.Context, domain.AnalysisCompleted) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		q.deliver(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	waitDrained(sub, drainTimeout)
	if err := q.conn.FlushTimeout(drainTimeout); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// waitDrained blocks until the subscription has handed over its pending
// messages and closed, or until timeout.
func waitDrained(sub *nats.Subscription, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for sub.IsValid() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
}

// deliver decodes msg and runs handler. Messages still pending when ctx ends
// arrive through Drain; they run on a detached context bounded by drainTimeout.
func (q *Queue) deliver(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.AnalysisCompleted) error) {
	event, err := decodeEvent(msg.Data)
	if err != nil {
		q.logger.Error("nats.event_decode_failed",
			"analysis_id", msg.Header.Get(headerAnalysisID),
			"bytes", len(msg.Data),
			"error", err,
		)
		return
	}

	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		defer cancel()
		q.logger.Info("nats.event_drained", "analysis_id", event.AnalysisID)
	}
	if err := handler(ctx, event); err != nil {
		q.logger.Error("nats.event_handler_failed", "analysis_id", event.AnalysisID, "error", err)
	}
}

func newMessage(subject string, event domain.AnalysisCompleted) (*nats.Msg, error) {
	data, err := encodeEvent(event)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set(headerAnalysisID, event.AnalysisID)
	msg.Header.Set(headerEventType, eventTypeDone)
	msg.Data = data
	return msg, nil
}

func encodeEvent(event domain.AnalysisCompleted) ([]byte, error) {
	if event.AnalysisID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode analysis event", errors.New("analysis id is empty"))
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (domain.AnalysisCompleted, error) {
	var event domain.AnalysisCompleted
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.AnalysisCompleted{}, fmt.Errorf("unmarshal analysis event: %w", err)
	}
	if event.AnalysisID == "" {
		return domain.AnalysisCompleted{}, errors.New("analysis event without analysis id")
	}
	return event, nil
}

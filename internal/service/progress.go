package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
)

// PairOutcome is what happened to one (prompt, model) pair.
type PairOutcome string

const (
	OutcomeResponded PairOutcome = "responded"
	OutcomeAnalyzed  PairOutcome = "analyzed"
	OutcomeSkipped   PairOutcome = "skipped"
	OutcomeDuplicate PairOutcome = "duplicate"
)

// ProgressEvent is an immutable snapshot emitted after each dispatch step.
type ProgressEvent struct {
	CompanyID     string      `json:"companyId"`
	CurrentPrompt string      `json:"currentPrompt"`
	CurrentModel  string      `json:"currentModel"`
	Completed     int         `json:"completed"`
	Total         int         `json:"total"`
	Outcome       PairOutcome `json:"outcome,omitempty"`
	At            time.Time   `json:"at"`
}

// Snapshot returns the persisted form of e.
func (e ProgressEvent) Snapshot() domain.CollectionProgress {
	return domain.CollectionProgress{
		CurrentPrompt: e.CurrentPrompt,
		CurrentModel:  e.CurrentModel,
		Completed:     e.Completed,
		Total:         e.Total,
	}
}

// ProgressSink consumes progress events. Sinks are called from a single
// goroutine in emission order.
type ProgressSink interface {
	Handle(ctx context.Context, ev ProgressEvent) error
}

// ProgressStream delivers events to its sinks on one consumer goroutine.
type ProgressStream struct {
	ctx   context.Context
	ch    chan ProgressEvent
	sinks []ProgressSink
	done  chan struct{}
	once  sync.Once
}

// NewProgressStream starts a stream that fans events out to sinks. Close
// must be called to drain it.
func NewProgressStream(ctx context.Context, sinks ...ProgressSink) *ProgressStream {
	s := &ProgressStream{
		ctx:   context.WithoutCancel(ctx),
		ch:    make(chan ProgressEvent, 64),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go s.consume()
	return s
}

// Emit queues ev for delivery.
func (s *ProgressStream) Emit(ev ProgressEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.ch <- ev
}

// Close stops accepting events and waits until every queued event has been
// delivered.
func (s *ProgressStream) Close() {
	s.once.Do(func() { close(s.ch) })
	<-s.done
}

func (s *ProgressStream) consume() {
	defer close(s.done)
	for ev := range s.ch {
		for _, sink := range s.sinks {
			if err := sink.Handle(s.ctx, ev); err != nil {
				logger.CtxWarn(s.ctx, "Progress sink %T failed: %v", sink, err)
			}
		}
	}
}

// CompanyProgressSink mirrors progress into the company row so a reload can
// pick it up.
type CompanyProgressSink struct {
	companies *repository.CompanyRepository
}

// NewCompanyProgressSink creates a sink writing to companies.
func NewCompanyProgressSink(companies *repository.CompanyRepository) *CompanyProgressSink {
	return &CompanyProgressSink{companies: companies}
}

func (s *CompanyProgressSink) Handle(ctx context.Context, ev ProgressEvent) error {
	if ev.CompanyID == "" {
		return nil
	}
	return s.companies.SaveProgress(ctx, ev.CompanyID, ev.Snapshot())
}

// ProgressTracker keeps the latest event per company for polling clients.
type ProgressTracker struct {
	mu     sync.RWMutex
	latest map[string]ProgressEvent
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{latest: make(map[string]ProgressEvent)}
}

func (t *ProgressTracker) Handle(ctx context.Context, ev ProgressEvent) error {
	t.mu.Lock()
	t.latest[ev.CompanyID] = ev
	t.mu.Unlock()
	return nil
}

// Get returns the latest event for companyID.
func (t *ProgressTracker) Get(companyID string) (ProgressEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ev, ok := t.latest[companyID]
	return ev, ok
}

// Forget drops the tracked state of companyID.
func (t *ProgressTracker) Forget(companyID string) {
	t.mu.Lock()
	delete(t.latest, companyID)
	t.mu.Unlock()
}

// RedisProgressSink publishes events on a pub/sub channel and keeps the
// latest one under a per-company key.
type RedisProgressSink struct {
	client  *redis.Client
	channel string
	ttl     time.Duration
}

// NewRedisProgressSink creates a sink publishing on channel.
func NewRedisProgressSink(client *redis.Client, channel string) *RedisProgressSink {
	return &RedisProgressSink{client: client, channel: channel, ttl: 24 * time.Hour}
}

// LatestKey returns the key holding the latest event of companyID.
func (s *RedisProgressSink) LatestKey(companyID string) string {
	return fmt.Sprintf("%s:%s", s.channel, companyID)
}

func (s *RedisProgressSink) Handle(ctx context.Context, ev ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Publish(ctx, s.channel, payload)
	pipe.Set(ctx, s.LatestKey(ev.CompanyID), payload, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	return nil
}

// Latest reads the last published event of companyID.
func (s *RedisProgressSink) Latest(ctx context.Context, companyID string) (*ProgressEvent, error) {
	payload, err := s.client.Get(ctx, s.LatestKey(companyID)).Bytes()
	if err != nil {
		return nil, err
	}
	var ev ProgressEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

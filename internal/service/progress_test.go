package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
)

type recordingSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (s *recordingSink) Handle(ctx context.Context, ev ProgressEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func TestProgressStreamDeliversInOrder(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	stream := NewProgressStream(context.Background(), a, b)
	for i := 1; i <= 100; i++ {
		stream.Emit(ProgressEvent{CompanyID: "c1", Completed: i, Total: 100})
	}
	stream.Close()
	stream.Close()

	for _, sink := range []*recordingSink{a, b} {
		require.Len(t, sink.events, 100)
		for i, ev := range sink.events {
			assert.Equal(t, i+1, ev.Completed)
			assert.False(t, ev.At.IsZero())
		}
	}
}

func TestProgressStreamSurvivesSinkErrors(t *testing.T) {
	rec := &recordingSink{}
	failing := sinkFunc(func(context.Context, ProgressEvent) error { return assert.AnError })
	stream := NewProgressStream(context.Background(), failing, rec)
	stream.Emit(ProgressEvent{CompanyID: "c1", Completed: 1, Total: 1})
	stream.Close()
	assert.Len(t, rec.events, 1)
}

type sinkFunc func(ctx context.Context, ev ProgressEvent) error

func (f sinkFunc) Handle(ctx context.Context, ev ProgressEvent) error { return f(ctx, ev) }

func TestCompanyProgressSinkPersistsSnapshot(t *testing.T) {
	db := openTestDB(t)
	companies := repository.NewCompanyRepository(db)
	onboardings := repository.NewOnboardingRepository(db)
	ctx := context.Background()

	company := &domain.Company{ID: "company-1", Name: "Acme", DataCollectionStatus: domain.CollectionPending}
	require.NoError(t, onboardings.CreateWithCompany(ctx, &domain.OnboardingRecord{ID: "onb-1", CompanyName: "Acme", Industry: "Software"}, company))

	sink := NewCompanyProgressSink(companies)
	require.NoError(t, sink.Handle(ctx, ProgressEvent{CompanyID: "company-1", CurrentPrompt: "p", CurrentModel: "openai", Completed: 3, Total: 12}))
	require.NoError(t, sink.Handle(ctx, ProgressEvent{}))

	got, err := companies.GetByID(ctx, "company-1")
	require.NoError(t, err)
	require.NotNil(t, got.DataCollectionProgress)
	assert.Equal(t, domain.CollectionProgress{CurrentPrompt: "p", CurrentModel: "openai", Completed: 3, Total: 12}, *got.DataCollectionProgress)
}

func TestProgressTrackerKeepsLatest(t *testing.T) {
	tr := NewProgressTracker()
	ctx := context.Background()
	require.NoError(t, tr.Handle(ctx, ProgressEvent{CompanyID: "c1", Completed: 1}))
	require.NoError(t, tr.Handle(ctx, ProgressEvent{CompanyID: "c1", Completed: 2}))

	ev, ok := tr.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 2, ev.Completed)

	tr.Forget("c1")
	_, ok = tr.Get("c1")
	assert.False(t, ok)
}

func TestRedisProgressSinkPublishesAndStoresLatest(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	sink := NewRedisProgressSink(client, "perceptionx:progress")

	sub := client.Subscribe(ctx, "perceptionx:progress")
	t.Cleanup(func() { sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := ProgressEvent{CompanyID: "c1", CurrentModel: "openai", Completed: 5, Total: 12, At: time.Now().UTC()}
	require.NoError(t, sink.Handle(ctx, ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"completed":5`)

	latest, err := sink.Latest(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Completed)
	assert.Equal(t, "openai", latest.CurrentModel)
	assert.True(t, mr.TTL("perceptionx:progress:c1") > 0)

	_, err = sink.Latest(ctx, "missing")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "://nope")
	assert.Error(t, err)
}

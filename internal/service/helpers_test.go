package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file:svc_" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

// fakeModel answers prompts through fn and records every call.
type fakeModel struct {
	name  string
	fn    func(prompt string) (*ModelAnswer, error)
	calls atomic.Int64

	mu      sync.Mutex
	prompts []string
}

func newFakeModel(name string, fn func(prompt string) (*ModelAnswer, error)) *fakeModel {
	if fn == nil {
		fn = func(prompt string) (*ModelAnswer, error) {
			return &ModelAnswer{Text: name + " says Acme is a great employer with strong growth."}, nil
		}
	}
	return &fakeModel{name: name, fn: fn}
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Ask(ctx context.Context, prompt string) (*ModelAnswer, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.fn(prompt)
}

func (m *fakeModel) askedFor(prompt string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.prompts {
		if p == prompt {
			n++
		}
	}
	return n
}

// fakeTranslator returns prefixed texts unless fn overrides it.
type fakeTranslator struct {
	fn    func(texts []string) (*Translation, error)
	calls atomic.Int64

	mu       sync.Mutex
	received [][]string
}

func (f *fakeTranslator) Translate(ctx context.Context, texts []string, countryCode string) (*Translation, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.received = append(f.received, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(texts)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "[fr] " + t
	}
	return &Translation{TranslatedPrompts: out, TargetLanguage: "French"}, nil
}

// fakeRecency records the citations of every batch.
type fakeRecency struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeRecency) ExtractBatch(ctx context.Context, citations []domain.Citation) (*RecencySummary, error) {
	urls := make([]string, len(citations))
	for i, c := range citations {
		urls[i] = c.URL
	}
	f.mu.Lock()
	f.batches = append(f.batches, urls)
	f.mu.Unlock()
	return &RecencySummary{Requested: len(citations)}, nil
}

func jsonServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

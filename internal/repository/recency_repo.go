package repository

import (
	"context"

	"github.com/perceptionx/collector/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecencyRepository handles the URL recency cache.
type RecencyRepository struct {
	db *gorm.DB
}

// NewRecencyRepository creates a new RecencyRepository.
func NewRecencyRepository(db *gorm.DB) *RecencyRepository {
	return &RecencyRepository{db: db}
}

// Upsert creates or replaces the cache entry keyed by URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: cache entry to write.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *RecencyRepository) Upsert(ctx context.Context, entry *domain.URLRecencyCache) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"domain", "recency_score", "extraction_method", "publication_date", "updated_at"}),
	}).Create(entry).Error
}

// Get retrieves the cache entry for url.
func (r *RecencyRepository) Get(ctx context.Context, url string) (*domain.URLRecencyCache, error) {
	var e domain.URLRecencyCache
	if err := r.db.WithContext(ctx).First(&e, "url = ?", url).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByURLs returns the cache entries present for urls.
func (r *RecencyRepository) ListByURLs(ctx context.Context, urls []string) ([]domain.URLRecencyCache, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	var out []domain.URLRecencyCache
	if err := r.db.WithContext(ctx).Where("url IN ?", urls).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CachedURLs returns the subset of urls that already have a cache entry.
func (r *RecencyRepository) CachedURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(urls) == 0 {
		return out, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&domain.URLRecencyCache{}).
		Where("url IN ?", urls).
		Pluck("url", &found).Error; err != nil {
		return nil, err
	}
	for _, u := range found {
		out[u] = true
	}
	return out, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/perceptionx/collector/internal/domain"
	"gorm.io/gorm"
)

// SearchInsightRepository stores search-insight results and term metrics.
type SearchInsightRepository struct {
	db *gorm.DB
}

// NewSearchInsightRepository creates a new SearchInsightRepository.
func NewSearchInsightRepository(db *gorm.DB) *SearchInsightRepository {
	return &SearchInsightRepository{db: db}
}

// Replace swaps a company's stored results and terms for new ones in one
// transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - companyID: company the rows belong to.
//   - results: organic results to store.
//   - terms: term metrics to store.
// Returns:
//   - error: non-nil if any statement fails.
func (r *SearchInsightRepository) Replace(ctx context.Context, companyID string, results []domain.SearchInsightResult, terms []domain.SearchInsightTerm) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", companyID).Delete(&domain.SearchInsightResult{}).Error; err != nil {
			return fmt.Errorf("failed to clear search results: %w", err)
		}
		if err := tx.Where("company_id = ?", companyID).Delete(&domain.SearchInsightTerm{}).Error; err != nil {
			return fmt.Errorf("failed to clear search terms: %w", err)
		}
		if len(results) > 0 {
			if err := tx.CreateInBatches(results, 100).Error; err != nil {
				return fmt.Errorf("failed to store search results: %w", err)
			}
		}
		if len(terms) > 0 {
			if err := tx.Create(&terms).Error; err != nil {
				return fmt.Errorf("failed to store search terms: %w", err)
			}
		}
		return nil
	})
}

// ListResults returns a company's search results ordered by term and position.
func (r *SearchInsightRepository) ListResults(ctx context.Context, companyID string) ([]domain.SearchInsightResult, error) {
	var out []domain.SearchInsightResult
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("search_term ASC, position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListTerms returns a company's term metrics.
func (r *SearchInsightRepository) ListTerms(ctx context.Context, companyID string) ([]domain.SearchInsightTerm, error) {
	var out []domain.SearchInsightTerm
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("term ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

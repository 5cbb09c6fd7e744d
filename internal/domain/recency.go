package domain

import "time"

// Extraction methods recorded on the recency cache.
const (
	ExtractionMetaTag     = "meta-tag"
	ExtractionJSONLD      = "json-ld"
	ExtractionTimeElement = "time-element"
	ExtractionURLPattern  = "url-pattern"
	ExtractionNotFound    = "not-found"
	ExtractionFetchFailed = "fetch-failed"
)

// URLRecencyCache stores how recent a cited page is. RecencyScore is nil
// when no publication date could be found.
type URLRecencyCache struct {
	URL              string     `gorm:"type:text;primaryKey" json:"url"`
	Domain           string     `gorm:"type:text;index" json:"domain"`
	RecencyScore     *int       `json:"recency_score,omitempty"`
	ExtractionMethod string     `gorm:"type:text" json:"extraction_method"`
	PublicationDate  *time.Time `json:"publication_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for URLRecencyCache.
func (URLRecencyCache) TableName() string {
	return "url_recency_cache"
}

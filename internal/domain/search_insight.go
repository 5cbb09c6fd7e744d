package domain

import "time"

// SearchInsightResult is one organic search result collected for a company.
type SearchInsightResult struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	CompanyID    string    `gorm:"type:text;not null;index" json:"company_id"`
	OnboardingID string    `gorm:"type:text" json:"onboarding_id,omitempty"`
	SearchTerm   string    `gorm:"type:text;not null" json:"search_term"`
	Position     int       `json:"position"`
	Title        string    `gorm:"type:text" json:"title"`
	Link         string    `gorm:"type:text" json:"link"`
	Snippet      string    `gorm:"type:text" json:"snippet"`
	Domain       string    `gorm:"type:text;index" json:"domain"`
	Date         string    `gorm:"type:text" json:"date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for SearchInsightResult.
func (SearchInsightResult) TableName() string {
	return "search_insights_results"
}

// SearchInsightTerm holds keyword metrics for a searched term.
type SearchInsightTerm struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	CompanyID     string    `gorm:"type:text;not null;index" json:"company_id"`
	Term          string    `gorm:"type:text;not null" json:"term"`
	MonthlyVolume int       `json:"monthly_volume"`
	CPC           float64   `json:"cpc"`
	Competition   float64   `json:"competition"`
	ResultsCount  int       `json:"results_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name for SearchInsightTerm.
func (SearchInsightTerm) TableName() string {
	return "search_insights_terms"
}

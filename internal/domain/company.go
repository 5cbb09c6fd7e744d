package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CollectionStatus is the data-collection state of a company.
type CollectionStatus string

const (
	CollectionPending                  CollectionStatus = "pending"
	CollectionCollectingSearchInsights CollectionStatus = "collecting_search_insights"
	CollectionCollectingLLMData        CollectionStatus = "collecting_llm_data"
	CollectionCompleted                CollectionStatus = "completed"
	CollectionFailed                   CollectionStatus = "failed"
)

var collectionRank = map[CollectionStatus]int{
	CollectionPending:                  0,
	CollectionCollectingSearchInsights: 1,
	CollectionCollectingLLMData:        2,
	CollectionCompleted:                3,
}

// IsTerminal reports whether no further transition is allowed.
func (s CollectionStatus) IsTerminal() bool {
	return s == CollectionCompleted || s == CollectionFailed
}

// CanTransition reports whether a company may move from s to next.
// Transitions only move forward; failed is reachable from any
// non-terminal state and is itself terminal.
func (s CollectionStatus) CanTransition(next CollectionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == CollectionFailed {
		return true
	}
	from, ok := collectionRank[s]
	if !ok {
		return false
	}
	to, ok := collectionRank[next]
	if !ok {
		return false
	}
	return to > from
}

// CollectionProgress is the last progress snapshot persisted on the company row.
type CollectionProgress struct {
	CurrentPrompt string `json:"currentPrompt"`
	CurrentModel  string `json:"currentModel"`
	Completed     int    `json:"completed"`
	Total         int    `json:"total"`
}

// Value implements the driver.Valuer interface.
func (p CollectionProgress) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (p *CollectionProgress) Scan(value interface{}) error {
	if value == nil {
		*p = CollectionProgress{}
		return nil
	}
	b, err := scanBytes(value, "CollectionProgress")
	if err != nil {
		return err
	}
	return json.Unmarshal(b, p)
}

// Company is the subject of an onboarding run. Progress is nil until the
// dispatch loop reports its first step.
type Company struct {
	ID                        string              `gorm:"type:text;primaryKey" json:"id"`
	OnboardingID              string              `gorm:"type:text;index" json:"onboarding_id"`
	UserID                    string              `gorm:"type:text;index" json:"user_id"`
	Name                      string              `gorm:"type:text;not null" json:"name"`
	Industry                  string              `gorm:"type:text" json:"industry"`
	Country                   string              `gorm:"type:text" json:"country"`
	DataCollectionStatus      CollectionStatus    `gorm:"type:text;index;default:pending" json:"data_collection_status"`
	DataCollectionProgress    *CollectionProgress `gorm:"type:text" json:"data_collection_progress"`
	DataCollectionStartedAt   *time.Time          `json:"data_collection_started_at,omitempty"`
	DataCollectionCompletedAt *time.Time          `json:"data_collection_completed_at,omitempty"`
	LastError                 string              `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt                 time.Time           `json:"created_at"`
	UpdatedAt                 time.Time           `json:"updated_at"`
}

// TableName returns the database table name for Company.
func (Company) TableName() string {
	return "companies"
}

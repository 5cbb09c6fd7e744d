package domain

import "time"

// OnboardingRecord is one onboarding attempt by a user. It is never deleted;
// PromptsCompleted flips to true once data collection has finished.
type OnboardingRecord struct {
	ID               string    `gorm:"type:text;primaryKey" json:"id"`
	UserID           string    `gorm:"type:text;not null;index" json:"user_id"`
	CompanyName      string    `gorm:"type:text;not null" json:"company_name"`
	Industry         string    `gorm:"type:text;not null" json:"industry"`
	Country          string    `gorm:"type:text" json:"country"`
	JobFunction      string    `gorm:"type:text" json:"job_function,omitempty"`
	SessionID        string    `gorm:"type:text" json:"session_id"`
	ProTier          bool      `gorm:"default:false" json:"pro_tier"`
	PromptsCompleted bool      `gorm:"default:false" json:"prompts_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for OnboardingRecord.
func (OnboardingRecord) TableName() string {
	return "user_onboarding"
}

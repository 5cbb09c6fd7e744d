package domain

import "time"

// PromptResponse is one model's answer to one confirmed prompt. At most one
// row exists per (ConfirmedPromptID, AIModel); the dispatcher checks before
// inserting. Analysis fields stay nil until the analysis step succeeds.
type PromptResponse struct {
	ID                  string       `gorm:"type:text;primaryKey" json:"id"`
	ConfirmedPromptID   string       `gorm:"type:text;not null;index:idx_prompt_responses_pair" json:"confirmed_prompt_id"`
	AIModel             string       `gorm:"type:text;not null;index:idx_prompt_responses_pair" json:"ai_model"`
	CompanyID           string       `gorm:"type:text;index" json:"company_id"`
	ResponseText        string       `gorm:"type:text" json:"response_text"`
	Citations           RawCitations `gorm:"type:text" json:"citations"`
	SentimentScore      *float64     `json:"sentiment_score,omitempty"`
	SentimentLabel      *string      `gorm:"type:text" json:"sentiment_label,omitempty"`
	CompanyMentioned    *bool        `json:"company_mentioned,omitempty"`
	DetectedCompetitors *string      `gorm:"type:text" json:"detected_competitors,omitempty"`
	Themes              StringArray  `gorm:"type:text" json:"themes"`
	TestedAt            time.Time    `json:"tested_at"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// TableName returns the database table name for PromptResponse.
func (PromptResponse) TableName() string {
	return "prompt_responses"
}

package domain

import "time"

// PromptType tags a prompt with the variant that decides how job-function
// and location context are injected into it.
type PromptType string

const (
	PromptExperience         PromptType = "experience"
	PromptDiscovery          PromptType = "discovery"
	PromptCompetitive        PromptType = "competitive"
	PromptInformational      PromptType = "informational"
	PromptTalentXSentiment   PromptType = "talentx_sentiment"
	PromptTalentXCompetitive PromptType = "talentx_competitive"
	PromptTalentXVisibility  PromptType = "talentx_visibility"
)

// IsTalentX reports whether the type belongs to the attribute catalog.
func (t PromptType) IsTalentX() bool {
	switch t {
	case PromptTalentXSentiment, PromptTalentXCompetitive, PromptTalentXVisibility:
		return true
	}
	return false
}

// ConfirmedPrompt is a prompt generated for one onboarding run. Rows are
// immutable once written.
type ConfirmedPrompt struct {
	ID                 string     `gorm:"type:text;primaryKey" json:"id"`
	OnboardingID       string     `gorm:"type:text;index" json:"onboarding_id"`
	UserID             string     `gorm:"type:text" json:"user_id"`
	CompanyID          string     `gorm:"type:text;index" json:"company_id"`
	PromptText         string     `gorm:"type:text;not null" json:"prompt_text"`
	PromptCategory     string     `gorm:"type:text" json:"prompt_category"`
	PromptTheme        string     `gorm:"type:text" json:"prompt_theme"`
	PromptType         PromptType `gorm:"type:text;index" json:"prompt_type"`
	TalentXAttributeID *string    `gorm:"type:text" json:"talentx_attribute_id,omitempty"`
	IndustryContext    string     `gorm:"type:text" json:"industry_context"`
	JobFunctionContext *string    `gorm:"type:text" json:"job_function_context,omitempty"`
	LocationContext    *string    `gorm:"type:text" json:"location_context,omitempty"`
	IsActive           bool       `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TableName returns the database table name for ConfirmedPrompt.
func (ConfirmedPrompt) TableName() string {
	return "confirmed_prompts"
}

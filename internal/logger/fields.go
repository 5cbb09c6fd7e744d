package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a pipeline run.
const (
	FieldRequestID    = "request_id"
	FieldOnboardingID = "onboarding_id"
	FieldCompanyID    = "company_id"
	FieldPromptID     = "prompt_id"
	FieldAIModel      = "ai_model"
	FieldComponent    = "component"
	FieldUserID       = "user_id"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldCompleted  = "completed"
	FieldTotal      = "total"
	FieldSize       = "size"
)

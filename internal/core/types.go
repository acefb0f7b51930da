// Package core provides the domain types and error taxonomy shared by the
// form service's storage, validation, and HTTP layers.
package core

import (
	"encoding/json"
	"time"
)

// Form is a stored form schema. SchemaDefinition, Data, and UserDetails are
// kept as raw JSON documents: the schema's field order is significant for
// validation and must survive storage round trips.
type Form struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	SchemaDefinition json.RawMessage `json:"schema_definition"`
	Data             json.RawMessage `json:"data"`
	UserDetails      json.RawMessage `json:"user_details"`
	CreatedAt        time.Time       `json:"created_at"`
}

// FormCreate is the request body for creating or updating a form.
// SchemaDefinition stays raw so field order is preserved end to end.
type FormCreate struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	SchemaDefinition json.RawMessage `json:"schema_definition"`
	Data             map[string]any  `json:"data"`
	UserDetails      map[string]any  `json:"user_details"`
}

// Submission is a stored form submission. FormName and UserEmail are
// denormalized from the form and payload at creation time.
type Submission struct {
	ID               int64           `json:"id"`
	FormSchemaID     int64           `json:"form_schema_id"`
	FormName         string          `json:"form_name"`
	Data             json.RawMessage `json:"data"`
	UserEmail        string          `json:"user_email"`
	ValidationStatus string          `json:"validation_status"`
	IsDuplicate      bool            `json:"is_duplicate"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SubmissionCreate is the request body for creating a submission.
type SubmissionCreate struct {
	FormSchemaID int64          `json:"form_schema_id"`
	Data         map[string]any `json:"data"`
	UserEmail    string         `json:"user_email,omitempty"`
}

// FormList is the paginated response for listing forms.
type FormList struct {
	Total      int     `json:"total"`
	Skip       int     `json:"skip"`
	Limit      int     `json:"limit"`
	Forms      []*Form `json:"forms"`
	SearchMode string  `json:"search_mode"`
	Sort       string  `json:"sort"`
	Order      string  `json:"order"`
}

// SubmissionList is the page-based response for listing a form's submissions.
type SubmissionList struct {
	FormID      int64         `json:"form_id"`
	FormName    string        `json:"form_name"`
	Total       int           `json:"total"`
	Page        int           `json:"page"`
	Limit       int           `json:"limit"`
	TotalPages  int           `json:"total_pages"`
	HasNext     bool          `json:"has_next"`
	HasPrev     bool          `json:"has_prev"`
	Submissions []*Submission `json:"submissions"`
}

// SubmissionAnalytics summarizes a form's submissions.
type SubmissionAnalytics struct {
	FormID               int64   `json:"form_id"`
	FormName             string  `json:"form_name"`
	TotalSubmissions     int     `json:"total_submissions"`
	UniqueSubmissions    int     `json:"unique_submissions"`
	DuplicateSubmissions int     `json:"duplicate_submissions"`
	DuplicatePercentage  float64 `json:"duplicate_percentage"`
}

// FormStats is the response for the forms stats endpoint.
type FormStats struct {
	TotalForms int  `json:"total_forms"`
	Cached     bool `json:"cached"`
}

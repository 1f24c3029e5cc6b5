package httpapi

import "github.com/scribelabs/scribed/internal/session"

// SubmitRequest is the body for POST /api/v1/sessions.
//
// UploadDir points at an already materialized file set; when it is
// empty or the directory holds nothing, RepoURL is cloned instead.
type SubmitRequest struct {
	RepoURL                string `json:"repo_url"`
	UploadDir              string `json:"upload_dir"`
	TargetAudience         string `json:"target_audience"`
	Tone                   string `json:"tone"`
	AdditionalInstructions string `json:"additional_instructions"`
	Language               string `json:"language"`
}

// SubmitResponse acknowledges a started generation run.
type SubmitResponse struct {
	SessionID string `json:"session_id"`
}

// ProgressResponse carries the full history plus the current status.
type ProgressResponse struct {
	History []session.ProgressEntry `json:"history"`
	Status  string                  `json:"status"`
}

// ArtifactResponse returns one named artifact.
type ArtifactResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// OutlineResponse returns the outline text and whether it parses as the
// structured chapters/sections/items shape.
type OutlineResponse struct {
	Outline string `json:"outline"`
	Valid   bool   `json:"valid"`
}

// OutlineUpdateRequest replaces the outline verbatim with human-edited text.
type OutlineUpdateRequest struct {
	Outline string `json:"outline"`
}

// ArticleResponse returns the article and its truncation flag.
type ArticleResponse struct {
	Article   string `json:"article"`
	Truncated bool   `json:"truncated"`
}

// ArticleUpdateRequest overwrites the article with a human-edited body.
type ArticleUpdateRequest struct {
	Article string `json:"article"`
}

// AckResponse acknowledges an accepted background operation.
type AckResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

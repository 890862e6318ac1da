// Package problem implements RFC 9457 Problem Details objects, the
// canonical error body for the HyperSpot HTTP surface (spec.md §4.8).
package problem

import (
	"encoding/json"
	"net/http"
)

// ContentType is the media type Problem responses are served with.
const ContentType = "application/problem+json"

// SchemaName is the logical name under which the Problem schema is
// registered in the OpenAPI document, exactly once, by this package.
const SchemaName = "Problem"

// ValidationError is one itemized field-level validation failure.
type ValidationError struct {
	Detail  string `json:"detail"`
	Pointer string `json:"pointer"`
}

// Problem is an RFC 9457 Problem Details object.
type Problem struct {
	TypeURL   string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail"`
	Instance  string            `json:"instance,omitempty"`
	Code      string            `json:"code,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// New builds a Problem with the RFC 9457 default type URL "about:blank".
func New(status int, title, detail string) *Problem {
	return &Problem{TypeURL: "about:blank", Title: title, Status: status, Detail: detail}
}

func (p *Problem) WithType(typeURL string) *Problem { p.TypeURL = typeURL; return p }
func (p *Problem) WithInstance(uri string) *Problem { p.Instance = uri; return p }
func (p *Problem) WithCode(code string) *Problem    { p.Code = code; return p }
func (p *Problem) WithRequestID(id string) *Problem { p.RequestID = id; return p }
func (p *Problem) WithErrors(errs []ValidationError) *Problem {
	p.Errors = errs
	return p
}

// Error satisfies the error interface so a *Problem can be returned
// and propagated like any other Go error.
func (p *Problem) Error() string { return p.Title + ": " + p.Detail }

// WriteTo renders p to w with the correct status code and content type.
func (p *Problem) WriteTo(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

// Canonical constructors, per spec.md §4.8: Bad Request (400), Not
// Found (404), Conflict (409), Unprocessable (422), Internal (500).
// The original Rust source lacks the 422 constructor; DESIGN.md
// records why it is added here.

func BadRequest(detail string) *Problem {
	return New(http.StatusBadRequest, "Bad Request", detail)
}

func NotFound(detail string) *Problem {
	return New(http.StatusNotFound, "Not Found", detail)
}

func Conflict(detail string) *Problem {
	return New(http.StatusConflict, "Conflict", detail)
}

func Unprocessable(detail string) *Problem {
	return New(http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

func Internal(detail string) *Problem {
	return New(http.StatusInternalServerError, "Internal Server Error", detail)
}

// Schema returns the JSON-Schema body for Problem, for registration
// under SchemaName via the OpenAPI registry's EnsureSchema.
func Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Problem",
		"properties": map[string]any{
			"type":       map[string]any{"type": "string"},
			"title":      map[string]any{"type": "string"},
			"status":     map[string]any{"type": "integer"},
			"detail":     map[string]any{"type": "string"},
			"instance":   map[string]any{"type": "string"},
			"code":       map[string]any{"type": "string"},
			"request_id": map[string]any{"type": "string"},
			"errors": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"detail":  map[string]any{"type": "string"},
						"pointer": map[string]any{"type": "string"},
					},
				},
			},
		},
		"required": []string{"type", "title", "status", "detail"},
	}
}

// ValidationErrorResponseSchemaName is the schema used by the
// operation builder's With422ValidationError response (StandardErrors'
// own 422 uses the plain Problem schema), distinct from the generic
// Problem schema so that validation errors are always itemized.
const ValidationErrorResponseSchemaName = "ValidationErrorResponse"

// ValidationErrorResponseSchema returns the JSON-Schema body for
// ValidationErrorResponse.
func ValidationErrorResponseSchema() map[string]any {
	s := Schema()
	s["title"] = "ValidationErrorResponse"
	props := s["properties"].(map[string]any)
	req := s["required"].([]string)
	s["required"] = append(req, "errors")
	_ = props
	return s
}

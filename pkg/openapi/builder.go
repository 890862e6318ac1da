package openapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/hyperspot-dev/hyperspot/pkg/problem"
)

// OperationBuilder assembles one OperationRecord. spec.md §4.5
// describes this as a compile-time type-state builder (HandlerPresent
// / ResponsePresent flags). Go has no type-state; per spec.md §9
// design notes, the idiomatic substitute is a single struct with a
// runtime check in Register, which this implements: Register returns
// ErrInvalidBuilder when the handler or first response is missing.
type OperationBuilder struct {
	rec         modkit.OperationRecord
	hasHandler  bool
	hasResponse bool
	err         error
}

// NewOperation starts a builder for method and path. Prefer the Get/
// Post/Put/Delete/Patch convenience constructors below.
func NewOperation(method, path string) *OperationBuilder {
	return &OperationBuilder{
		rec: modkit.OperationRecord{
			Method:      method,
			Path:        path,
			OperationID: defaultOperationID(method, path),
			Responses:   make(map[int]modkit.ResponseSpec),
		},
	}
}

func Get(path string) *OperationBuilder    { return NewOperation(http.MethodGet, path) }
func Post(path string) *OperationBuilder   { return NewOperation(http.MethodPost, path) }
func Put(path string) *OperationBuilder    { return NewOperation(http.MethodPut, path) }
func Delete(path string) *OperationBuilder { return NewOperation(http.MethodDelete, path) }
func Patch(path string) *OperationBuilder  { return NewOperation(http.MethodPatch, path) }

// defaultOperationID mirrors the original's auto-derived handler_id:
// "{method}:{path}" with the method lower-cased, slashes turned into
// underscores, braces dropped, and leading/trailing underscores trimmed
// (GET /users/{id}/orders becomes "get:users_id_orders").
func defaultOperationID(method, path string) string {
	norm := strings.NewReplacer("/", "_", "{", "", "}", "").Replace(path)
	return strings.ToLower(method) + ":" + strings.Trim(norm, "_")
}

// Descriptive methods, available at any stage.

func (b *OperationBuilder) OperationID(id string) *OperationBuilder {
	b.rec.OperationID = id
	return b
}

func (b *OperationBuilder) Summary(s string) *OperationBuilder {
	b.rec.Summary = s
	return b
}

func (b *OperationBuilder) Description(s string) *OperationBuilder {
	b.rec.Description = s
	return b
}

func (b *OperationBuilder) Tag(s string) *OperationBuilder {
	b.rec.Tag = s
	return b
}

func (b *OperationBuilder) PathParam(name, description string) *OperationBuilder {
	b.rec.Params = append(b.rec.Params, modkit.ParamSpec{Name: name, In: "path", Required: true, Description: description})
	return b
}

func (b *OperationBuilder) QueryParam(name string, required bool, description string) *OperationBuilder {
	b.rec.Params = append(b.rec.Params, modkit.ParamSpec{Name: name, In: "query", Required: required, Description: description})
	return b
}

// JSONRequestSchema auto-registers schema under name in registry and
// attaches it as the application/json request body.
func (b *OperationBuilder) JSONRequestSchema(registry modkit.OpenAPIRegistry, name string, schema any, description string) *OperationBuilder {
	ref, err := registry.EnsureSchema(name, schema)
	if err != nil {
		// Surfaced at Register time via the stored error.
		b.err = err
		return b
	}
	b.rec.RequestBody = &modkit.RequestBodySpec{SchemaRef: ref, Description: description}
	return b
}

// Handler attaches f as the operation's HTTP handler. Sets HandlerPresent.
func (b *OperationBuilder) Handler(f http.HandlerFunc) *OperationBuilder {
	b.rec.Handler = f
	b.hasHandler = true
	return b
}

// JSONResponse attaches a schemaless application/json response for status.
func (b *OperationBuilder) JSONResponse(status int, description string) *OperationBuilder {
	b.rec.Responses[status] = modkit.ResponseSpec{ContentType: "application/json", Description: description}
	b.hasResponse = true
	return b
}

// JSONResponseWithSchema auto-registers schema under name and attaches
// it as the application/json response for status.
func (b *OperationBuilder) JSONResponseWithSchema(registry modkit.OpenAPIRegistry, status int, name string, schema any, description string) *OperationBuilder {
	ref, err := registry.EnsureSchema(name, schema)
	if err != nil {
		b.err = err
		return b
	}
	b.rec.Responses[status] = modkit.ResponseSpec{ContentType: "application/json", SchemaRef: ref, Description: description}
	b.hasResponse = true
	return b
}

// ProblemResponse attaches a status response whose content type is
// application/problem+json and whose schema is the canonical Problem
// schema, auto-registering it if not already present.
func (b *OperationBuilder) ProblemResponse(registry modkit.OpenAPIRegistry, status int, description string) *OperationBuilder {
	ref, err := registry.EnsureSchema(problem.SchemaName, problem.Schema())
	if err != nil {
		b.err = err
		return b
	}
	b.rec.Responses[status] = modkit.ResponseSpec{ContentType: problem.ContentType, SchemaRef: ref, Description: description}
	b.hasResponse = true
	return b
}

// StandardErrors bulk-attaches the common error responses via
// ProblemResponse: 400, 401, 403, 404, 409, 422, 429, 500. Ported from
// the original's OperationBuilderODataExt-adjacent convenience, per
// SPEC_FULL.md's supplemented features.
func (b *OperationBuilder) StandardErrors(registry modkit.OpenAPIRegistry) *OperationBuilder {
	codes := map[int]string{
		http.StatusBadRequest:          "Bad Request",
		http.StatusUnauthorized:        "Unauthorized",
		http.StatusForbidden:           "Forbidden",
		http.StatusNotFound:            "Not Found",
		http.StatusConflict:            "Conflict",
		http.StatusUnprocessableEntity: "Unprocessable Entity",
		http.StatusTooManyRequests:     "Too Many Requests",
		http.StatusInternalServerError: "Internal Server Error",
	}
	for code, desc := range codes {
		b.ProblemResponse(registry, code, desc)
	}
	return b
}

// With422ValidationError attaches a 422 response using the dedicated
// ValidationErrorResponse schema instead of the plain Problem schema.
func (b *OperationBuilder) With422ValidationError(registry modkit.OpenAPIRegistry) *OperationBuilder {
	ref, err := registry.EnsureSchema(problem.ValidationErrorResponseSchemaName, problem.ValidationErrorResponseSchema())
	if err != nil {
		b.err = err
		return b
	}
	b.rec.Responses[http.StatusUnprocessableEntity] = modkit.ResponseSpec{
		ContentType: problem.ContentType,
		SchemaRef:   ref,
		Description: "Validation failed",
	}
	b.hasResponse = true
	return b
}

// Register is the terminal method: only valid once a handler and at
// least one response are present. It inserts the operation record
// into registry and appends the route to router, returning router.
func (b *OperationBuilder) Register(router chi.Router, registry modkit.OpenAPIRegistry) (chi.Router, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.hasHandler || !b.hasResponse {
		return nil, fmt.Errorf("%w: operation %s %s", modkit.ErrInvalidBuilder, b.rec.Method, b.rec.Path)
	}
	if err := registry.RegisterOperation(b.rec); err != nil {
		return nil, err
	}
	handler, ok := b.rec.Handler.(http.HandlerFunc)
	if !ok {
		if hf, ok2 := b.rec.Handler.(func(http.ResponseWriter, *http.Request)); ok2 {
			handler = hf
		} else {
			return nil, fmt.Errorf("%w: operation %s %s: handler has unexpected type", modkit.ErrInvalidBuilder, b.rec.Method, b.rec.Path)
		}
	}
	router.Method(b.rec.Method, b.rec.Path, handler)
	return router, nil
}

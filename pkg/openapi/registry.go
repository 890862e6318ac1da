// Package openapi implements the OpenAPI registry and the type-state
// (here: runtime-checked) operation builder described in spec.md §4.5.
package openapi

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/hyperspot-dev/hyperspot/pkg/problem"
)

// opKey uniquely identifies an operation by (method, path), the
// invariant spec.md's data model requires.
type opKey struct {
	method string
	path   string
}

// Registry stores schemas and operations and can emit a compliant
// OpenAPI 3.x document. Mutations (EnsureSchema, RegisterOperation)
// only ever happen during the REST phase, sequentially, per spec.md
// §5; Snapshot may run concurrently with subsequent read traffic once
// the phase ends, so reads and writes are guarded by a single mutex
// sized for that access pattern rather than a lock-free structure —
// contention here is bounded by the one-time REST phase, not request
// volume.
type Registry struct {
	mu         sync.RWMutex
	schemas    map[string]any
	operations map[opKey]modkit.OperationRecord
	order      []opKey // insertion order, for deterministic snapshot output
	title      string
	version    string
	desc       string
}

// NewRegistry returns an empty registry with document-level metadata.
func NewRegistry(title, version, description string) *Registry {
	return &Registry{
		schemas:    make(map[string]any),
		operations: make(map[opKey]modkit.OperationRecord),
		title:      title,
		version:    version,
		desc:       description,
	}
}

// EnsureSchema inserts the schema under name if absent; if present and
// structurally equal to body, it is a no-op; if present and unequal,
// fails with ErrSchemaConflict. Returns the $ref string for the schema.
func (r *Registry) EnsureSchema(name string, body any) (string, error) {
	ref := "#/components/schemas/" + name

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.schemas[name]
	if !ok {
		r.schemas[name] = canonicalize(body)
		return ref, nil
	}
	if reflect.DeepEqual(existing, canonicalize(body)) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: schema %q", modkit.ErrSchemaConflict, name)
}

// canonicalize round-trips body through JSON so structurally
// equivalent Go values (e.g. map[string]any built two different ways)
// compare equal regardless of concrete type or key order.
func canonicalize(body any) any {
	raw, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return body
	}
	return out
}

// RegisterOperation inserts op, failing with ErrDuplicateOperation if
// (op.Method, op.Path) already has an entry.
func (r *Registry) RegisterOperation(op modkit.OperationRecord) error {
	key := opKey{method: op.Method, path: op.Path}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.operations[key]; ok {
		return fmt.Errorf("%w: %s %s", modkit.ErrDuplicateOperation, op.Method, op.Path)
	}
	r.operations[key] = op
	r.order = append(r.order, key)
	return nil
}

// Document is an OpenAPI 3.x document.
type Document struct {
	OpenAPI    string         `json:"openapi"`
	Info       DocInfo        `json:"info"`
	Paths      map[string]any `json:"paths"`
	Components DocComponents  `json:"components"`
}

type DocInfo struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type DocComponents struct {
	Schemas map[string]any `json:"schemas"`
}

// Snapshot produces the current OpenAPI document. It takes a read
// lock and copies what it needs, so it never blocks subsequent
// registrations for longer than the copy itself.
func (r *Registry) Snapshot() Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make(map[string]any)
	for _, key := range r.order {
		op := r.operations[key]
		pathItem, ok := paths[key.path].(map[string]any)
		if !ok {
			pathItem = make(map[string]any)
			paths[key.path] = pathItem
		}
		pathItem[methodLower(key.method)] = operationObject(op)
	}

	schemas := make(map[string]any, len(r.schemas))
	for name, body := range r.schemas {
		schemas[name] = body
	}

	return Document{
		OpenAPI: "3.0.3",
		Info:    DocInfo{Title: r.title, Version: r.version, Description: r.desc},
		Paths:   paths,
		Components: DocComponents{
			Schemas: schemas,
		},
	}
}

func operationObject(op modkit.OperationRecord) map[string]any {
	obj := map[string]any{
		"operationId": op.OperationID,
	}
	if op.Summary != "" {
		obj["summary"] = op.Summary
	}
	if op.Description != "" {
		obj["description"] = op.Description
	}
	if op.Tag != "" {
		obj["tags"] = []string{op.Tag}
	}

	if len(op.Params) > 0 {
		params := make([]map[string]any, 0, len(op.Params))
		for _, p := range op.Params {
			required := p.Required
			if p.In == "path" {
				// Path parameters are always required regardless of the
				// declared flag, matching the original Rust source's
				// build_openapi behavior.
				required = true
			}
			params = append(params, map[string]any{
				"name":        p.Name,
				"in":          p.In,
				"required":    required,
				"description": p.Description,
			})
		}
		obj["parameters"] = params
	}

	if op.RequestBody != nil {
		obj["requestBody"] = map[string]any{
			"description": op.RequestBody.Description,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": op.RequestBody.SchemaRef},
				},
			},
		}
	}

	responses := make(map[string]any, len(op.Responses))
	codes := make([]int, 0, len(op.Responses))
	for code := range op.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		resp := op.Responses[code]
		content := map[string]any{}
		if resp.ContentType != "" {
			schema := map[string]any{}
			if resp.SchemaRef != "" {
				schema["$ref"] = resp.SchemaRef
			}
			content[resp.ContentType] = map[string]any{"schema": schema}
		}
		responses[fmt.Sprintf("%d", code)] = map[string]any{
			"description": resp.Description,
			"content":     content,
		}
	}
	obj["responses"] = responses

	return obj
}

func methodLower(m string) string {
	return strings.ToLower(m)
}

// RegisterProblemSchema registers the Problem schema exactly once
// under problem.SchemaName. Safe to call more than once; the second
// call is a structural no-op via EnsureSchema.
func (r *Registry) RegisterProblemSchema() (string, error) {
	return r.EnsureSchema(problem.SchemaName, problem.Schema())
}

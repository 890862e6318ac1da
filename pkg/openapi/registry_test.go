package openapi

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EnsureSchema_IdempotentOnEqualBody(t *testing.T) {
	r := NewRegistry("t", "v", "")
	body := map[string]any{"type": "string"}

	ref1, err := r.EnsureSchema("Name", body)
	require.NoError(t, err)
	ref2, err := r.EnsureSchema("Name", map[string]any{"type": "string"})
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
}

func TestRegistry_EnsureSchema_ConflictingRedefinitionFails(t *testing.T) {
	r := NewRegistry("t", "v", "")
	_, err := r.EnsureSchema("Name", map[string]any{"type": "string"})
	require.NoError(t, err)

	_, err = r.EnsureSchema("Name", map[string]any{"type": "integer"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, modkit.ErrSchemaConflict))
}

func TestRegistry_RegisterOperation_DuplicateMethodPathFails(t *testing.T) {
	r := NewRegistry("t", "v", "")
	op := modkit.OperationRecord{Method: http.MethodGet, Path: "/users", Responses: map[int]modkit.ResponseSpec{200: {}}}

	require.NoError(t, r.RegisterOperation(op))
	err := r.RegisterOperation(op)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modkit.ErrDuplicateOperation))
}

func TestRegistry_Snapshot_ContainsRegisteredOperationsAndSchemas(t *testing.T) {
	r := NewRegistry("HyperSpot API", "0.1.0", "")
	var router chi.Router = chi.NewRouter()

	var err error
	router, err = Get("/health-check").
		Handler(func(w http.ResponseWriter, req *http.Request) {}).
		JSONResponse(http.StatusOK, "ok").
		ProblemResponse(r, http.StatusNotFound, "not found").
		Register(router, r)
	require.NoError(t, err)

	doc := r.Snapshot()
	assert.Equal(t, "3.0.3", doc.OpenAPI)

	path, ok := doc.Paths["/health-check"].(map[string]any)
	require.True(t, ok)
	get, ok := path["get"].(map[string]any)
	require.True(t, ok)

	responses := get["responses"].(map[string]any)
	assert.Contains(t, responses, "200")
	resp404 := responses["404"].(map[string]any)
	content := resp404["content"].(map[string]any)
	_, hasProblem := content["application/problem+json"]
	assert.True(t, hasProblem)

	assert.Contains(t, doc.Components.Schemas, "Problem")
}

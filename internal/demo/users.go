// Package demo provides a minimal example business module exercising
// the REST capability end to end, loosely inspired by
// original_source/modules/users_info (itself out of spec.md's scope
// as a business module, but useful here to demonstrate the full
// init -> register_rest -> serve pipeline against a real handler).
package demo

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/hyperspot-dev/hyperspot/pkg/openapi"
	"github.com/hyperspot-dev/hyperspot/pkg/problem"
)

// UsersModuleName is the descriptor name for the users module.
const UsersModuleName = "users"

// User is the resource this demo module exposes.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UsersModule is a CORE+REST module backed by an in-memory store.
type UsersModule struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewUsersModule constructs the module.
func NewUsersModule() modkit.Module {
	return &UsersModule{users: make(map[string]User)}
}

func (m *UsersModule) Name() string { return UsersModuleName }

func (m *UsersModule) Init(ctx *modkit.ModuleCtx) error {
	return nil
}

// RegisterREST wires GET/POST /users onto router via the operation
// builder, exercising schema registration, standard error responses,
// and the handler/response runtime checks.
func (m *UsersModule) RegisterREST(ctx *modkit.ModuleCtx, router chi.Router, registry modkit.OpenAPIRegistry) (chi.Router, error) {
	userSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
		},
		"required": []string{"id", "name"},
	}

	var err error
	router, err = openapi.Get("/users").
		OperationID("users.list").
		Summary("List users").
		Tag("users").
		Handler(m.listUsers).
		JSONResponseWithSchema(registry, http.StatusOK, "User", userSchema, "A user").
		StandardErrors(registry).
		Register(router, registry)
	if err != nil {
		return nil, err
	}

	router, err = openapi.Post("/users").
		OperationID("users.create").
		Summary("Create a user").
		Tag("users").
		JSONRequestSchema(registry, "User", userSchema, "New user").
		Handler(m.createUser).
		JSONResponseWithSchema(registry, http.StatusCreated, "User", userSchema, "Created user").
		With422ValidationError(registry).
		Register(router, registry)
	if err != nil {
		return nil, err
	}

	return router, nil
}

func (m *UsersModule) listUsers(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, u)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (m *UsersModule) createUser(w http.ResponseWriter, r *http.Request) {
	var u User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		_ = problem.BadRequest("invalid JSON body").WriteTo(w)
		return
	}
	if u.ID == "" || u.Name == "" {
		_ = problem.Unprocessable("id and name are required").WriteTo(w)
		return
	}

	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(u)
}

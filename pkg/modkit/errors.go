package modkit

import "errors"

// Registry/build errors
var (
	ErrDescriptorConflict = errors.New("descriptor conflict: duplicate name, unknown dependency, or dependency cycle")
	ErrUnknownDependency  = errors.New("module depends on an unregistered module")
	ErrMultipleRestHosts  = errors.New("more than one REST_HOST module registered")
	ErrMissingRestHost    = errors.New("REST-capable module registered but no REST_HOST module present")
)

// Phase errors
var (
	ErrInvalidConfig    = errors.New("module config deserialization failed")
	ErrDatabaseRequired = errors.New("database-capable module has no database handle")
	ErrMigrationFailed  = errors.New("database migration failed")
)

// OpenAPI registry errors
var (
	ErrDuplicateOperation = errors.New("duplicate operation: method and path already registered")
	ErrSchemaConflict     = errors.New("schema conflict: redefinition is not structurally equal")
	ErrInvalidBuilder     = errors.New("operation builder incomplete: handler or response missing")
)

// Client hub errors
var (
	ErrAlreadyPublished = errors.New("client already published for this scope and interface")
	ErrNotPublished     = errors.New("no client published for this scope and interface")
)

// Lifecycle errors
var (
	ErrInvalidState = errors.New("lifecycle operation invalid in current state")
)

// Ingress errors
var (
	ErrBindFailure = errors.New("ingress failed to bind its listener address")
)

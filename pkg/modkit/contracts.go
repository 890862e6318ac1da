package modkit

import "github.com/go-chi/chi/v5"

// Capability is a role a module fulfils. A module descriptor declares
// a subset of these; the registry type-asserts the constructed
// instance against the corresponding Go interface for each declared
// capability, the way the teacher's module.go segregates
// Configurable/DependencyAware/ServiceAware/Startable/Stoppable into
// independent single-method interfaces rather than one fat interface.
type Capability string

const (
	CapCore     Capability = "CORE"
	CapDatabase Capability = "DATABASE"
	CapREST     Capability = "REST"
	CapRESTHost Capability = "REST_HOST"
	CapStateful Capability = "STATEFUL"
)

// Module is the capability every descriptor's instance supports:
// one-time, DI-style wiring. Implementations must not assume migrated
// schema is available here.
type Module interface {
	Name() string
	Init(ctx *ModuleCtx) error
}

// DatabaseModule is implemented by DATABASE-capable modules. Migrate
// runs after Init, before REST registration or Start.
type DatabaseModule interface {
	Migrate(handle DBHandle) error
}

// RESTModule is implemented by REST-capable modules. Registration is
// pure wiring and must be synchronous; it runs after all migrations.
type RESTModule interface {
	RegisterREST(ctx *ModuleCtx, router chi.Router, registry OpenAPIRegistry) (chi.Router, error)
}

// RESTHostModule is implemented by the single REST_HOST module (the
// ingress). Prepare/Finalize bracket every RESTModule's
// RegisterREST call during the REST phase; the host does not start
// serving until the Start phase.
type RESTHostModule interface {
	RESTPrepare(ctx *ModuleCtx, router chi.Router) (chi.Router, error)
	RESTFinalize(ctx *ModuleCtx, router chi.Router) (chi.Router, error)
	AsRegistry() OpenAPIRegistry
}

// StatefulModule is implemented by STATEFUL-capable modules, either
// hand-written or synthesized by WithLifecycle from a Runnable.
type StatefulModule interface {
	Start(cancel Token) error
	Stop(cancel Token) error
}

// OpenAPIRegistry is implemented by pkg/openapi.Registry; declared
// here (rather than imported) so pkg/modkit has no dependency on
// pkg/openapi, avoiding an import cycle since the operation builder
// needs the contracts defined in this file.
type OpenAPIRegistry interface {
	EnsureSchema(name string, body any) (string, error)
	RegisterOperation(op OperationRecord) error
}

// OperationRecord is the in-memory description of a single HTTP route
// and its OpenAPI contribution, per spec.md's Operation record.
type OperationRecord struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Tag         string
	Params      []ParamSpec
	RequestBody *RequestBodySpec
	Responses   map[int]ResponseSpec
	Handler     any // http.HandlerFunc, kept as any to avoid importing net/http here
}

// ParamSpec describes one path or query parameter.
type ParamSpec struct {
	Name        string
	In          string // "path" or "query"
	Required    bool
	Description string
}

// RequestBodySpec describes the request body schema reference.
type RequestBodySpec struct {
	SchemaRef   string
	Description string
}

// ResponseSpec describes one status code's response.
type ResponseSpec struct {
	ContentType string
	SchemaRef   string
	Description string
}

// DBHandle is the narrow surface the core needs from the external
// database collaborator: just enough for DatabaseModule.Migrate to
// run something against it. The concrete handle type is the
// collaborator's concern; the core only needs identity and liveness.
type DBHandle interface {
	Ping() error
}

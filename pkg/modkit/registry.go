package modkit

import (
	"fmt"
	"sort"

	"github.com/go-chi/chi/v5"
)

// Descriptor is the static, link-time registration record for one
// module: name, dependency names, declared capability set, and a
// constructor. Per spec.md's data model, descriptors are immutable
// once registered.
type Descriptor struct {
	Name string
	Deps []string
	Caps []Capability
	New  func() Module
}

func (d Descriptor) hasCap(c Capability) bool {
	for _, cap := range d.Caps {
		if cap == c {
			return true
		}
	}
	return false
}

// entry is the resolved, constructed form of a Descriptor: the
// capability interfaces the constructed instance actually implements,
// cross-checked against the declared capability set.
type entry struct {
	desc     Descriptor
	core     Module
	db       DatabaseModule
	rest     RESTModule
	restHost RESTHostModule
	stateful StatefulModule
}

// RegistryBuilder collects descriptors before the dependency graph is
// resolved. There is no global, process-wide link-time collection in
// Go the way Rust's inventory::submit!/collect! works; per spec.md §9
// design notes, the portable equivalent is an explicit list the
// application builds and passes to the orchestrator. Register is that
// explicit list's single insertion point.
type RegistryBuilder struct {
	descriptors map[string]Descriptor
	names       []string // insertion order, for a stable duplicate-name error
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{descriptors: make(map[string]Descriptor)}
}

// Register adds one descriptor. Fails with ErrDescriptorConflict if
// the name is already registered.
func (b *RegistryBuilder) Register(d Descriptor) error {
	if _, ok := b.descriptors[d.Name]; ok {
		return fmt.Errorf("%w: duplicate module name %q", ErrDescriptorConflict, d.Name)
	}
	b.descriptors[d.Name] = d
	b.names = append(b.names, d.Name)
	return nil
}

// Build validates the graph (unique names already enforced by
// Register; unknown dependencies; at most one REST_HOST; REST
// implicitly depends on REST_HOST), computes a deterministic
// topological order, constructs every instance, and returns the
// resolved Registry.
func (b *RegistryBuilder) Build(logger Logger) (*Registry, error) {
	if logger == nil {
		logger = NewNoopLogger()
	}

	var restHost string
	restHostCount := 0
	for _, name := range b.names {
		d := b.descriptors[name]
		if d.hasCap(CapRESTHost) {
			restHost = name
			restHostCount++
		}
	}
	if restHostCount > 1 {
		return nil, fmt.Errorf("%w: multiple REST_HOST modules", ErrMultipleRestHosts)
	}

	// Build adjacency with implicit REST -> REST_HOST edges.
	graph := make(map[string][]string, len(b.names))
	indegree := make(map[string]int, len(b.names))
	for _, name := range b.names {
		graph[name] = nil
		indegree[name] = 0
	}
	for _, name := range b.names {
		d := b.descriptors[name]
		deps := append([]string(nil), d.Deps...)
		if d.hasCap(CapREST) && restHost != "" && restHost != name {
			deps = append(deps, restHost)
		}
		for _, dep := range deps {
			if _, ok := b.descriptors[dep]; !ok {
				return nil, fmt.Errorf("%w: %w: module %q depends on unregistered module %q", ErrDescriptorConflict, ErrUnknownDependency, name, dep)
			}
			graph[dep] = append(graph[dep], name)
			indegree[name]++
		}
	}
	if restHost == "" {
		for _, name := range b.names {
			if b.descriptors[name].hasCap(CapREST) {
				return nil, fmt.Errorf("%w: module %q is REST-capable but no REST_HOST module is registered", ErrMissingRestHost, name)
			}
		}
	}

	order, err := topoSort(b.names, graph, indegree)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]*entry, len(order))
	for _, name := range order {
		d := b.descriptors[name]
		inst := d.New()
		e := &entry{desc: d, core: inst}
		if d.hasCap(CapDatabase) {
			dbMod, ok := inst.(DatabaseModule)
			if !ok {
				return nil, fmt.Errorf("%w: module %q declares DATABASE but does not implement DatabaseModule", ErrDescriptorConflict, name)
			}
			e.db = dbMod
		}
		if d.hasCap(CapREST) {
			restMod, ok := inst.(RESTModule)
			if !ok {
				return nil, fmt.Errorf("%w: module %q declares REST but does not implement RESTModule", ErrDescriptorConflict, name)
			}
			e.rest = restMod
		}
		if d.hasCap(CapRESTHost) {
			hostMod, ok := inst.(RESTHostModule)
			if !ok {
				return nil, fmt.Errorf("%w: module %q declares REST_HOST but does not implement RESTHostModule", ErrDescriptorConflict, name)
			}
			e.restHost = hostMod
		}
		if d.hasCap(CapStateful) {
			statefulMod, ok := inst.(StatefulModule)
			if !ok {
				return nil, fmt.Errorf("%w: module %q declares STATEFUL but does not implement StatefulModule", ErrDescriptorConflict, name)
			}
			e.stateful = statefulMod
		}
		entries[name] = e
	}

	return &Registry{order: order, entries: entries, restHostName: restHost, logger: logger}, nil
}

// topoSort computes a dependency-respecting order of names using
// Kahn's algorithm, breaking ties among simultaneously-ready nodes by
// name so the result is deterministic regardless of map iteration
// order. Neither grounding source (the Rust original's registry.rs
// nor the teacher's DFS-based resolveDependencies) does this tie
// break; spec.md §4.4 requires it explicitly.
func topoSort(names []string, graph map[string][]string, indegree map[string]int) ([]string, error) {
	remaining := make(map[string]int, len(indegree))
	for k, v := range indegree {
		remaining[k] = v
	}

	var ready []string
	for _, n := range names {
		if remaining[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var nextReady []string
		for _, m := range graph[n] {
			remaining[m]--
			if remaining[m] == 0 {
				nextReady = append(nextReady, m)
			}
		}
		sort.Strings(nextReady)
		ready = append(ready, nextReady...)
	}

	if len(order) != len(names) {
		return nil, fmt.Errorf("%w: dependency cycle detected", ErrDescriptorConflict)
	}
	return order, nil
}

// Registry holds the dependency-ordered, constructed module set and
// drives it through the Init/Migrate/REST/Start/Stop phases.
type Registry struct {
	order        []string
	entries      map[string]*entry
	restHostName string
	logger       Logger

	started []string // names successfully started, for reverse-order stop
}

// Order returns the topological init order (stop order is its reverse).
func (r *Registry) Order() []string {
	return append([]string(nil), r.order...)
}

// Module returns the constructed instance for name, if present.
func (r *Registry) Module(name string) Module {
	if e, ok := r.entries[name]; ok {
		return e.core
	}
	return nil
}

// RunInit invokes Init on every module in topological order.
func (r *Registry) RunInit(base *ModuleCtx) error {
	for _, name := range r.order {
		e := r.entries[name]
		ctx := base.ForModule(name)
		if err := e.core.Init(ctx); err != nil {
			return fmt.Errorf("init phase: module %q: %w", name, err)
		}
	}
	return nil
}

// RunMigrate invokes Migrate(handle) on every DATABASE-capable module
// in topological order, per spec.md §4.4 step 2 (grounded on
// registry.rs's run_db_phase, not runner.rs's DbManager-skip path —
// see SPEC_FULL.md's resolved divergences).
func (r *Registry) RunMigrate(handle DBHandle) error {
	for _, name := range r.order {
		e := r.entries[name]
		if e.db == nil {
			continue
		}
		if err := e.db.Migrate(handle); err != nil {
			return fmt.Errorf("%w: module %q: %v", ErrMigrationFailed, name, err)
		}
	}
	return nil
}

// RunREST composes the ingress router: REST_HOST.RESTPrepare, then
// every REST-capable module's RegisterREST in topological order
// (replacing the router each time), then REST_HOST.RESTFinalize.
func (r *Registry) RunREST(base *ModuleCtx, router chi.Router) (chi.Router, error) {
	if r.restHostName == "" {
		return router, nil
	}
	host := r.entries[r.restHostName]
	hostCtx := base.ForModule(r.restHostName)

	var err error
	router, err = host.restHost.RESTPrepare(hostCtx, router)
	if err != nil {
		return nil, fmt.Errorf("rest phase: host %q prepare: %w", r.restHostName, err)
	}

	registry := host.restHost.AsRegistry()
	for _, name := range r.order {
		e := r.entries[name]
		if e.rest == nil {
			continue
		}
		ctx := base.ForModule(name)
		router, err = e.rest.RegisterREST(ctx, router, registry)
		if err != nil {
			return nil, fmt.Errorf("rest phase: module %q: %w", name, err)
		}
	}

	router, err = host.restHost.RESTFinalize(hostCtx, router)
	if err != nil {
		return nil, fmt.Errorf("rest phase: host %q finalize: %w", r.restHostName, err)
	}
	return router, nil
}

// RunStart invokes Start(cancel) on every STATEFUL-capable module in
// topological order. On failure, already-started modules are stopped
// in reverse order before the error is returned.
func (r *Registry) RunStart(cancel Token) error {
	for _, name := range r.order {
		e := r.entries[name]
		if e.stateful == nil {
			continue
		}
		if err := e.stateful.Start(cancel); err != nil {
			r.rollbackStarted(cancel)
			return fmt.Errorf("start phase: module %q: %w", name, err)
		}
		r.started = append(r.started, name)
	}
	return nil
}

func (r *Registry) rollbackStarted(cancel Token) {
	for i := len(r.started) - 1; i >= 0; i-- {
		name := r.started[i]
		e := r.entries[name]
		if e.stateful == nil {
			continue
		}
		if err := e.stateful.Stop(cancel); err != nil {
			r.logger.Warn("rollback stop failed", "module", name, "error", err)
		}
	}
	r.started = nil
}

// RunStop invokes Stop(cancel) on every started STATEFUL-capable
// module in the exact reverse of start order. If no module is recorded
// as started (RunStart was not called, started nothing, or rolled
// back), it instead calls Stop on every STATEFUL-capable module in
// reverse topological order. Individual failures are logged, never
// abort the phase.
func (r *Registry) RunStop(cancel Token) {
	started := r.started
	if started == nil {
		started = r.order
	}
	for i := len(started) - 1; i >= 0; i-- {
		name := started[i]
		e := r.entries[name]
		if e.stateful == nil {
			continue
		}
		if err := e.stateful.Stop(cancel); err != nil {
			r.logger.Warn("stop phase: module failed", "module", name, "error", err)
		}
	}
	r.started = nil
}

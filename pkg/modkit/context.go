package modkit

import (
	"encoding/json"
	"fmt"
)

// ConfigProvider exposes raw JSON config sections by module name, per
// spec.md §4.7/§6: `modules.<name>` raw JSON passed to each module via
// module_config[T](). Loading, file formats, and env overlay are the
// collaborator's concern (see pkg/config); this interface is the only
// contract the core depends on.
type ConfigProvider interface {
	// ModuleConfig returns the raw JSON section for name, or nil if absent.
	ModuleConfig(name string) json.RawMessage
}

// ModuleCtx is the per-module runtime handle described in spec.md's
// data model: module name, optional database handle, config provider,
// shared client hub, and a cancellation token derived from the root.
type ModuleCtx struct {
	moduleName string
	db         DBHandle
	config     ConfigProvider
	hub        *ClientHub
	cancel     Token
	logger     Logger
}

// NewRootModuleCtx builds the base context shared across all phases;
// ForModule derives a per-module view from it the way registry.rs's
// for_module scopes a clone to a specific module name without
// re-allocating the hub/config provider.
func NewRootModuleCtx(hub *ClientHub, config ConfigProvider, db DBHandle, cancel Token, logger Logger) *ModuleCtx {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &ModuleCtx{db: db, config: config, hub: hub, cancel: cancel, logger: logger}
}

// ForModule returns a copy of the base context scoped to moduleName,
// with its own child cancellation token.
func (c *ModuleCtx) ForModule(moduleName string) *ModuleCtx {
	scoped := *c
	scoped.moduleName = moduleName
	scoped.cancel = c.cancel.Child()
	return &scoped
}

// ModuleName returns the descriptor name this context is scoped to.
func (c *ModuleCtx) ModuleName() string { return c.moduleName }

// ClientHub returns the process-wide client hub.
func (c *ModuleCtx) ClientHub() *ClientHub { return c.hub }

// CancelToken returns this module's cancellation token, a child of the root.
func (c *ModuleCtx) CancelToken() Token { return c.cancel }

// Logger returns the module's logger.
func (c *ModuleCtx) Logger() Logger { return c.logger }

// DB returns the shared database handle, or nil if none is configured.
func (c *ModuleCtx) DB() DBHandle { return c.db }

// DBRequired returns the shared database handle, failing with
// ErrDatabaseRequired if none is configured.
func (c *ModuleCtx) DBRequired() (DBHandle, error) {
	if c.db == nil {
		return nil, fmt.Errorf("%w: module %q", ErrDatabaseRequired, c.moduleName)
	}
	return c.db, nil
}

// Config deserializes the raw JSON section at modules.<name> into out.
// If the section is absent, out is left unchanged, so values set in out
// beforehand act as defaults. Fails with
// ErrInvalidConfig on deserialization error.
func (c *ModuleCtx) Config(out any) error {
	if c.config == nil {
		return nil
	}
	raw := c.config.ModuleConfig(c.moduleName)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: module %q: %v", ErrInvalidConfig, c.moduleName, err)
	}
	return nil
}

// RawConfig returns the raw JSON section for this module, or nil.
func (c *ModuleCtx) RawConfig() json.RawMessage {
	if c.config == nil {
		return nil
	}
	return c.config.ModuleConfig(c.moduleName)
}

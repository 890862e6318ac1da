package modkit

import (
	"errors"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModule struct {
	name        string
	initOrder   *[]string
	startOrder  *[]string
	stopOrder   *[]string
	startErr    error
}

func (m *recordingModule) Name() string { return m.name }

func (m *recordingModule) Init(ctx *ModuleCtx) error {
	*m.initOrder = append(*m.initOrder, m.name)
	return nil
}

func (m *recordingModule) Start(cancel Token) error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.startOrder = append(*m.startOrder, m.name)
	return nil
}

func (m *recordingModule) Stop(cancel Token) error {
	*m.stopOrder = append(*m.stopOrder, m.name)
	return nil
}

// TestRegistry_S1_InitOrderAndReverseStopOrder is the spec's S1
// scenario: A, B depends on A, C depends on B. Init order is exactly
// [A, B, C]; stop order is exactly [C, B, A].
func TestRegistry_S1_InitOrderAndReverseStopOrder(t *testing.T) {
	var initOrder, startOrder, stopOrder []string

	builder := NewRegistryBuilder()
	for _, d := range []Descriptor{
		{Name: "C", Deps: []string{"B"}, Caps: []Capability{CapCore, CapStateful}},
		{Name: "A", Deps: nil, Caps: []Capability{CapCore, CapStateful}},
		{Name: "B", Deps: []string{"A"}, Caps: []Capability{CapCore, CapStateful}},
	} {
		d := d
		d.New = func() Module {
			return &recordingModule{name: d.Name, initOrder: &initOrder, startOrder: &startOrder, stopOrder: &stopOrder}
		}
		require.NoError(t, builder.Register(d))
	}

	registry, err := builder.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, registry.Order())

	base := NewRootModuleCtx(NewClientHub(), nil, nil, NewToken(), nil)
	require.NoError(t, registry.RunInit(base))
	assert.Equal(t, []string{"A", "B", "C"}, initOrder)

	cancel := NewToken()
	require.NoError(t, registry.RunStart(cancel))
	assert.Equal(t, []string{"A", "B", "C"}, startOrder)

	registry.RunStop(cancel)
	assert.Equal(t, []string{"C", "B", "A"}, stopOrder)
}

// TestRegistry_TopoSortBreaksTiesByName asserts that independent
// modules (no dependency relationship) are still ordered
// deterministically by name, which neither grounding source does
// literally.
func TestRegistry_TopoSortBreaksTiesByName(t *testing.T) {
	builder := NewRegistryBuilder()
	for _, name := range []string{"zebra", "mango", "apple", "kiwi"} {
		require.NoError(t, builder.Register(Descriptor{
			Name: name,
			Caps: []Capability{CapCore},
			New:  func() Module { return &recordingModule{name: name, initOrder: &[]string{}} },
		}))
	}

	registry, err := builder.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "kiwi", "mango", "zebra"}, registry.Order())
}

func TestRegistry_DuplicateNameFailsWithDescriptorConflict(t *testing.T) {
	builder := NewRegistryBuilder()
	require.NoError(t, builder.Register(Descriptor{Name: "a", Caps: []Capability{CapCore}, New: func() Module { return &recordingModule{name: "a", initOrder: &[]string{}} }}))
	err := builder.Register(Descriptor{Name: "a", Caps: []Capability{CapCore}, New: func() Module { return &recordingModule{name: "a", initOrder: &[]string{}} }})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDescriptorConflict))
}

func TestRegistry_UnknownDependencyFails(t *testing.T) {
	builder := NewRegistryBuilder()
	require.NoError(t, builder.Register(Descriptor{
		Name: "a", Deps: []string{"ghost"}, Caps: []Capability{CapCore},
		New: func() Module { return &recordingModule{name: "a", initOrder: &[]string{}} },
	}))
	_, err := builder.Build(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDependency))
}

func TestRegistry_CycleFailsWithDescriptorConflict(t *testing.T) {
	builder := NewRegistryBuilder()
	require.NoError(t, builder.Register(Descriptor{Name: "a", Deps: []string{"b"}, Caps: []Capability{CapCore}, New: func() Module { return &recordingModule{name: "a", initOrder: &[]string{}} }}))
	require.NoError(t, builder.Register(Descriptor{Name: "b", Deps: []string{"a"}, Caps: []Capability{CapCore}, New: func() Module { return &recordingModule{name: "b", initOrder: &[]string{}} }}))
	_, err := builder.Build(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDescriptorConflict))
}

type restHostStub struct {
	recordingModule
	registry OpenAPIRegistry
}

func (h *restHostStub) RESTPrepare(ctx *ModuleCtx, router chi.Router) (chi.Router, error) {
	return router, nil
}
func (h *restHostStub) RESTFinalize(ctx *ModuleCtx, router chi.Router) (chi.Router, error) {
	return router, nil
}
func (h *restHostStub) AsRegistry() OpenAPIRegistry { return h.registry }

func TestRegistry_MultipleRestHostsFails(t *testing.T) {
	builder := NewRegistryBuilder()
	for _, name := range []string{"host1", "host2"} {
		name := name
		require.NoError(t, builder.Register(Descriptor{
			Name: name,
			Caps: []Capability{CapCore, CapRESTHost},
			New:  func() Module { return &restHostStub{recordingModule: recordingModule{name: name, initOrder: &[]string{}}} },
		}))
	}
	_, err := builder.Build(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMultipleRestHosts))
}

func TestRegistry_RestCapableWithoutHostFails(t *testing.T) {
	builder := NewRegistryBuilder()
	require.NoError(t, builder.Register(Descriptor{
		Name: "rest-only",
		Caps: []Capability{CapCore, CapREST},
		New:  func() Module { return &restOnlyStub{recordingModule: recordingModule{name: "rest-only", initOrder: &[]string{}}} },
	}))
	_, err := builder.Build(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRestHost))
}

type restOnlyStub struct {
	recordingModule
}

func (r *restOnlyStub) RegisterREST(ctx *ModuleCtx, router chi.Router, registry OpenAPIRegistry) (chi.Router, error) {
	return router, nil
}

// TestRegistry_StartFailureRollsBackReverseOrder covers the failure
// path where a later module's Start fails and already-started
// modules must be stopped in reverse order.
func TestRegistry_StartFailureRollsBackReverseOrder(t *testing.T) {
	var startOrder, stopOrder []string
	boom := errors.New("boom")

	builder := NewRegistryBuilder()
	require.NoError(t, builder.Register(Descriptor{
		Name: "A", Caps: []Capability{CapCore, CapStateful},
		New: func() Module {
			return &recordingModule{name: "A", initOrder: &[]string{}, startOrder: &startOrder, stopOrder: &stopOrder}
		},
	}))
	require.NoError(t, builder.Register(Descriptor{
		Name: "B", Deps: []string{"A"}, Caps: []Capability{CapCore, CapStateful},
		New: func() Module {
			return &recordingModule{name: "B", initOrder: &[]string{}, startOrder: &startOrder, stopOrder: &stopOrder, startErr: boom}
		},
	}))

	registry, err := builder.Build(nil)
	require.NoError(t, err)

	cancel := NewToken()
	err = registry.RunStart(cancel)
	require.Error(t, err)
	assert.Equal(t, []string{"A"}, startOrder)
	assert.Equal(t, []string{"A"}, stopOrder)
}

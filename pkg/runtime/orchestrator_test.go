package runtime

import (
	"net/http"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hyperspot-dev/hyperspot/pkg/modkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderRecordingModule struct {
	name    string
	deps    []string
	order   *[]string
	migrate bool
}

func (m *orderRecordingModule) Name() string { return m.name }

func (m *orderRecordingModule) Init(ctx *modkit.ModuleCtx) error {
	*m.order = append(*m.order, m.name)
	return nil
}

func (m *orderRecordingModule) Migrate(handle modkit.DBHandle) error {
	m.migrate = true
	return nil
}

type pingDB struct{}

func (pingDB) Ping() error { return nil }

// TestRun_S1InitOrderS3MigratePhaseAndS5GracefulStop exercises the
// whole Run() pipeline end to end against an injected shutdown token:
// dependency-ordered init, Migrate only on the DATABASE-capable
// module, and a clean return once the token is cancelled.
func TestRun_S1InitOrderS3MigratePhaseAndS5GracefulStop(t *testing.T) {
	var order []string
	a := &orderRecordingModule{name: "a", order: &order}
	b := &orderRecordingModule{name: "b", deps: []string{"a"}, order: &order}

	builder := modkit.NewRegistryBuilder()
	require.NoError(t, builder.Register(modkit.Descriptor{
		Name: "a", Caps: []modkit.Capability{modkit.CapCore, modkit.CapDatabase},
		New: func() modkit.Module { return a },
	}))
	require.NoError(t, builder.Register(modkit.Descriptor{
		Name: "b", Deps: []string{"a"}, Caps: []modkit.Capability{modkit.CapCore},
		New: func() modkit.Module { return b },
	}))

	token := modkit.NewToken()
	var events []string
	done := make(chan error, 1)
	go func() {
		done <- Run(Options{
			Builder:       builder,
			DB:            pingDB{},
			ShutdownToken: &token,
			Events:        EventSinkFunc(func(e cloudevents.Event) { events = append(events, e.Type()) }),
		})
	}()

	require.Eventually(t, func() bool { return len(order) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.True(t, a.migrate)
	assert.False(t, b.migrate, "b does not declare the database capability")

	token.Cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after shutdown token was cancelled")
	}
}

func TestRun_FailingBuildReturnsErrorImmediately(t *testing.T) {
	builder := modkit.NewRegistryBuilder()
	require.NoError(t, builder.Register(modkit.Descriptor{
		Name: "a", Deps: []string{"missing"}, Caps: []modkit.Capability{modkit.CapCore},
		New: func() modkit.Module { return &orderRecordingModule{name: "a", order: &[]string{}} },
	}))

	token := modkit.NewToken()
	err := Run(Options{Builder: builder, ShutdownToken: &token})
	require.Error(t, err)
}

func TestNewPhaseEvent_SetsTypeAndJSONData(t *testing.T) {
	ev := newPhaseEvent("start")
	assert.Equal(t, "com.hyperspot.runtime.phase.start", ev.Type())
	assert.Equal(t, "hyperspot/runtime", ev.Source())
	assert.NotEmpty(t, ev.ID())
}

func TestRunREST_WithoutRestHostReturnsUsableRouter(t *testing.T) {
	// Checks that the REST phase of a registry with no REST_HOST
	// module hands back a usable router.
	builder := modkit.NewRegistryBuilder()
	require.NoError(t, builder.Register(modkit.Descriptor{
		Name: "r", Caps: []modkit.Capability{modkit.CapCore},
		New: func() modkit.Module { return &orderRecordingModule{name: "r", order: &[]string{}} },
	}))
	registry, err := builder.Build(modkit.NewNoopLogger())
	require.NoError(t, err)
	router, err := registry.RunREST(modkit.NewRootModuleCtx(modkit.NewClientHub(), nil, nil, modkit.NewToken(), nil), chi.NewRouter())
	require.NoError(t, err)
	assert.NotNil(t, router)
	assert.Implements(t, (*http.Handler)(nil), router)
}

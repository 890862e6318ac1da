package runtime

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// EventSink receives one CloudEvent per phase transition. This
// generalizes the teacher's observer_cloudevents.go helpers (event
// construction, ID generation) from per-module health events to
// whole-phase lifecycle events; spec.md's own design notes call
// tracing/observability an "observable-but-not-specified" concern the
// core may expose as a no-op hook, so EventSink defaults to nil.
type EventSink interface {
	Emit(event cloudevents.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(cloudevents.Event)

func (f EventSinkFunc) Emit(event cloudevents.Event) { f(event) }

// newPhaseEvent builds a CloudEvent for a completed orchestrator
// phase, mirroring the teacher's NewCloudEvent convenience.
func newPhaseEvent(phase string) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource("hyperspot/runtime")
	event.SetType("com.hyperspot.runtime.phase." + phase)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	_ = event.SetData(cloudevents.ApplicationJSON, map[string]string{"phase": phase})
	return event
}

// generateEventID mirrors the teacher's UUIDv7-with-v4-fallback ID
// generation for CloudEvents.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

func emitPhase(sink EventSink, phase string) {
	if sink == nil {
		return
	}
	sink.Emit(newPhaseEvent(phase))
}

package events

import (
	"github.com/rs/zerolog/log"
)

// Emitter delivers audit events. Implementations must not block the
// caller on external I/O.
type Emitter interface {
	Emit(event AuditEvent)
}

// LogEmitter writes events to the process logger. Always available;
// the default sink when no external transport is configured.
type LogEmitter struct{}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

func (e *LogEmitter) Emit(event AuditEvent) {
	log.Info().
		Str("kind", event.Kind).
		Str("record_id", event.RecordID).
		Str("manifest_id", event.ManifestID).
		Str("route", event.Route).
		Str("action", event.Action).
		Str("verdict", event.Verdict).
		Bool("anchored", event.Anchored).
		Msg("audit event")
}

// NopEmitter drops every event. Used when auditing is disabled outright.
type NopEmitter struct{}

func NewNopEmitter() *NopEmitter {
	return &NopEmitter{}
}

func (e *NopEmitter) Emit(AuditEvent) {}

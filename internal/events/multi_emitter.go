package events

// MultiEmitter fans one event out to every configured sink.
type MultiEmitter struct {
	emitters []Emitter
}

func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event AuditEvent) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

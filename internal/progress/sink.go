package progress

import "sync"

// Emitter publishes individual events. Implementations must be safe for
// concurrent use because workers emit from their own goroutines.
type Emitter interface {
	Emit(evt Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(evt).
func (f EmitterFunc) Emit(evt Event) {
	f(evt)
}

// Nop discards every event.
var Nop Emitter = EmitterFunc(func(Event) {})

type multi []Emitter

func (m multi) Emit(evt Event) {
	for _, e := range m {
		e.Emit(evt)
	}
}

// Multi fans each event out to every non-nil emitter in order.
func Multi(emitters ...Emitter) Emitter {
	out := make(multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit stores evt.
func (r *Recorder) Emit(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByStage returns the recorded events with the given stage.
func (r *Recorder) ByStage(stage Stage) []Event {
	var out []Event
	for _, evt := range r.Events() {
		if evt.Stage == stage {
			out = append(out, evt)
		}
	}
	return out
}

package astradb

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type EventListener func(Event)

type listenerEntry struct {
	id uint64
	fn EventListener
}

type eventOutput struct {
	writer  io.Writer
	verbose bool
}

// EventEmitter is one node of the client's event hierarchy. Events emitted
// on a child run the child's listeners first and then bubble to the parent,
// unless a listener stopped propagation. Independently of listeners, each
// event type can be configured to print a formatted line to a writer.
type EventEmitter struct {
	parent *EventEmitter
	logger *zap.Logger

	nextListenerID atomic.Uint64

	mu        sync.Mutex
	listeners map[EventName][]listenerEntry
	outputs   map[EventName]eventOutput
}

func newEventEmitter(parent *EventEmitter, logger *zap.Logger) *EventEmitter {
	return &EventEmitter{
		parent:    parent,
		logger:    loggerOrNop(logger),
		listeners: make(map[EventName][]listenerEntry),
		outputs:   make(map[EventName]eventOutput),
	}
}

// On registers a listener and returns a function that removes it again.
// Listeners run in registration order.
func (em *EventEmitter) On(name EventName, fn EventListener) func() {
	id := em.nextListenerID.Inc()

	em.mu.Lock()
	em.listeners[name] = append(em.listeners[name], listenerEntry{id: id, fn: fn})
	em.mu.Unlock()

	return func() {
		em.mu.Lock()
		defer em.mu.Unlock()

		entries := em.listeners[name]
		for i, entry := range entries {
			if entry.id == id {
				em.listeners[name] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
	}
}

// SetEventOutput makes every event of the given type print a formatted line
// to w when it reaches this emitter. The verbose variant serializes all of
// the event's fields.
func (em *EventEmitter) SetEventOutput(name EventName, w io.Writer, verbose bool) {
	em.mu.Lock()
	em.outputs[name] = eventOutput{writer: w, verbose: verbose}
	em.mu.Unlock()
}

func (em *EventEmitter) ClearEventOutput(name EventName) {
	em.mu.Lock()
	delete(em.outputs, name)
	em.mu.Unlock()
}

// Emit runs this emitter's listeners for the event in registration order,
// then forwards to the parent unless a listener stopped propagation.
// Delivery is synchronous and depth-first.
func (em *EventEmitter) Emit(ev Event) {
	em.mu.Lock()
	output, hasOutput := em.outputs[ev.Name()]
	entries := make([]listenerEntry, len(em.listeners[ev.Name()]))
	copy(entries, em.listeners[ev.Name()])
	em.mu.Unlock()

	if hasOutput {
		if _, err := fmt.Fprintln(output.writer, formatEvent(ev, output.verbose)); err != nil {
			em.logger.Debug("failed to write event output", zap.Error(err))
		}
	}

	for _, entry := range entries {
		entry.fn(ev)

		if ev.base().immediatePropagationStopped {
			return
		}
	}

	if ev.base().propagationStopped {
		return
	}

	if em.parent != nil {
		em.parent.Emit(ev)
	}
}

func formatEvent(ev Event, verbose bool) string {
	ts := ev.Timestamp().Format(time.RFC3339)

	if verbose {
		fields, err := json.Marshal(ev)
		if err != nil {
			fields = []byte("{}")
		}
		return fmt.Sprintf("%s [%s]: %s", ts, ev.Name(), fields)
	}

	return fmt.Sprintf("%s [%s]: %s", ts, ev.Name(), ev.summary())
}

package astradb

import (
	"fmt"
	"time"

	"github.com/datastax/astra-db-go/dacmdx"
	"github.com/google/uuid"
)

type EventName string

const (
	EventCommandStarted        EventName = "commandStarted"
	EventCommandSucceeded      EventName = "commandSucceeded"
	EventCommandFailed         EventName = "commandFailed"
	EventCommandWarnings       EventName = "commandWarnings"
	EventAdminCommandStarted   EventName = "adminCommandStarted"
	EventAdminCommandPolling   EventName = "adminCommandPolling"
	EventAdminCommandSucceeded EventName = "adminCommandSucceeded"
	EventAdminCommandFailed    EventName = "adminCommandFailed"
	EventAdminCommandWarnings  EventName = "adminCommandWarnings"
)

// Event is the common surface of every lifecycle event. A listener may stop
// an event from bubbling to parent emitters, or additionally from reaching
// later listeners on the same emitter.
type Event interface {
	Name() EventName
	ID() uuid.UUID
	Timestamp() time.Time
	StopPropagation()
	StopImmediatePropagation()

	base() *baseEvent
	summary() string
}

type baseEvent struct {
	name                        EventName
	id                          uuid.UUID
	timestamp                   time.Time
	propagationStopped          bool
	immediatePropagationStopped bool
}

func newBaseEvent(name EventName) baseEvent {
	return baseEvent{
		name:      name,
		id:        uuid.New(),
		timestamp: time.Now(),
	}
}

func (e *baseEvent) Name() EventName {
	return e.name
}

func (e *baseEvent) ID() uuid.UUID {
	return e.id
}

func (e *baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e *baseEvent) StopPropagation() {
	e.propagationStopped = true
}

func (e *baseEvent) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediatePropagationStopped = true
}

func (e *baseEvent) base() *baseEvent {
	return e
}

// commandName pulls the operation name out of a command object; commands
// have exactly one top-level key.
func commandName(command map[string]interface{}) string {
	for k := range command {
		return k
	}
	return ""
}

type CommandStartedEvent struct {
	baseEvent
	Command    map[string]interface{} `json:"command"`
	Keyspace   string                 `json:"keyspace"`
	Collection string                 `json:"collection,omitempty"`
	Timeout    time.Duration          `json:"timeout"`
}

func (e *CommandStartedEvent) summary() string {
	return fmt.Sprintf("%s on %s/%s", commandName(e.Command), e.Keyspace, e.Collection)
}

type CommandSucceededEvent struct {
	baseEvent
	Command    map[string]interface{} `json:"command"`
	Keyspace   string                 `json:"keyspace"`
	Collection string                 `json:"collection,omitempty"`
	Duration   time.Duration          `json:"duration"`
	Response   *dacmdx.RawResponse    `json:"response,omitempty"`
}

func (e *CommandSucceededEvent) summary() string {
	return fmt.Sprintf("%s on %s/%s took %s", commandName(e.Command), e.Keyspace, e.Collection, e.Duration)
}

type CommandFailedEvent struct {
	baseEvent
	Command    map[string]interface{} `json:"command"`
	Keyspace   string                 `json:"keyspace"`
	Collection string                 `json:"collection,omitempty"`
	Duration   time.Duration          `json:"duration"`
	Err        error                  `json:"-"`
}

func (e *CommandFailedEvent) summary() string {
	return fmt.Sprintf("%s on %s/%s failed after %s: %s", commandName(e.Command), e.Keyspace, e.Collection, e.Duration, e.Err)
}

type CommandWarningsEvent struct {
	baseEvent
	Command    map[string]interface{}   `json:"command"`
	Keyspace   string                   `json:"keyspace"`
	Collection string                   `json:"collection,omitempty"`
	Warnings   []dacmdx.ErrorDescriptor `json:"warnings"`
}

func (e *CommandWarningsEvent) summary() string {
	return fmt.Sprintf("%s on %s/%s returned %d warnings", commandName(e.Command), e.Keyspace, e.Collection, len(e.Warnings))
}

type AdminCommandStartedEvent struct {
	baseEvent
	Method  string        `json:"method"`
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

func (e *AdminCommandStartedEvent) summary() string {
	return fmt.Sprintf("%s %s", e.Method, e.Path)
}

type AdminCommandPollingEvent struct {
	baseEvent
	Method   string        `json:"method"`
	Path     string        `json:"path"`
	Interval time.Duration `json:"interval"`
}

func (e *AdminCommandPollingEvent) summary() string {
	return fmt.Sprintf("polling %s %s (every %s)", e.Method, e.Path, e.Interval)
}

type AdminCommandSucceededEvent struct {
	baseEvent
	Method         string        `json:"method"`
	Path           string        `json:"path"`
	WasLongRunning bool          `json:"wasLongRunning"`
	Duration       time.Duration `json:"duration"`
}

func (e *AdminCommandSucceededEvent) summary() string {
	return fmt.Sprintf("%s %s took %s", e.Method, e.Path, e.Duration)
}

type AdminCommandFailedEvent struct {
	baseEvent
	Method   string        `json:"method"`
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

func (e *AdminCommandFailedEvent) summary() string {
	return fmt.Sprintf("%s %s failed after %s: %s", e.Method, e.Path, e.Duration, e.Err)
}

type AdminCommandWarningsEvent struct {
	baseEvent
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Warnings []string `json:"warnings"`
}

func (e *AdminCommandWarningsEvent) summary() string {
	return fmt.Sprintf("%s %s returned %d warnings", e.Method, e.Path, len(e.Warnings))
}

// Package audit provides optional JSON-lines audit logging of connection
// lifecycle transitions and crawl-discovery events. It is not the
// persisted state spec.md forbids between runs — it is transient
// operational logging, written only when an audit log path is configured.
package audit

import (
	"fmt"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeConnect    EventType = "connect"    // a Connection moved to Connected
	EventTypeDisconnect EventType = "disconnect" // a Connection was explicitly disconnected
	EventTypeFail       EventType = "fail"        // a Connection moved to Failed
	EventTypeDiscover   EventType = "discover"   // crawl injected a new Host from a neighbor record
	EventTypeModuleRun  EventType = "module_run" // a module's Run completed (success or failure)
)

// Event represents one auditable connection-lifecycle or crawl-discovery
// occurrence.
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Type       EventType     `json:"type"`
	Host       string        `json:"host"`
	Connector  string        `json:"connector,omitempty"`
	Address    string        `json:"address,omitempty"`
	FromState  string        `json:"from_state,omitempty"`
	ToState    string        `json:"to_state,omitempty"`
	Credential string        `json:"credential,omitempty"` // username only, never password/secret
	Hop        int           `json:"hop,omitempty"`
	Module     string        `json:"module,omitempty"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	Host        string
	Type        EventType
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event of the given type against the named host.
func NewEvent(eventType EventType, host string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Type:      eventType,
		Host:      host,
	}
}

// WithConnector records which connector produced this event.
func (e *Event) WithConnector(connector, address string) *Event {
	e.Connector = connector
	e.Address = address
	return e
}

// WithTransition records a Connection's state transition.
func (e *Event) WithTransition(from, to string) *Event {
	e.FromState = from
	e.ToState = to
	return e
}

// WithCredential records the credential username used, never the
// password or enable secret.
func (e *Event) WithCredential(username string) *Event {
	e.Credential = username
	return e
}

// WithHop records the crawl hop count a discovery event was made at.
func (e *Event) WithHop(hop int) *Event {
	e.Hop = hop
	return e
}

// WithModule records which module produced this event.
func (e *Event) WithModule(name string) *Event {
	e.Module = name
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed, recording err's message.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation's duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

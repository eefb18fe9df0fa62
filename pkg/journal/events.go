package journal

import (
	"strconv"
	"time"
)

// Severity is the RFC 5424 severity code of an event. The journal only
// emits the three levels below.
type Severity int

const (
	SeverityWarning Severity = 4
	SeverityNotice  Severity = 5
	SeverityInfo    Severity = 6
)

var severityNames = map[Severity]string{
	SeverityWarning: "WARNING",
	SeverityNotice:  "NOTICE",
	SeverityInfo:    "INFO",
}

// String returns the level name, or "UNKNOWN" for codes the journal never emits.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText encodes the severity by name in JSON journals.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventType identifies a journal event.
type EventType string

const (
	EventServerListening EventType = "server.listening"
	EventCaseInjected    EventType = "case.injected"
	EventCaseFailed      EventType = "case.failed"
	EventDefaultServed   EventType = "default.served"
	EventServerShutdown  EventType = "server.shutdown"
)

// AllEventTypes returns every defined event type for iteration and validation.
func AllEventTypes() []EventType {
	return []EventType{
		EventServerListening,
		EventCaseInjected,
		EventCaseFailed,
		EventDefaultServed,
		EventServerShutdown,
	}
}

var severityMap = map[EventType]Severity{
	EventServerListening: SeverityNotice,
	EventCaseInjected:    SeverityInfo,
	EventCaseFailed:      SeverityWarning,
	EventDefaultServed:   SeverityInfo,
	EventServerShutdown:  SeverityNotice,
}

// SeverityFor returns the syslog severity for a given event type.
// Unknown event types return SeverityWarning.
func SeverityFor(et EventType) Severity {
	if s, ok := severityMap[et]; ok {
		return s
	}
	return SeverityWarning
}

// Event is one journal record.
type Event struct {
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	ConnID    string            `json:"conn_id,omitempty"`
	Peer      string            `json:"peer,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewServerListening records the listening socket and how many cases are queued.
func NewServerListening(addr string, cases int) Event {
	return Event{
		Type:      EventServerListening,
		Severity:  SeverityFor(EventServerListening),
		Timestamp: time.Now(),
		Details: map[string]string{
			"addr":  addr,
			"cases": strconv.Itoa(cases),
		},
	}
}

// NewCaseInjected records a test case written to a connection.
func NewCaseInjected(connID, peer string, index int, name string, size int, requestLine string) Event {
	details := map[string]string{
		"index": strconv.Itoa(index),
		"name":  name,
		"bytes": strconv.Itoa(size),
	}
	if requestLine != "" {
		details["request"] = requestLine
	}
	return Event{
		Type:      EventCaseInjected,
		Severity:  SeverityFor(EventCaseInjected),
		Timestamp: time.Now(),
		ConnID:    connID,
		Peer:      peer,
		Details:   details,
	}
}

// NewCaseFailed records a test case that could not be delivered.
// stage names the failing operation: load, read, write or close.
func NewCaseFailed(connID, peer string, index int, name, stage string, err error) Event {
	details := map[string]string{
		"index": strconv.Itoa(index),
		"name":  name,
		"stage": stage,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	return Event{
		Type:      EventCaseFailed,
		Severity:  SeverityFor(EventCaseFailed),
		Timestamp: time.Now(),
		ConnID:    connID,
		Peer:      peer,
		Details:   details,
	}
}

// NewDefaultServed records the canned response sent to the n-th default connection.
func NewDefaultServed(connID, peer string, n int) Event {
	return Event{
		Type:      EventDefaultServed,
		Severity:  SeverityFor(EventDefaultServed),
		Timestamp: time.Now(),
		ConnID:    connID,
		Peer:      peer,
		Details: map[string]string{
			"connection": strconv.Itoa(n),
		},
	}
}

// NewServerShutdown records the end of a run.
func NewServerShutdown(reason string, delivered int) Event {
	return Event{
		Type:      EventServerShutdown,
		Severity:  SeverityFor(EventServerShutdown),
		Timestamp: time.Now(),
		Details: map[string]string{
			"reason":    reason,
			"delivered": strconv.Itoa(delivered),
		},
	}
}

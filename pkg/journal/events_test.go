package journal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConstants(t *testing.T) {
	t.Log("Testing that event type strings are stable")
	tests := []struct {
		et   EventType
		want string
	}{
		{EventServerListening, "server.listening"},
		{EventCaseInjected, "case.injected"},
		{EventCaseFailed, "case.failed"},
		{EventDefaultServed, "default.served"},
		{EventServerShutdown, "server.shutdown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(tt.et))
	}
	assert.Len(t, AllEventTypes(), len(tests))
}

func TestSeverityFor(t *testing.T) {
	for _, et := range AllEventTypes() {
		t.Logf("Checking severity mapping for %s", et)
		_, ok := severityMap[et]
		assert.True(t, ok, "event type %s has no severity", et)
	}

	t.Log("Unknown event types map to WARNING")
	assert.Equal(t, SeverityWarning, SeverityFor(EventType("bogus.event")))
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityWarning, "WARNING"},
		{SeverityNotice, "NOTICE"},
		{SeverityInfo, "INFO"},
		{Severity(3), "UNKNOWN"},
		{Severity(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.s.String())
	}
}

func TestNewCaseInjected(t *testing.T) {
	t.Log("Testing case.injected carries index, name, size and request line")
	ev := NewCaseInjected("conn-1", "127.0.0.1", 3, "3", 42, "GET / HTTP/1.1")

	assert.Equal(t, EventCaseInjected, ev.Type)
	assert.Equal(t, SeverityInfo, ev.Severity)
	assert.Equal(t, "conn-1", ev.ConnID)
	assert.Equal(t, "127.0.0.1", ev.Peer)
	assert.Equal(t, "3", ev.Details["index"])
	assert.Equal(t, "3", ev.Details["name"])
	assert.Equal(t, "42", ev.Details["bytes"])
	assert.Equal(t, "GET / HTTP/1.1", ev.Details["request"])

	t.Log("An empty request line is omitted")
	ev = NewCaseInjected("conn-2", "", 0, "0", 0, "")
	_, ok := ev.Details["request"]
	assert.False(t, ok)
}

func TestNewCaseFailed(t *testing.T) {
	ev := NewCaseFailed("conn-1", "10.0.0.1", 7, "cases/7", "write", errors.New("broken pipe"))

	assert.Equal(t, EventCaseFailed, ev.Type)
	assert.Equal(t, SeverityWarning, ev.Severity)
	assert.Equal(t, "write", ev.Details["stage"])
	assert.Equal(t, "broken pipe", ev.Details["error"])
	assert.Equal(t, "7", ev.Details["index"])
}

func TestNewDefaultServedAndLifecycle(t *testing.T) {
	ev := NewDefaultServed("conn-9", "::1", 4)
	assert.Equal(t, EventDefaultServed, ev.Type)
	assert.Equal(t, "4", ev.Details["connection"])

	ev = NewServerListening("0.0.0.0:8000", 3)
	assert.Equal(t, SeverityNotice, ev.Severity)
	assert.Equal(t, "0.0.0.0:8000", ev.Details["addr"])
	assert.Equal(t, "3", ev.Details["cases"])

	ev = NewServerShutdown("cancelled", 2)
	assert.Equal(t, EventServerShutdown, ev.Type)
	assert.Equal(t, "cancelled", ev.Details["reason"])
	assert.Equal(t, "2", ev.Details["delivered"])
}

func TestAllHelpers_SetTimestampAndSeverity(t *testing.T) {
	t.Log("Testing that every constructor sets a timestamp and the mapped severity")
	before := time.Now()
	events := []Event{
		NewServerListening("a", 0),
		NewCaseInjected("c", "p", 0, "0", 0, ""),
		NewCaseFailed("c", "p", 0, "0", "load", nil),
		NewDefaultServed("c", "p", 1),
		NewServerShutdown("done", 0),
	}
	for _, ev := range events {
		assert.False(t, ev.Timestamp.Before(before), "%s timestamp too early", ev.Type)
		assert.Equal(t, SeverityFor(ev.Type), ev.Severity, "%s severity", ev.Type)
	}
}

func TestEvent_JSON(t *testing.T) {
	t.Log("Testing that severity is encoded by name")
	ev := NewDefaultServed("conn-1", "127.0.0.1", 1)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "default.served", decoded["type"])
	assert.Equal(t, "INFO", decoded["severity"])
	assert.Equal(t, "conn-1", decoded["conn_id"])
}

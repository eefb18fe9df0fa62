package journal

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FacilityLocal0 is the RFC 5424 facility used unless SyslogConfig says otherwise.
const FacilityLocal0 = 16

const (
	redialDelayMin = 100 * time.Millisecond
	redialDelayMax = 30 * time.Second
)

// sdID names the structured data element carried by every message.
const sdID = "replyserver"

// rfc5424Time is the message timestamp layout, UTC with milliseconds.
const rfc5424Time = "2006-01-02T15:04:05.000Z"

var sdEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `]`, `\]`)

// SyslogConfig holds configuration for the syslog writer.
type SyslogConfig struct {
	SocketPath string // Default: "/dev/log"
	Hostname   string // Default: os.Hostname()
	AppName    string // Default: "replyserver"
	Facility   int    // Default: FacilityLocal0
}

// SyslogEmitter sends each event to the local syslog daemon as one RFC 5424
// datagram: the event type is the MSGID and the connection, peer and details
// are structured data parameters.
//
// A failed write drops the connection and redials. Failed redials back off
// from 100ms up to 30s.
type SyslogEmitter struct {
	path     string
	hostname string
	appName  string
	procID   string
	facility int

	mu      sync.Mutex
	conn    net.Conn
	delay   time.Duration
	retryAt time.Time
}

// NewSyslogEmitter connects to the syslog socket. Callers should run without
// a syslog journal when it fails.
func NewSyslogEmitter(cfg SyslogConfig) (*SyslogEmitter, error) {
	w := &SyslogEmitter{
		path:     cfg.SocketPath,
		hostname: cfg.Hostname,
		appName:  cfg.AppName,
		procID:   strconv.Itoa(os.Getpid()),
		facility: cfg.Facility,
	}
	if w.path == "" {
		w.path = "/dev/log"
	}
	if w.hostname == "" {
		w.hostname, _ = os.Hostname()
	}
	if w.appName == "" {
		w.appName = "replyserver"
	}
	if w.facility == 0 {
		w.facility = FacilityLocal0
	}

	conn, err := dialSyslog(w.path)
	if err != nil {
		return nil, fmt.Errorf("syslog connect: %w", err)
	}
	w.conn = conn
	return w, nil
}

// Emit writes ev to the syslog socket.
// Safe to call on a nil receiver (returns nil).
func (w *SyslogEmitter) Emit(ev Event) error {
	if w == nil {
		return nil
	}
	return w.send(w.format(ev))
}

// format renders ev as an RFC 5424 message without a trailing newline.
// Header fields that are empty or not printable ASCII become "-".
func (w *SyslogEmitter) format(ev Event) []byte {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(strconv.Itoa(w.facility*8 + int(ev.Severity)))
	b.WriteString(">1 ")
	if ev.Timestamp.IsZero() {
		b.WriteByte('-')
	} else {
		b.WriteString(ev.Timestamp.UTC().Format(rfc5424Time))
	}
	for _, field := range []struct {
		val   string
		limit int
	}{
		{w.hostname, 255},
		{w.appName, 48},
		{w.procID, 128},
		{string(ev.Type), 32},
	} {
		b.WriteByte(' ')
		b.WriteString(headerField(field.val, field.limit))
	}

	b.WriteString(" [" + sdID)
	param := func(name, val string) {
		b.WriteString(" " + name + `="`)
		sdEscaper.WriteString(&b, val)
		b.WriteByte('"')
	}
	if ev.ConnID != "" {
		param("conn_id", ev.ConnID)
	}
	if ev.Peer != "" {
		param("peer", ev.Peer)
	}
	keys := make([]string, 0, len(ev.Details))
	for k := range ev.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		param(k, ev.Details[k])
	}
	b.WriteByte(']')
	return []byte(b.String())
}

func headerField(val string, limit int) string {
	if val == "" {
		return "-"
	}
	for i := 0; i < len(val); i++ {
		if val[i] < '!' || val[i] > '~' {
			return "-"
		}
	}
	if len(val) > limit {
		return val[:limit]
	}
	return val
}

// send writes msg, redialing once if the connection is gone.
func (w *SyslogEmitter) send(msg []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		_, err := w.conn.Write(msg)
		if err == nil {
			return nil
		}
		w.conn.Close()
		w.conn = nil
	}
	if err := w.redialLocked(); err != nil {
		return err
	}
	_, err := w.conn.Write(msg)
	return err
}

// redialLocked reconnects unless a previous failure is still backing off.
// Must be called with w.mu held.
func (w *SyslogEmitter) redialLocked() error {
	now := time.Now()
	if now.Before(w.retryAt) {
		return fmt.Errorf("syslog reconnect backoff: retry in %v", w.retryAt.Sub(now).Round(time.Millisecond))
	}

	conn, err := dialSyslog(w.path)
	if err != nil {
		w.delay = min(max(2*w.delay, redialDelayMin), redialDelayMax)
		w.retryAt = now.Add(w.delay)
		return fmt.Errorf("syslog reconnect: %w", err)
	}
	w.conn = conn
	w.delay = 0
	w.retryAt = time.Time{}
	return nil
}

// Close closes the syslog socket connection.
// Safe to call on a nil receiver (returns nil).
func (w *SyslogEmitter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// dialSyslog tries unixgram first and falls back to unix stream sockets.
func dialSyslog(path string) (net.Conn, error) {
	conn, err := net.Dial("unixgram", path)
	if err == nil {
		return conn, nil
	}
	return net.Dial("unix", path)
}

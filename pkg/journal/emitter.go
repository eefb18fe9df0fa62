package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Emitter accepts journal events for recording.
type Emitter interface {
	Emit(Event) error
}

// NopEmitter discards all events. Use when no journal is configured.
type NopEmitter struct{}

// Emit discards the event.
func (NopEmitter) Emit(Event) error { return nil }

type multiEmitter []Emitter

// Multi fans each event out to every backend. All backends are tried; their
// errors are joined.
func Multi(backends ...Emitter) Emitter {
	var live multiEmitter
	for _, b := range backends {
		if b != nil {
			live = append(live, b)
		}
	}
	if len(live) == 0 {
		return NopEmitter{}
	}
	return live
}

func (m multiEmitter) Emit(ev Event) error {
	var errs []error
	for _, b := range m {
		if err := b.Emit(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileEmitter appends events to a file as JSON lines.
type FileEmitter struct {
	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	path string
}

// NewFileEmitter opens (or creates) path for appending.
func NewFileEmitter(path string) (*FileEmitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &FileEmitter{f: f, enc: json.NewEncoder(f), path: path}, nil
}

// Emit writes one JSON object followed by a newline.
// Safe to call on a nil receiver (returns nil).
func (e *FileEmitter) Emit(ev Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return fmt.Errorf("journal %s is closed", e.path)
	}
	if err := e.enc.Encode(ev); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Close closes the journal file. Safe to call more than once.
func (e *FileEmitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return nil
	}
	err := e.f.Close()
	e.f = nil
	return err
}

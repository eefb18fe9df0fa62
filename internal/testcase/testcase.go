// Package testcase resolves the ordered list of test case payloads a
// replyserver run injects: a single file, a zip archive or a directory of
// numerically named files.
package testcase

import (
	"cmp"
	"io"
	"slices"
	"strconv"
)

// Kind names where a Set's cases came from.
type Kind string

const (
	KindNone      Kind = "none"
	KindFile      Kind = "file"
	KindZip       Kind = "zip"
	KindDirectory Kind = "directory"
)

// Case is one indexed payload. The bytes are read on demand by Payload so a
// large archive is never held in memory at once.
type Case struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	Size  int64  `json:"size" yaml:"size"`
	Kind  Kind   `json:"source" yaml:"source"`

	load func() ([]byte, error)
}

// Payload reads the case's bytes.
func (c Case) Payload() ([]byte, error) {
	if c.load == nil {
		return nil, nil
	}
	return c.load()
}

// NewCase builds a case around an in-memory payload.
func NewCase(index int, name string, payload []byte) Case {
	return Case{
		Index: index,
		Name:  name,
		Size:  int64(len(payload)),
		load:  func() ([]byte, error) { return payload, nil },
	}
}

// Set is the outcome of resolution: cases sorted ascending by index.
// An empty Set is valid; the server then only serves the default response.
type Set struct {
	Kind   Kind
	Origin string
	Cases  []Case

	closer io.Closer
}

// NewSet wraps already-built cases, sorting them by index.
func NewSet(kind Kind, origin string, cases ...Case) *Set {
	for i := range cases {
		if cases[i].Kind == "" {
			cases[i].Kind = kind
		}
	}
	sortCases(cases)
	return &Set{Kind: kind, Origin: origin, Cases: cases}
}

// Empty returns a Set with no cases.
func Empty() *Set {
	return &Set{Kind: KindNone}
}

// Len returns the number of resolved cases.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Cases)
}

// Indices returns the case indices in delivery order.
func (s *Set) Indices() []int {
	out := make([]int, 0, s.Len())
	for _, c := range s.Cases {
		out = append(out, c.Index)
	}
	return out
}

// Close releases the archive backing a zip Set. Safe on nil and non-zip Sets.
func (s *Set) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// ParseIndex reports whether a file name is a base-10 integer test case index.
// Names that are not integers are not errors; they are simply not test cases.
func ParseIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// inRange reports whether index lies in [start, stop].
func inRange(index, start, stop int) bool {
	return start <= index && index <= stop
}

// sortCases orders cases by index. The sort is stable so duplicate indices
// from one archive keep their archive order.
func sortCases(cases []Case) {
	slices.SortStableFunc(cases, func(a, b Case) int {
		return cmp.Compare(a.Index, b.Index)
	})
}

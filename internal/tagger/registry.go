package tagger

import (
	"sort"
	"sync/atomic"
)

// Registry is an immutable short code -> conflict id snapshot.
type Registry struct {
	byCode map[string]int64
	byID   map[int64]string
}

// NewRegistry copies m so later changes to it are not observed.
func NewRegistry(m map[string]int64) *Registry {
	r := &Registry{
		byCode: make(map[string]int64, len(m)),
		byID:   make(map[int64]string, len(m)),
	}
	for code, id := range m {
		r.byCode[code] = id
		r.byID[id] = code
	}
	return r
}

// ID returns the conflict id for a short code.
func (r *Registry) ID(code string) (int64, bool) {
	if r == nil {
		return 0, false
	}
	id, ok := r.byCode[code]
	return id, ok
}

// ShortCode is the reverse of ID.
func (r *Registry) ShortCode(id int64) (string, bool) {
	if r == nil {
		return "", false
	}
	code, ok := r.byID[id]
	return code, ok
}

// Len returns the number of registered conflicts.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byCode)
}

// Codes returns the registered short codes in lexical order.
func (r *Registry) Codes() []string {
	if r == nil {
		return nil
	}
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SharedRegistry hands the current snapshot to concurrent readers.
// Writers build a new Registry and Store it; readers never see a partial map.
type SharedRegistry struct {
	current atomic.Pointer[Registry]
}

// NewSharedRegistry starts with an empty snapshot.
func NewSharedRegistry() *SharedRegistry {
	s := &SharedRegistry{}
	s.current.Store(NewRegistry(nil))
	return s
}

// Load returns the current snapshot.
func (s *SharedRegistry) Load() *Registry {
	return s.current.Load()
}

// Store swaps in a new snapshot.
func (s *SharedRegistry) Store(r *Registry) {
	if r == nil {
		r = NewRegistry(nil)
	}
	s.current.Store(r)
}

// Package ledger persists the IDs of items that were already processed.
package ledger

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
)

// Store loads and saves the full set of seen IDs.
//
// Load never fails: a missing, unreadable or corrupt backing store yields an
// empty set. Save overwrites the stored set, so callers pass the merged set.
type Store interface {
	Load() *Set
	Save(ids *Set) error
	Close() error
}

const (
	TypeJSON  = "json"
	TypeBBolt = "bbolt"
	TypeNone  = "none"
)

// NewStore creates the configured ledger backend.
func NewStore(typ, path string, log logger.Logger) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	log = logger.Ensure(log)

	switch typ {
	case "none", "disabled":
		return noopStore{}, nil
	case "", TypeJSON:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("json ledger requires a path")
		}
		return newJSONStore(path, log), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt ledger requires a path")
		}
		return openBolt(path, log)
	default:
		return nil, fmt.Errorf("unsupported ledger type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Load() *Set      { return NewSet() }
func (noopStore) Save(*Set) error { return nil }
func (noopStore) Close() error    { return nil }

// Set is a string set that remembers insertion order so saved ledgers diff cleanly.
type Set struct {
	ids []string
	idx map[string]struct{}
}

// NewSet returns a set holding ids, duplicates and empty strings dropped.
func NewSet(ids ...string) *Set {
	s := &Set{idx: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s *Set) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.idx[id]; ok {
		return false
	}
	s.idx[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Has reports exact-match membership.
func (s *Set) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.idx[id]
	return ok
}

// Len returns the number of IDs.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the IDs in insertion order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return NewSet(s.IDs()...)
}

// Merge adds ids and returns how many were new.
func (s *Set) Merge(ids ...string) int {
	added := 0
	for _, id := range ids {
		if s.Add(id) {
			added++
		}
	}
	return added
}

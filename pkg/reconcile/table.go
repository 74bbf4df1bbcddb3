// Package reconcile drives batch resolution of scraped restaurant names
// against a lookup table of known venues.
package reconcile

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/normalize"
)

// ErrDuplicateKey is returned when two entries canonicalize to the same key.
var ErrDuplicateKey = errors.New("duplicate canonical key")

// Entry is one known venue in the lookup table.
type Entry struct {
	ID   uuid.UUID
	Key  string // canonical form of Name
	Name string // display name as stored

	idx int // insertion order, used for deterministic narrowing
}

// Table is an immutable-after-build lookup table: canonical key to entry,
// plus a significant-token inverted index used to narrow scoring candidates.
// Build it with NewTable/Add, then share it freely: reads are lock-free and
// safe for concurrent use once building is done.
type Table struct {
	scorer  *matching.Scorer
	entries map[string]*Entry
	tokens  map[string][]*Entry
	order   []*Entry
}

// NewTable creates an empty table using the given scorer's tokenization for
// the inverted index. Pass the same scorer the session will score with, so
// index narrowing and word-overlap scoring agree on what a token is.
func NewTable(scorer *matching.Scorer) *Table {
	return &Table{
		scorer:  scorer,
		entries: make(map[string]*Entry),
		tokens:  make(map[string][]*Entry),
	}
}

// Add inserts a venue. Names that canonicalize to an already-present key are
// rejected with ErrDuplicateKey; names that canonicalize to empty are
// rejected outright.
func (t *Table) Add(id uuid.UUID, name string) error {
	key := normalize.Canonical(name)
	if key == "" {
		return errors.Errorf("name %q canonicalizes to empty", name)
	}
	if _, exists := t.entries[key]; exists {
		return errors.Wrapf(ErrDuplicateKey, "key %q (name %q)", key, name)
	}

	entry := &Entry{ID: id, Key: key, Name: name, idx: len(t.order)}
	t.entries[key] = entry
	t.order = append(t.order, entry)
	for _, token := range t.scorer.Tokens(name) {
		t.tokens[token] = append(t.tokens[token], entry)
	}
	return nil
}

// Lookup returns the entry for a canonical key.
func (t *Table) Lookup(key string) (Entry, bool) {
	entry, ok := t.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.order)
}

// Entries returns all entries in insertion order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.order))
	for i, e := range t.order {
		out[i] = *e
	}
	return out
}

// narrow returns the entries sharing at least one significant token with the
// query, in insertion order. An empty result means the token index has no
// overlap and the caller should fall back to a full scan.
func (t *Table) narrow(query string) []*Entry {
	seen := make(map[uuid.UUID]struct{})
	var hits []*Entry
	for _, token := range t.scorer.Tokens(query) {
		for _, entry := range t.tokens[token] {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			seen[entry.ID] = struct{}{}
			hits = append(hits, entry)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].idx < hits[j].idx
	})
	return hits
}

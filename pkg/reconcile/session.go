package reconcile

import (
	"github.com/google/uuid"

	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/normalize"
)

// Config tunes a Session.
type Config struct {
	// Threshold is the minimum score for a match. Defaults to
	// matching.DefaultThreshold.
	Threshold float64

	// Strategy is the word-overlap strategy. Defaults to
	// matching.StrategyLenient.
	Strategy matching.Strategy
}

// Resolution is the outcome of resolving one query name. Unmatched is a
// normal outcome: Matched is false and Entry is zero.
type Resolution struct {
	Query   string
	Key     string
	Matched bool
	Score   float64
	Method  matching.Method
	Entry   Entry
}

// OpKind discriminates patch operations.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
)

// Op is one staged change to the lookup table.
type Op struct {
	Kind OpKind
	ID   uuid.UUID
	Key  string
	Name string
}

// Patch is the ordered list of staged changes. The session never mutates its
// table; the caller applies the patch to durable storage and rebuilds.
type Patch []Op

// Session resolves names against a read-only Table and accumulates staged
// changes plus a calibration report. A session is single-goroutine state;
// the table it wraps may be shared across sessions.
type Session struct {
	table        *Table
	scorer       *matching.Scorer
	config       Config
	staged       Patch
	overlay      map[string]Entry
	overlayOrder []string
	report       Report
}

// NewSession creates a session over a built table. Zero config fields take
// defaults.
func NewSession(table *Table, scorer *matching.Scorer, config Config) *Session {
	if config.Threshold <= 0 {
		config.Threshold = matching.DefaultThreshold
	}
	if config.Strategy == "" {
		config.Strategy = matching.StrategyLenient
	}
	return &Session{
		table:   table,
		scorer:  scorer,
		config:  config,
		overlay: make(map[string]Entry),
	}
}

// Resolve matches one raw name against the table. The fast path is an O(1)
// canonical-key hit; otherwise candidates sharing a significant token are
// scored, with a full scan only when the token index has no overlap.
// Staged adds from this session are visible to later Resolve calls.
func (s *Session) Resolve(name string) Resolution {
	resolution := Resolution{
		Query: name,
		Key:   normalize.Canonical(name),
	}
	if resolution.Key == "" {
		resolution.Method = matching.MethodNone
		s.report.observe(resolution, "", s.config.Threshold)
		return resolution
	}

	if entry, ok := s.lookup(resolution.Key); ok {
		resolution.Matched = true
		resolution.Score = 1.0
		resolution.Method = matching.MethodExact
		resolution.Entry = entry
		s.report.observe(resolution, entry.Name, s.config.Threshold)
		return resolution
	}

	pool := s.pool(name)
	result := matching.BestMatch(s.scorer, name, pool, s.config.Strategy, s.config.Threshold)
	resolution.Matched = result.Matched
	resolution.Score = result.Score
	resolution.Method = result.Method
	if result.Matched {
		resolution.Entry = result.Candidate.Value
	}
	s.report.observe(resolution, result.Candidate.Name, s.config.Threshold)
	return resolution
}

// StageAdd stages a new lookup entry for the caller to persist. The entry is
// visible to later Resolve calls in this session. Returns the staged entry's
// canonical key; a name already present (table or staged) is not re-staged.
func (s *Session) StageAdd(id uuid.UUID, name string) (string, bool) {
	key := normalize.Canonical(name)
	if key == "" {
		return "", false
	}
	if _, exists := s.lookup(key); exists {
		return key, false
	}
	s.overlay[key] = Entry{ID: id, Key: key, Name: name}
	s.overlayOrder = append(s.overlayOrder, key)
	s.staged = append(s.staged, Op{Kind: OpAdd, ID: id, Key: key, Name: name})
	return key, true
}

// StageUpdate stages a display-name change for an existing entry.
func (s *Session) StageUpdate(id uuid.UUID, name string) (string, bool) {
	key := normalize.Canonical(name)
	if key == "" {
		return "", false
	}
	if _, exists := s.lookup(key); !exists {
		return key, false
	}
	if _, staged := s.overlay[key]; !staged {
		s.overlayOrder = append(s.overlayOrder, key)
	}
	s.overlay[key] = Entry{ID: id, Key: key, Name: name}
	s.staged = append(s.staged, Op{Kind: OpUpdate, ID: id, Key: key, Name: name})
	return key, true
}

// Patch returns a copy of the staged operations in the order they were
// staged.
func (s *Session) Patch() Patch {
	out := make(Patch, len(s.staged))
	copy(out, s.staged)
	return out
}

// Report returns the calibration report accumulated so far.
func (s *Session) Report() Report {
	return s.report
}

func (s *Session) lookup(key string) (Entry, bool) {
	if entry, ok := s.overlay[key]; ok {
		return entry, true
	}
	return s.table.Lookup(key)
}

// pool gathers scoring candidates: token-narrowed table entries when the
// index overlaps the query, the full table otherwise, plus staged entries.
func (s *Session) pool(name string) []matching.Candidate[Entry] {
	narrowed := s.table.narrow(name)
	if len(narrowed) == 0 {
		all := s.table.Entries()
		narrowed = make([]*Entry, len(all))
		for i := range all {
			narrowed[i] = &all[i]
		}
	}

	pool := make([]matching.Candidate[Entry], 0, len(narrowed)+len(s.overlay))
	for _, entry := range narrowed {
		pool = append(pool, matching.Candidate[Entry]{Name: entry.Name, Value: *entry})
	}
	for _, key := range s.overlayOrder {
		entry := s.overlay[key]
		pool = append(pool, matching.Candidate[Entry]{Name: entry.Name, Value: entry})
	}
	return pool
}

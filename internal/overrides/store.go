package overrides

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
)

// Store is the in-memory override table of one scope.
type Store struct {
	mu        sync.Mutex
	scope     string
	records   map[network.SegmentID]Record
	persister Persister
	lastSaved time.Time
	degraded  bool

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open loads the scope's table through p. A load failure is logged and the
// store starts empty in degraded mode. A nil persister keeps the table in
// memory only.
func Open(ctx context.Context, scope string, p Persister, opts ...Option) *Store {
	s := &Store{
		scope:     scope,
		records:   make(map[network.SegmentID]Record),
		persister: p,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if p == nil {
		return s
	}

	table, err := p.Load(ctx, scope)
	if err != nil {
		s.degraded = true
		s.logger.Warn("Failed to load overrides, starting empty", "scope", scope, "error", err)
		return s
	}
	if table.Version > TableVersion {
		s.logger.Warn("Override table written by a newer version", "scope", scope, "version", table.Version)
	}
	for _, r := range table.Records {
		s.records[r.SegmentID] = r
	}
	s.lastSaved = table.LastSaved
	s.logger.Info("Loaded overrides", "scope", scope, "count", len(s.records))
	return s
}

// Scope returns the scope name the store was opened for.
func (s *Store) Scope() string {
	return s.scope
}

// Degraded reports whether the initial load failed.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// CaptureOriginal records value as the original speed of id, unless a record
// already exists. It reports whether a record was created.
func (s *Store) CaptureOriginal(id network.SegmentID, value float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; ok {
		return false, nil
	}
	s.records[id] = Record{
		SegmentID:     id,
		OriginalValue: value,
		CurrentValue:  value,
		LastModified:  s.now(),
	}
	return true, s.persistLocked()
}

// SetCurrent updates the applied speed of an existing record.
func (s *Store) SetCurrent(id network.SegmentID, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return fmt.Errorf("segment %s: %w", id, ErrNotCaptured)
	}
	r.CurrentValue = value
	r.LastModified = s.now()
	s.records[id] = r
	return s.persistLocked()
}

// Get returns the record of id.
func (s *Store) Get(id network.SegmentID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

// GetOriginal returns the captured original speed of id.
func (s *Store) GetOriginal(id network.SegmentID) (float64, bool) {
	r, ok := s.Get(id)
	return r.OriginalValue, ok
}

// GetCurrent returns the applied speed of id.
func (s *Store) GetCurrent(id network.SegmentID) (float64, bool) {
	r, ok := s.Get(id)
	return r.CurrentValue, ok
}

// Remove deletes the record of id. Removing an absent id is a no-op.
func (s *Store) Remove(id network.SegmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	return s.persistLocked()
}

// Clear removes every record and persists the empty table.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.records)
	return s.persistLocked()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a snapshot of all records sorted by segment id.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AllRecords iterates a snapshot taken when AllRecords is called. Mutations
// during iteration are not observed and the sequence can be ranged again.
func (s *Store) AllRecords() iter.Seq[Record] {
	snapshot := s.Records()
	return slices.Values(snapshot)
}

// Stats returns a one-line summary for logs and the host.
func (s *Store) Stats() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := "never"
	if !s.lastSaved.IsZero() {
		saved = s.lastSaved.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("Scope: %s, Segments: %d, Last saved: %s", s.scope, len(s.records), saved)
}

func (s *Store) snapshotLocked() []Record {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Record) int {
		return cmp.Compare(a.SegmentID, b.SegmentID)
	})
	return out
}

func (s *Store) persistLocked() error {
	if s.persister == nil {
		return nil
	}
	now := s.now()
	table := Table{
		Scope:     s.scope,
		Version:   TableVersion,
		LastSaved: now,
		Records:   s.snapshotLocked(),
	}
	if err := s.persister.Save(context.Background(), table); err != nil {
		s.logger.Error("Failed to save overrides", "scope", s.scope, "error", err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.lastSaved = now
	return nil
}

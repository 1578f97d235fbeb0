// Package session keeps the per-session record of submitted units: the
// ordered history, a bounded cache of recent outputs and the set of
// symbols declared so far.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultOutputCapacity is the size of the recent-outputs cache.
const DefaultOutputCapacity = 10

var (
	// ErrUnknownEntry is returned for a sequence number the store never issued.
	ErrUnknownEntry = errors.New("unknown history entry")
	// ErrAlreadyCompleted is returned when an entry is filled in twice.
	ErrAlreadyCompleted = errors.New("history entry already completed")
)

// Entry is one submitted unit and, once finished, its outcome.
type Entry struct {
	Seq         int
	Input       string
	Output      string
	Duration    time.Duration
	SubmittedAt time.Time
	// Completed is true once Output and Duration are set.
	Completed bool
	// Failure is set instead of Output when the invocation failed.
	Failure string
	Stderr  string
}

// Finished reports whether the entry was completed or failed.
func (e Entry) Finished() bool {
	return e.Completed || e.Failure != ""
}

// Option configures a Store.
type Option func(*Store)

// WithOutputCapacity sets the recent-outputs cache size.
func WithOutputCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the time source used for SubmittedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the session state. All methods are safe for concurrent use and
// every mutation is atomic: readers never see an entry with only one of
// output and duration set.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	outputs  []string
	capacity int
	now      func() time.Time

	generation   uint64
	symbolsGen   uint64
	symbolsCache []string
}

// NewStore creates an empty store whose numbering starts at 1.
func NewStore(opts ...Option) *Store {
	s := &Store{
		capacity:   DefaultOutputCapacity,
		now:        time.Now,
		generation: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendPending records a submitted input and returns its sequence number.
func (s *Store) AppendPending(input string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := len(s.entries) + 1
	s.entries = append(s.entries, Entry{
		Seq:         seq,
		Input:       input,
		SubmittedAt: s.now(),
	})
	s.generation++
	return seq
}

// Complete fills in the output and duration of a pending entry. Non-blank
// output is also pushed into the recent-outputs cache.
func (s *Store) Complete(seq int, output string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.pendingLocked(seq)
	if err != nil {
		return err
	}
	e.Output = output
	e.Duration = d
	e.Completed = true

	if output != "" {
		s.outputs = append(s.outputs, output)
		if over := len(s.outputs) - s.capacity; over > 0 {
			s.outputs = append([]string(nil), s.outputs[over:]...)
		}
	}
	return nil
}

// Fail marks a pending entry as failed. The entry keeps its number and
// stays in history with the failure noted.
func (s *Store) Fail(seq int, reason, stderr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.pendingLocked(seq)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "failed"
	}
	e.Failure = reason
	e.Stderr = stderr
	return nil
}

func (s *Store) pendingLocked(seq int) (*Entry, error) {
	if seq < 1 || seq > len(s.entries) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntry, seq)
	}
	e := &s.entries[seq-1]
	if e.Finished() {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyCompleted, seq)
	}
	return e, nil
}

// Recent returns up to n entries, most recent last. n <= 0 returns all.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if n > 0 && n < len(s.entries) {
		start = len(s.entries) - n
	}
	return append([]Entry(nil), s.entries[start:]...)
}

// Lookup returns the entry with the given sequence number.
func (s *Store) Lookup(seq int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if seq < 1 || seq > len(s.entries) {
		return Entry{}, false
	}
	return s.entries[seq-1], true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// NextSeq returns the number the next AppendPending will use.
func (s *Store) NextSeq() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) + 1
}

// Clear drops all entries and cached outputs. Numbering restarts at 1.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.outputs = nil
	s.generation++
}

// LastOutput returns a cached output, 0 being the most recent.
func (s *Store) LastOutput(i int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.outputs) {
		return "", false
	}
	return s.outputs[len(s.outputs)-1-i], true
}

// Outputs returns the cached outputs, oldest first.
func (s *Store) Outputs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.outputs...)
}

// OutputCapacity returns the size of the recent-outputs cache.
func (s *Store) OutputCapacity() int { return s.capacity }

// DeclaredSymbols returns the sorted names declared by stored inputs. The
// set is recomputed from scratch after any mutation of the history.
func (s *Store) DeclaredSymbols() []string {
	s.mu.RLock()
	if s.symbolsGen == s.generation {
		out := append([]string(nil), s.symbolsCache...)
		s.mu.RUnlock()
		return out
	}
	inputs := make([]string, len(s.entries))
	for i, e := range s.entries {
		inputs[i] = e.Input
	}
	gen := s.generation
	s.mu.RUnlock()

	symbols := ExtractSymbols(inputs...)

	s.mu.Lock()
	if s.generation == gen {
		s.symbolsCache = symbols
		s.symbolsGen = gen
	}
	s.mu.Unlock()
	return append([]string(nil), symbols...)
}

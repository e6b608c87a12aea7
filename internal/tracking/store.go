package tracking

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/fsutil"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

// FileName is the tracking document inside the run directory.
const FileName = "tracking.json"

// Store owns the tracking document. Every mutation is written to disk
// before it returns.
type Store struct {
	mu     sync.RWMutex
	path   string
	state  *State
	logger *logging.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store for dir. Call Load before mutating.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		path:   filepath.Join(dir, FileName),
		state:  NewState(),
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the tracking file path.
func (s *Store) Path() string { return s.path }

// Load reads the tracking document. A missing file yields a pending state;
// a corrupt one, including one that decodes to an unknown status, is moved
// aside and replaced by a pending state.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	switch {
	case err == nil:
	case errors.Is(err, fsutil.ErrCorrupt):
		moved, mvErr := fsutil.MoveAside(s.path)
		if mvErr != nil {
			return nil, fmt.Errorf("moving corrupt tracking file aside: %w", mvErr)
		}
		s.logger.Warn("tracking: reinitializing corrupt state file",
			"error", core.ErrPersistenceCorruption(s.path).WithCause(err),
			"moved_to", moved,
		)
		st = NewState()
	default:
		return nil, fmt.Errorf("loading tracking state: %w", err)
	}

	s.state = st
	return st.Clone(), nil
}

// Read decodes the tracking file without adopting or repairing it, for
// observers that do not own the run. Corruption is reported as an error.
func (s *Store) Read() (*State, error) {
	st, err := s.read()
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, fsutil.ErrCorrupt):
		return nil, core.ErrPersistenceCorruption(s.path).WithCause(err)
	default:
		return nil, fmt.Errorf("reading tracking state: %w", err)
	}
}

func (s *Store) read() (*State, error) {
	st := NewState()
	if _, err := fsutil.ReadJSON(s.path, st); err != nil {
		return nil, err
	}
	if err := st.check(); err != nil {
		return nil, err
	}
	if st.Status == "" {
		st.Status = StatusPending
	}
	if st.History == nil {
		st.History = []Entry{}
	}
	return st, nil
}

// State returns a copy of the current document.
func (s *Store) State() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Begin starts a new run against target, discarding any previous history.
func (s *Store) Begin(target string) (*State, error) {
	return s.mutate(func(st *State) error {
		now := s.now()
		*st = State{
			RunID:           s.newID(),
			Status:          StatusInProgress,
			TargetDirectory: target,
			StartedAt:       now,
			History:         []Entry{},
		}
		return nil
	})
}

// SetIteration records the iteration about to run.
func (s *Store) SetIteration(n int) (*State, error) {
	return s.mutate(func(st *State) error {
		if n < st.Iteration {
			return fmt.Errorf("iteration %d is behind recorded iteration %d", n, st.Iteration)
		}
		st.Iteration = n
		return nil
	})
}

// Append adds e to the history. A zero timestamp is filled in.
func (s *Store) Append(e Entry) (*State, error) {
	return s.mutate(func(st *State) error {
		if e.Timestamp.IsZero() {
			e.Timestamp = s.now()
		}
		st.History = append(st.History, e)
		return nil
	})
}

// Finish marks the run as ended with a terminal status.
func (s *Store) Finish(status Status) (*State, error) {
	if !status.IsTerminal() {
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("cannot finish run with non-terminal status %q", status))
	}
	return s.mutate(func(st *State) error {
		st.Status = status
		return nil
	})
}

// Reset returns the document to the pending state.
func (s *Store) Reset() error {
	_, err := s.mutate(func(st *State) error {
		*st = *NewState()
		return nil
	})
	return err
}

// mutate applies fn to a copy, persists it and only then makes it current.
func (s *Store) mutate(fn func(*State) error) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := fsutil.WriteJSON(s.path, next); err != nil {
		return nil, fmt.Errorf("saving tracking state: %w", err)
	}
	s.state = next
	return next.Clone(), nil
}

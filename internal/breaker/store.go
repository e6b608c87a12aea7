package breaker

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/fsutil"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

// File names inside the run directory.
const (
	StateFileName   = "circuit_breaker.json"
	HistoryFileName = "circuit_history.json"
)

// Store persists the breaker snapshot and its transition log as two JSON
// files. Every write replaces the file atomically.
type Store struct {
	statePath   string
	historyPath string
	logger      *logging.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		statePath:   filepath.Join(dir, StateFileName),
		historyPath: filepath.Join(dir, HistoryFileName),
		logger:      logger,
	}
}

// StatePath returns the snapshot file path.
func (s *Store) StatePath() string { return s.statePath }

// HistoryPath returns the transition log path.
func (s *Store) HistoryPath() string { return s.historyPath }

// Load reads the snapshot and history. Missing files yield the initial
// state. A file that fails to decode, or decodes to values Step never
// produces, is moved aside and that half of the state starts over.
func (s *Store) Load() (Snapshot, []Transition, error) {
	snap := InitialSnapshot()
	healed, err := s.readOrHeal(s.statePath, &snap, func() error { return checkSnapshot(&snap) })
	if err != nil {
		return InitialSnapshot(), nil, err
	}
	if healed {
		snap = InitialSnapshot()
	}

	var history []Transition
	healed, err = s.readOrHeal(s.historyPath, &history, func() error { return checkHistory(history) })
	if err != nil {
		return snap, nil, err
	}
	if healed {
		history = nil
	}
	return snap, history, nil
}

// Read decodes both files without repairing anything, for observers that
// do not own the breaker. Corruption is reported as an error.
func (s *Store) Read() (Snapshot, []Transition, error) {
	snap := InitialSnapshot()
	if err := readChecked(s.statePath, &snap, func() error { return checkSnapshot(&snap) }); err != nil {
		return InitialSnapshot(), nil, err
	}
	var history []Transition
	if err := readChecked(s.historyPath, &history, func() error { return checkHistory(history) }); err != nil {
		return snap, nil, err
	}
	return snap, history, nil
}

func checkSnapshot(snap *Snapshot) error {
	if snap.State == "" {
		snap.State = StateClosed
	}
	if err := snap.valid(); err != nil {
		return fmt.Errorf("%w: %v", fsutil.ErrCorrupt, err)
	}
	return nil
}

func checkHistory(history []Transition) error {
	for i, tr := range history {
		if !tr.From.Valid() || !tr.To.Valid() {
			return fmt.Errorf("%w: transition %d: unknown state %q -> %q", fsutil.ErrCorrupt, i, tr.From, tr.To)
		}
	}
	return nil
}

// readChecked decodes path into v and runs check when the file exists.
// Corruption comes back as a STATE_CORRUPTED domain error.
func readChecked(path string, v interface{}, check func() error) error {
	found, err := fsutil.ReadJSON(path, v)
	if err == nil && found {
		err = check()
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, fsutil.ErrCorrupt) {
		return core.ErrPersistenceCorruption(path).WithCause(err)
	}
	return err
}

// readOrHeal is readChecked that moves a corrupt file aside and reports
// healed. v is then partly filled and must be discarded by the caller.
func (s *Store) readOrHeal(path string, v interface{}, check func() error) (healed bool, err error) {
	err = readChecked(path, v, check)
	if err == nil || !core.HasCode(err, core.CodeStateCorrupted) {
		return false, err
	}

	moved, mvErr := fsutil.MoveAside(path)
	s.logger.Warn("circuit breaker: reinitializing corrupt state file",
		"error", err,
		"moved_to", moved,
	)
	if mvErr != nil {
		return true, fmt.Errorf("moving corrupt file aside: %w", mvErr)
	}
	return true, nil
}

// SaveState writes the snapshot.
func (s *Store) SaveState(snap Snapshot) error {
	return fsutil.WriteJSON(s.statePath, snap)
}

// SaveHistory writes the full transition log.
func (s *Store) SaveHistory(history []Transition) error {
	if history == nil {
		history = []Transition{}
	}
	return fsutil.WriteJSON(s.historyPath, history)
}

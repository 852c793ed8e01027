package hashdict

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-cmb/sims/coord"
)

// FileName is the record written under a library directory.
const FileName = "sim_hash.yaml"

// Store persists a single Dict in a directory. The record is written once
// and never overwritten.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the record location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

func (s *Store) lock() *flock.Flock {
	return flock.New(s.Path() + ".lock")
}

// WriteOnce writes d unless a record already exists. It reports whether it
// wrote.
func (s *Store) WriteOnce(d Dict) (bool, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return false, fmt.Errorf("hashdict: failed to create library directory %q: %w", s.dir, err)
	}

	lock := s.lock()
	if err := lock.Lock(); err != nil {
		return false, fmt.Errorf("hashdict: failed to lock %q: %w", s.Path(), err)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := os.Stat(s.Path()); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("hashdict: failed to stat %q: %w", s.Path(), err)
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("hashdict: encode: %w", err)
	}

	tempPath := s.Path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return false, fmt.Errorf("hashdict: failed to write %q: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, s.Path()); err != nil {
		_ = os.Remove(tempPath)
		return false, fmt.Errorf("hashdict: failed to rename %q: %w", tempPath, err)
	}
	return true, nil
}

// Load reads the stored record.
func (s *Store) Load() (map[string]any, error) {
	lock := s.lock()
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("hashdict: failed to lock %q: %w", s.Path(), err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("hashdict: failed to read %q: %w", s.Path(), err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("hashdict: failed to decode %q: %w", s.Path(), err)
	}
	return out, nil
}

// Sync runs the collective consistency check for one library directory.
//
// The leader writes the record if absent, then every member waits at the
// barrier, loads the record and compares it with fresh. The members then
// exchange their outcomes, so a failure on any member fails Sync on all of
// them. The leader always reaches the barrier, even when its write failed,
// so no member is left blocked.
func Sync(ctx context.Context, dir string, c coord.Coordinator, fresh Dict, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := NewStore(dir)
	logger = logger.With("path", store.Path(), "rank", c.Rank())

	var writeErr error
	if c.Rank() == 0 {
		wrote, err := store.WriteOnce(fresh)
		switch {
		case err != nil:
			writeErr = err
			logger.Error("writing hash record failed", "error", err)
		case wrote:
			logger.Info("wrote hash record")
		}
	}

	if err := c.Barrier(ctx); err != nil {
		return fmt.Errorf("hashdict: barrier: %w", err)
	}

	localErr := writeErr
	if localErr == nil {
		localErr = check(store, fresh, logger)
	}

	allOK, err := c.Agree(ctx, localErr == nil)
	if err != nil {
		return fmt.Errorf("hashdict: outcome exchange: %w", err)
	}
	if localErr != nil {
		return localErr
	}
	if !allOK {
		logger.Error("hash check failed on another rank")
		return fmt.Errorf("%w: %s: check failed on another rank", ErrMismatch, store.Path())
	}

	logger.Debug("hash check passed")
	return nil
}

func check(store *Store, fresh Dict, logger *slog.Logger) error {
	stored, err := store.Load()
	if err != nil {
		return err
	}
	if err := Compare(stored, fresh); err != nil {
		var mm *MismatchError
		if errors.As(err, &mm) {
			logger.Error("hash check failed", "key", mm.Key, "reason", mm.Reason, "diff", mm.Diff)
		}
		return err
	}
	return nil
}

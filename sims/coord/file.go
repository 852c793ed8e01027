package coord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	markerOK   = []byte("ok")
	markerFail = []byte("fail")
)

// FileGroup coordinates independent processes through marker files in a
// shared directory. Markers live in a subdirectory named after the run, and
// each barrier round has its own generation number, so one directory serves
// successive barriers and successive runs.
type FileGroup struct {
	dir        string
	rank, size int
	generation int
	// MaxInterval caps the polling backoff.
	MaxInterval time.Duration
}

// NewFileGroup returns the coordinator for one process of a file-backed
// group. Every process of a run passes the same run identifier, and a new
// run needs a new one: markers left by an earlier run with the same
// identifier make NewFileGroup fail with ErrRunReused.
func NewFileGroup(dir, run string, rank, size int) (*FileGroup, error) {
	if size <= 0 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("%w: rank %d of %d", ErrInvalidGroup, rank, size)
	}
	if run == "" || run == "." || run == ".." || filepath.Base(run) != run {
		return nil, fmt.Errorf("%w: run identifier %q", ErrInvalidGroup, run)
	}
	f := &FileGroup{dir: filepath.Join(dir, run), rank: rank, size: size, MaxInterval: time.Second}
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return nil, fmt.Errorf("coord: failed to create barrier directory %q: %w", f.dir, err)
	}

	_, err := os.Stat(f.marker(0, rank))
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %q in %q", ErrRunReused, run, dir)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("coord: failed to stat barrier marker: %w", err)
	}
	return f, nil
}

func (f *FileGroup) Rank() int { return f.rank }
func (f *FileGroup) Size() int { return f.size }

func (f *FileGroup) marker(gen, rank int) string {
	return filepath.Join(f.dir, fmt.Sprintf("barrier-%d-%d.done", gen, rank))
}

// Barrier drops this rank's marker for the current generation and polls
// until every rank's marker is present.
func (f *FileGroup) Barrier(ctx context.Context) error {
	_, err := f.Agree(ctx, true)
	return err
}

// Agree records ok in this rank's marker for the current generation, waits
// for every rank's marker and reports whether all of them recorded ok.
func (f *FileGroup) Agree(ctx context.Context, ok bool) (bool, error) {
	gen := f.generation
	f.generation++

	if err := f.writeMarker(gen, ok); err != nil {
		return false, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 5 * time.Millisecond
	eb.MaxInterval = f.MaxInterval

	allOK, err := backoff.Retry(ctx, func() (bool, error) {
		all := true
		for r := range f.size {
			data, err := os.ReadFile(f.marker(gen, r))
			if errors.Is(err, fs.ErrNotExist) {
				return false, fmt.Errorf("coord: waiting for rank %d", r)
			}
			if err != nil {
				return false, backoff.Permanent(err)
			}
			if !bytes.Equal(data, markerOK) {
				all = false
			}
		}
		return all, nil
	}, backoff.WithBackOff(eb), backoff.WithMaxElapsedTime(0))
	if err != nil {
		return false, fmt.Errorf("coord: barrier generation %d: %w", gen, err)
	}
	return allOK, nil
}

// writeMarker publishes the marker through a rename so readers never see a
// partial file.
func (f *FileGroup) writeMarker(gen int, ok bool) error {
	body := markerOK
	if !ok {
		body = markerFail
	}
	path := f.marker(gen, f.rank)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0600); err != nil {
		return fmt.Errorf("coord: failed to write barrier marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("coord: failed to write barrier marker: %w", err)
	}
	return nil
}

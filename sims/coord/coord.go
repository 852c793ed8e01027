// Package coord provides the rank and barrier primitives used when several
// processes share a library directory.
package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidGroup is returned for a non-positive group size or a rank
	// outside [0, size).
	ErrInvalidGroup = errors.New("coord: invalid group")
	// ErrBroken is returned by Barrier once any member abandoned a barrier.
	ErrBroken = errors.New("coord: barrier broken")
	// ErrRunReused is returned by NewFileGroup when the run directory
	// already holds this rank's markers from an earlier run.
	ErrRunReused = errors.New("coord: run identifier already used")
)

// Coordinator is the collective a library participates in. Rank 0 is the
// leader.
type Coordinator interface {
	Rank() int
	Size() int
	// Barrier blocks until every member has called it.
	Barrier(ctx context.Context) error
	// Agree is a barrier that also reports whether every member passed
	// ok. All members observe the same result.
	Agree(ctx context.Context, ok bool) (bool, error)
}

type solo struct{}

// Solo returns a single-member coordinator. Its barrier returns at once.
func Solo() Coordinator { return solo{} }

func (solo) Rank() int { return 0 }
func (solo) Size() int { return 1 }

func (solo) Barrier(ctx context.Context) error { return ctx.Err() }

func (solo) Agree(ctx context.Context, ok bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return ok, nil
}

// round is one barrier generation. allOK is written before done is closed.
type round struct {
	done   chan struct{}
	failed bool
	allOK  bool
}

// Group is an in-process cyclic barrier shared by n members, typically
// goroutines.
type Group struct {
	mu      sync.Mutex
	size    int
	waiting int
	round   *round
	broken  bool
}

// NewGroup returns a group of n members.
func NewGroup(n int) (*Group, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidGroup, n)
	}
	return &Group{size: n, round: &round{done: make(chan struct{})}}, nil
}

// Member returns the coordinator for rank r.
func (g *Group) Member(r int) (Coordinator, error) {
	if r < 0 || r >= g.size {
		return nil, fmt.Errorf("%w: rank %d of %d", ErrInvalidGroup, r, g.size)
	}
	return &member{group: g, rank: r}, nil
}

func (g *Group) await(ctx context.Context, ok bool) (bool, error) {
	g.mu.Lock()
	if g.broken {
		g.mu.Unlock()
		return false, ErrBroken
	}
	rd := g.round
	if !ok {
		rd.failed = true
	}
	g.waiting++
	if g.waiting == g.size {
		g.waiting = 0
		g.round = &round{done: make(chan struct{})}
		rd.allOK = !rd.failed
		close(rd.done)
		g.mu.Unlock()
		return rd.allOK, nil
	}
	g.mu.Unlock()

	select {
	case <-rd.done:
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.broken {
			return false, ErrBroken
		}
		return rd.allOK, nil
	case <-ctx.Done():
		g.mu.Lock()
		defer g.mu.Unlock()
		// Released concurrently with cancellation.
		select {
		case <-rd.done:
			if !g.broken {
				return rd.allOK, nil
			}
		default:
		}
		if !g.broken {
			g.broken = true
			close(rd.done)
		}
		return false, fmt.Errorf("%w: %w", ErrBroken, ctx.Err())
	}
}

type member struct {
	group *Group
	rank  int
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.group.size }

func (m *member) Barrier(ctx context.Context) error {
	_, err := m.group.await(ctx, true)
	return err
}

func (m *member) Agree(ctx context.Context, ok bool) (bool, error) {
	return m.group.await(ctx, ok)
}

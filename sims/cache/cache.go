// Package cache memoises filtered maps on disk, keyed by the content digest
// of the filter configuration and the simulation index.
package cache

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/sync/singleflight"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sims/ivf"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

const prefixTEB = "teb/"

// Store is a LevelDB database of filtered maps.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func tebPrefix(digest string) string {
	return prefixTEB + digest + "/"
}

func tebKey(digest string, i int) []byte {
	return []byte(tebPrefix(digest) + strconv.Itoa(i))
}

// Get returns the stored map for (digest, i). The boolean reports a hit.
func (s *Store) Get(digest string, i int) (*maps.TEBFFT, bool, error) {
	data, err := s.db.Get(tebKey(digest, i), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s/%d: %w", digest, i, err)
	}
	teb, err := decodeTEB(data)
	if err != nil {
		return nil, false, err
	}
	return teb, true, nil
}

// Put stores f under (digest, i).
func (s *Store) Put(digest string, i int, f *maps.TEBFFT) error {
	if err := s.db.Put(tebKey(digest, i), encodeTEB(f), nil); err != nil {
		return fmt.Errorf("cache: put %s/%d: %w", digest, i, err)
	}
	return nil
}

// Len counts the maps stored for digest.
func (s *Store) Len(digest string) (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(tebPrefix(digest))), nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Purge deletes every map stored for digest and reports how many were
// removed.
func (s *Store) Purge(digest string) (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(tebPrefix(digest))), nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("cache: purge %s: %w", digest, err)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("cache: purge %s: %w", digest, err)
	}
	return batch.Len(), nil
}

type cached struct {
	ivf.Library
	store  *Store
	digest string
	group  singleflight.Group
}

// Wrap returns a Library whose SimTEB results are read from and written to
// s. Concurrent requests for the same index are computed once.
func Wrap(lib ivf.Library, s *Store) (ivf.Library, error) {
	digest, err := hashdict.Digest(lib.HashDict())
	if err != nil {
		return nil, err
	}
	return &cached{Library: lib, store: s, digest: digest}, nil
}

// Digest returns the key prefix used for lib's entries.
func Digest(lib ivf.Library) string {
	if c, ok := lib.(*cached); ok {
		return c.digest
	}
	return ""
}

func (c *cached) SimTEB(i int) (*maps.TEBFFT, error) {
	if teb, ok, err := c.store.Get(c.digest, i); err != nil || ok {
		return teb, err
	}

	v, err, shared := c.group.Do(strconv.Itoa(i), func() (any, error) {
		teb, err := c.Library.SimTEB(i)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(c.digest, i, teb); err != nil {
			return nil, err
		}
		return teb, nil
	})
	if err != nil {
		return nil, err
	}
	teb := v.(*maps.TEBFFT)
	if shared {
		teb = teb.Clone()
	}
	return teb, nil
}

// Package memory provides an in-process multi-version ledger. It backs local
// runs and unit tests and enforces the same optimistic commit rules as the
// Postgres and Redis backends.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"chainguard/internal/ledger"
	"chainguard/pkg/platform/sentinel"
)

type entry struct {
	value   []byte
	version uint64
}

// Store keeps live state plus the full version log of every key.
type Store struct {
	mu       sync.RWMutex
	seq      uint64
	state    map[string]entry
	versions map[string][]ledger.Version
}

// New returns an empty in-memory ledger.
func New() *Store {
	return &Store{
		state:    make(map[string]entry),
		versions: make(map[string][]ledger.Version),
	}
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s, buf: ledger.NewTxBuffer()}, nil
}

// Get returns the committed value of key.
func (s *Store) Get(_ context.Context, key string) (ledger.KV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state[key]
	if !ok {
		return ledger.KV{}, sentinel.ErrNotFound
	}
	return ledger.KV{Key: key, Value: slices.Clone(e.value), Version: e.version}, nil
}

// ScanPrefix returns committed keys with the prefix in lexicographic order.
func (s *Store) ScanPrefix(_ context.Context, prefix string) ([]ledger.KV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.KV, 0)
	for k, e := range s.state {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ledger.KV{Key: k, Value: slices.Clone(e.value), Version: e.version})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// History returns every committed version of key, oldest first.
func (s *Store) History(_ context.Context, key string) ([]ledger.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[key]
	if !ok || len(versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	out := make([]ledger.Version, len(versions))
	for i, v := range versions {
		v.Value = slices.Clone(v.Value)
		out[i] = v
	}
	return out, nil
}

func (s *Store) commit(buf *ledger.TxBuffer, meta ledger.CommitMeta) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, readVersion := range buf.Reads() {
		if s.state[key].version != readVersion {
			return 0, sentinel.ErrConflict
		}
	}

	writes := buf.Writes()
	if len(writes) == 0 {
		return 0, nil
	}

	s.seq++
	seq := s.seq
	for _, w := range writes {
		v := ledger.Version{
			Seq:       seq,
			TxID:      meta.TxID,
			Actor:     meta.Actor,
			Timestamp: meta.Timestamp,
		}
		if w.Delete {
			delete(s.state, w.Key)
			v.IsDelete = true
		} else {
			s.state[w.Key] = entry{value: w.Value, version: seq}
			v.Value = w.Value
		}
		s.versions[w.Key] = append(s.versions[w.Key], v)
	}
	return seq, nil
}

// Tx is an optimistic transaction against Store.
type Tx struct {
	store *Store
	buf   *ledger.TxBuffer
}

// Get reads through the write buffer, then committed state.
func (t *Tx) Get(_ context.Context, key string) ([]byte, error) {
	if w, ok := t.buf.Buffered(key); ok {
		if w.Delete {
			return nil, sentinel.ErrNotFound
		}
		return slices.Clone(w.Value), nil
	}

	t.store.mu.RLock()
	e, ok := t.store.state[key]
	t.store.mu.RUnlock()

	t.buf.RecordRead(key, e.version)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(e.value), nil
}

func (t *Tx) Put(key string, value []byte) error { return t.buf.Put(key, value) }

func (t *Tx) Delete(key string) error { return t.buf.Delete(key) }

// Commit validates the read set and applies buffered writes atomically.
func (t *Tx) Commit(ctx context.Context, meta ledger.CommitMeta) (uint64, error) {
	if err := ctx.Err(); err != nil {
		t.buf.Discard()
		return 0, err
	}
	if err := t.buf.Finish(); err != nil {
		return 0, err
	}
	return t.store.commit(t.buf, meta)
}

func (t *Tx) Rollback() { t.buf.Discard() }

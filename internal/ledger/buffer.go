package ledger

import (
	"slices"
	"sync"

	"chainguard/pkg/platform/sentinel"
)

// Write is one buffered mutation.
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// TxBuffer tracks the read set and write set of a transaction. Backends embed
// it so read-your-writes and conflict bookkeeping behave the same everywhere.
type TxBuffer struct {
	mu     sync.Mutex
	reads  map[string]uint64
	writes map[string]Write
	done   bool
}

// NewTxBuffer returns an empty buffer.
func NewTxBuffer() *TxBuffer {
	return &TxBuffer{
		reads:  make(map[string]uint64),
		writes: make(map[string]Write),
	}
}

// Buffered returns the pending write for key, if any.
func (b *TxBuffer) Buffered(key string) (Write, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.writes[key]
	return w, ok
}

// RecordRead remembers the version first observed for key. Zero means absent.
func (b *TxBuffer) RecordRead(key string, version uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.reads[key]; !seen {
		b.reads[key] = version
	}
}

// Put buffers a value for key.
func (b *TxBuffer) Put(key string, value []byte) error {
	return b.set(Write{Key: key, Value: slices.Clone(value)})
}

// Delete buffers a tombstone for key.
func (b *TxBuffer) Delete(key string) error {
	return b.set(Write{Key: key, Delete: true})
}

func (b *TxBuffer) set(w Write) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return sentinel.ErrAlreadyUsed
	}
	if w.Key == "" {
		return sentinel.ErrInvalidState
	}
	b.writes[w.Key] = w
	return nil
}

// Reads returns a copy of the read set.
func (b *TxBuffer) Reads() map[string]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]uint64, len(b.reads))
	for k, v := range b.reads {
		out[k] = v
	}
	return out
}

// Writes returns buffered writes sorted by key. Sorted order keeps lock
// acquisition consistent across concurrent commits.
func (b *TxBuffer) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Write, 0, len(b.writes))
	for _, w := range b.writes {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, c Write) int {
		switch {
		case a.Key < c.Key:
			return -1
		case a.Key > c.Key:
			return 1
		}
		return 0
	})
	return out
}

// Finish marks the buffer as used. It returns sentinel.ErrAlreadyUsed when
// the transaction was already committed or rolled back.
func (b *TxBuffer) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return sentinel.ErrAlreadyUsed
	}
	b.done = true
	return nil
}

// Discard drops buffered state without error.
func (b *TxBuffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
	b.writes = make(map[string]Write)
}

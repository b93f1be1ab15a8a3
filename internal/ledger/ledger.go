// Package ledger defines the versioned key-value store the custody core runs on.
//
// A Store offers committed point reads, ordered prefix scans and the full
// version history of a key. Mutations go through a Tx: reads inside a Tx see
// the Tx's own buffered writes, and Commit applies every buffered put and
// delete atomically after checking that no key read by the Tx has changed
// since it was read. A failed check returns sentinel.ErrConflict and applies
// nothing. Backends never retry.
package ledger

import (
	"context"
	"time"
)

// Store is the read side of a ledger plus the entry point for transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, key string) (KV, error)
	ScanPrefix(ctx context.Context, prefix string) ([]KV, error)
	History(ctx context.Context, key string) ([]Version, error)
}

// Tx buffers writes until Commit.
type Tx interface {
	// Get returns the value visible to this transaction, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Commit applies all buffered writes as one version and returns its
	// sequence. A commit with no writes still verifies its reads and returns 0.
	Commit(ctx context.Context, meta CommitMeta) (uint64, error)
	// Rollback discards buffered writes. Safe to call after Commit.
	Rollback()
}

// KV is a committed key with its current value and version.
type KV struct {
	Key     string
	Value   []byte
	Version uint64
}

// Version is one committed write of a key. Deletes are recorded as
// tombstones so history stays complete.
type Version struct {
	Seq       uint64    `json:"seq"`
	TxID      string    `json:"txId"`
	Value     []byte    `json:"value,omitempty"`
	IsDelete  bool      `json:"isDelete,omitempty"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// CommitMeta is recorded with every version written by a commit.
type CommitMeta struct {
	TxID      string
	Actor     string
	Timestamp time.Time
}

// PrefixEnd returns the smallest string greater than every string with the
// given prefix, or "" when no such bound exists.
func PrefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}

// Package postgres implements the ledger on PostgreSQL.
//
// Live values sit in ledger_state; every committed write (including delete
// tombstones) is appended to ledger_history under a commit sequence drawn from
// ledger_commit_seq. Commit locks the rows it read with FOR UPDATE, compares
// their versions to the ones observed, then writes state and history inside
// one SQL transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"chainguard/internal/ledger"
	"chainguard/pkg/platform/sentinel"
)

// Schema creates the ledger tables. Keys use the C collation so ORDER BY
// matches byte-wise prefix ordering.
const Schema = `
CREATE SEQUENCE IF NOT EXISTS ledger_commit_seq;

CREATE TABLE IF NOT EXISTS ledger_state (
	key     TEXT COLLATE "C" PRIMARY KEY,
	value   BYTEA NOT NULL,
	version BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_history (
	key          TEXT COLLATE "C" NOT NULL,
	version      BIGINT NOT NULL,
	tx_id        UUID NOT NULL,
	value        BYTEA,
	is_delete    BOOLEAN NOT NULL DEFAULT FALSE,
	actor        TEXT NOT NULL,
	committed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (key, version)
);
`

// Postgres error codes treated as optimistic conflicts.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Store is a PostgreSQL-backed ledger.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the ledger tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s, buf: ledger.NewTxBuffer()}, nil
}

func (s *Store) Get(ctx context.Context, key string) (ledger.KV, error) {
	kv := ledger.KV{Key: key}
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM ledger_state WHERE key = $1`, key,
	).Scan(&kv.Value, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.KV{}, sentinel.ErrNotFound
		}
		return ledger.KV{}, fmt.Errorf("get ledger key: %w", err)
	}
	kv.Version = uint64(version)
	return kv, nil
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]ledger.KV, error) {
	query := `SELECT key, value, version FROM ledger_state WHERE key >= $1 ORDER BY key`
	args := []any{prefix}
	if end := ledger.PrefixEnd(prefix); end != "" {
		query = `SELECT key, value, version FROM ledger_state WHERE key >= $1 AND key < $2 ORDER BY key`
		args = append(args, end)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan ledger prefix: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.KV, 0)
	for rows.Next() {
		var kv ledger.KV
		var version int64
		if err := rows.Scan(&kv.Key, &kv.Value, &version); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		kv.Version = uint64(version)
		out = append(out, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return out, nil
}

func (s *Store) History(ctx context.Context, key string) ([]ledger.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, tx_id, value, is_delete, actor, committed_at
		FROM ledger_history
		WHERE key = $1
		ORDER BY version`, key)
	if err != nil {
		return nil, fmt.Errorf("query ledger history: %w", err)
	}
	defer rows.Close()

	var out []ledger.Version
	for rows.Next() {
		var v ledger.Version
		var seq int64
		var txID uuid.UUID
		if err := rows.Scan(&seq, &txID, &v.Value, &v.IsDelete, &v.Actor, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan ledger history: %w", err)
		}
		v.Seq = uint64(seq)
		v.TxID = txID.String()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger history: %w", err)
	}
	if len(out) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return out, nil
}

func (s *Store) commit(ctx context.Context, buf *ledger.TxBuffer, meta ledger.CommitMeta) (uint64, error) {
	txID, err := uuid.Parse(meta.TxID)
	if err != nil {
		return 0, fmt.Errorf("commit tx id: %w", sentinel.ErrInvalidState)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ledger commit: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	reads := buf.Reads()
	if err := verifyReads(ctx, sqlTx, reads); err != nil {
		return 0, err
	}

	writes := buf.Writes()
	if len(writes) == 0 {
		return 0, nil
	}

	var seq int64
	if err := sqlTx.QueryRowContext(ctx, `SELECT nextval('ledger_commit_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next commit sequence: %w", err)
	}

	for _, w := range writes {
		if err := applyWrite(ctx, sqlTx, w, reads, seq); err != nil {
			return 0, err
		}
		var value []byte
		if !w.Delete {
			value = w.Value
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO ledger_history (key, version, tx_id, value, is_delete, actor, committed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			w.Key, seq, txID, value, w.Delete, meta.Actor, meta.Timestamp)
		if err != nil {
			return 0, translate(err, "append ledger history")
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, translate(err, "commit ledger transaction")
	}
	return uint64(seq), nil
}

// verifyReads locks every row the transaction read and checks it still
// carries the observed version. Keys read as absent must still be absent.
func verifyReads(ctx context.Context, sqlTx *sql.Tx, reads map[string]uint64) error {
	if len(reads) == 0 {
		return nil
	}
	keys := make([]string, 0, len(reads))
	for k := range reads {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows, err := sqlTx.QueryContext(ctx,
		`SELECT key, version FROM ledger_state WHERE key = ANY($1) ORDER BY key FOR UPDATE`,
		pq.Array(keys))
	if err != nil {
		return translate(err, "lock read set")
	}
	defer rows.Close()

	current := make(map[string]uint64, len(keys))
	for rows.Next() {
		var key string
		var version int64
		if err := rows.Scan(&key, &version); err != nil {
			return fmt.Errorf("scan read set: %w", err)
		}
		current[key] = uint64(version)
	}
	if err := rows.Err(); err != nil {
		return translate(err, "iterate read set")
	}

	for k, observed := range reads {
		if current[k] != observed {
			return sentinel.ErrConflict
		}
	}
	return nil
}

func applyWrite(ctx context.Context, sqlTx *sql.Tx, w ledger.Write, reads map[string]uint64, seq int64) error {
	if w.Delete {
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM ledger_state WHERE key = $1`, w.Key); err != nil {
			return translate(err, "delete ledger key")
		}
		return nil
	}

	if observed, wasRead := reads[w.Key]; wasRead && observed == 0 {
		// Read as absent: a concurrent creator must make this commit fail.
		res, err := sqlTx.ExecContext(ctx, `
			INSERT INTO ledger_state (key, value, version) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO NOTHING`, w.Key, w.Value, seq)
		if err != nil {
			return translate(err, "insert ledger key")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert ledger key: %w", err)
		}
		if n == 0 {
			return sentinel.ErrConflict
		}
		return nil
	}

	_, err := sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_state (key, value, version) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = EXCLUDED.version`,
		w.Key, w.Value, seq)
	if err != nil {
		return translate(err, "upsert ledger key")
	}
	return nil
}

func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Tx buffers writes and validates its read set at commit.
type Tx struct {
	store *Store
	buf   *ledger.TxBuffer
}

func (t *Tx) Get(ctx context.Context, key string) ([]byte, error) {
	if w, ok := t.buf.Buffered(key); ok {
		if w.Delete {
			return nil, sentinel.ErrNotFound
		}
		return slices.Clone(w.Value), nil
	}
	kv, err := t.store.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		t.buf.RecordRead(key, 0)
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.buf.RecordRead(key, kv.Version)
	return kv.Value, nil
}

func (t *Tx) Put(key string, value []byte) error { return t.buf.Put(key, value) }

func (t *Tx) Delete(key string) error { return t.buf.Delete(key) }

func (t *Tx) Commit(ctx context.Context, meta ledger.CommitMeta) (uint64, error) {
	if err := t.buf.Finish(); err != nil {
		return 0, err
	}
	return t.store.commit(ctx, t.buf, meta)
}

func (t *Tx) Rollback() { t.buf.Discard() }

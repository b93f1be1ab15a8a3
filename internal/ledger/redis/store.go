// Package redis implements the ledger on Redis.
//
// Layout under a namespace prefix:
//
//	<ns>:s:<key>  hash {v: value, ver: version}   live state
//	<ns>:keys     sorted set of live keys         ordered prefix scans (ZRANGEBYLEX)
//	<ns>:h:<key>  list of JSON versions           history, oldest first
//	<ns>:seq      commit sequence counter
//
// Commit WATCHes the state hashes of every key the transaction read, re-checks
// their versions and applies all writes in one MULTI/EXEC. A concurrent change
// to a watched key aborts EXEC with redis.TxFailedErr, reported as
// sentinel.ErrConflict.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"

	"chainguard/internal/ledger"
	"chainguard/pkg/platform/sentinel"
)

const (
	fieldValue   = "v"
	fieldVersion = "ver"

	defaultNamespace = "chainguard"
)

// Store is a Redis-backed ledger.
type Store struct {
	client redis.UniversalClient
	ns     string
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace sets the key prefix, isolating ledgers sharing one Redis.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.ns = ns
		}
	}
}

// New constructs a Redis-backed ledger.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, ns: defaultNamespace}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) stateKey(key string) string   { return s.ns + ":s:" + key }
func (s *Store) historyKey(key string) string { return s.ns + ":h:" + key }
func (s *Store) indexKey() string             { return s.ns + ":keys" }
func (s *Store) seqKey() string               { return s.ns + ":seq" }

func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s, buf: ledger.NewTxBuffer()}, nil
}

func (s *Store) Get(ctx context.Context, key string) (ledger.KV, error) {
	return s.read(ctx, s.client, key)
}

func (s *Store) read(ctx context.Context, c redis.Cmdable, key string) (ledger.KV, error) {
	vals, err := c.HMGet(ctx, s.stateKey(key), fieldValue, fieldVersion).Result()
	if err != nil {
		return ledger.KV{}, fmt.Errorf("read ledger key: %w", err)
	}
	return decodeState(key, vals)
}

func decodeState(key string, vals []any) (ledger.KV, error) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return ledger.KV{}, sentinel.ErrNotFound
	}
	value, ok := vals[0].(string)
	if !ok {
		return ledger.KV{}, sentinel.ErrInvalidState
	}
	verStr, ok := vals[1].(string)
	if !ok {
		return ledger.KV{}, sentinel.ErrInvalidState
	}
	version, err := strconv.ParseUint(verStr, 10, 64)
	if err != nil {
		return ledger.KV{}, fmt.Errorf("parse ledger version: %w", sentinel.ErrInvalidState)
	}
	return ledger.KV{Key: key, Value: []byte(value), Version: version}, nil
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]ledger.KV, error) {
	rng := &redis.ZRangeBy{Min: "-", Max: "+"}
	if prefix != "" {
		rng.Min = "[" + prefix
	}
	if end := ledger.PrefixEnd(prefix); end != "" {
		rng.Max = "(" + end
	}
	keys, err := s.client.ZRangeByLex(ctx, s.indexKey(), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("scan ledger prefix: %w", err)
	}
	if len(keys) == 0 {
		return []ledger.KV{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HMGet(ctx, s.stateKey(k), fieldValue, fieldVersion)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load scanned keys: %w", err)
	}

	out := make([]ledger.KV, 0, len(keys))
	for i, k := range keys {
		kv, err := decodeState(k, cmds[i].Val())
		if errors.Is(err, sentinel.ErrNotFound) {
			// Removed between the range read and the value read.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, kv)
	}
	return out, nil
}

func (s *Store) History(ctx context.Context, key string) ([]ledger.Version, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ledger history: %w", err)
	}
	if len(raw) == 0 {
		return nil, sentinel.ErrNotFound
	}
	out := make([]ledger.Version, 0, len(raw))
	for _, item := range raw {
		var v ledger.Version
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("decode ledger history: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) commit(ctx context.Context, buf *ledger.TxBuffer, meta ledger.CommitMeta) (uint64, error) {
	reads := buf.Reads()
	writes := buf.Writes()

	watched := make([]string, 0, len(reads))
	for k := range reads {
		watched = append(watched, s.stateKey(k))
	}
	slices.Sort(watched)

	var seq uint64
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		for k, observed := range reads {
			kv, err := s.read(ctx, rtx, k)
			var current uint64
			switch {
			case err == nil:
				current = kv.Version
			case errors.Is(err, sentinel.ErrNotFound):
				current = 0
			default:
				return err
			}
			if current != observed {
				return sentinel.ErrConflict
			}
		}
		if len(writes) == 0 {
			return nil
		}

		next, err := rtx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return fmt.Errorf("next commit sequence: %w", err)
		}
		seq = uint64(next)

		history := make([][]byte, len(writes))
		for i, w := range writes {
			v := ledger.Version{
				Seq:       seq,
				TxID:      meta.TxID,
				Actor:     meta.Actor,
				Timestamp: meta.Timestamp,
				IsDelete:  w.Delete,
			}
			if !w.Delete {
				v.Value = w.Value
			}
			encoded, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode ledger history: %w", err)
			}
			history[i] = encoded
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, w := range writes {
				if w.Delete {
					pipe.Del(ctx, s.stateKey(w.Key))
					pipe.ZRem(ctx, s.indexKey(), w.Key)
				} else {
					pipe.HSet(ctx, s.stateKey(w.Key),
						fieldValue, w.Value,
						fieldVersion, strconv.FormatUint(seq, 10))
					pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: 0, Member: w.Key})
				}
				pipe.RPush(ctx, s.historyKey(w.Key), history[i])
			}
			return nil
		})
		return err
	}, watched...)

	if errors.Is(err, redis.TxFailedErr) {
		return 0, sentinel.ErrConflict
	}
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Tx buffers writes and validates its read set under WATCH at commit.
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

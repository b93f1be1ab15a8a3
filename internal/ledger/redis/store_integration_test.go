//go:build integration

package redis_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chainguard/internal/ledger"
	ledgerredis "chainguard/internal/ledger/redis"
	"chainguard/pkg/platform/sentinel"
	"chainguard/pkg/testutil/containers"
)

type RedisLedgerSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ledgerredis.Store
}

func TestRedisLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLedgerSuite))
}

func (s *RedisLedgerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = ledgerredis.New(s.redis.Client, ledgerredis.WithNamespace("test"))
}

func (s *RedisLedgerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func meta(actor string) ledger.CommitMeta {
	return ledger.CommitMeta{TxID: uuid.NewString(), Actor: actor, Timestamp: time.Now().UTC()}
}

func (s *RedisLedgerSuite) put(key, value string) uint64 {
	ctx := context.Background()
	tx, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	s.Require().NoError(tx.Put(key, []byte(value)))
	seq, err := tx.Commit(ctx, meta("writer"))
	s.Require().NoError(err)
	return seq
}

func (s *RedisLedgerSuite) TestCommitAndHistory() {
	ctx := context.Background()
	first := s.put("EVIDENCE:E1", "v1")
	second := s.put("EVIDENCE:E1", "v2")
	s.Greater(second, first)

	tx, _ := s.store.Begin(ctx)
	_, err := tx.Get(ctx, "EVIDENCE:E1")
	s.Require().NoError(err)
	s.Require().NoError(tx.Delete("EVIDENCE:E1"))
	_, err = tx.Commit(ctx, meta("remover"))
	s.Require().NoError(err)

	_, err = s.store.Get(ctx, "EVIDENCE:E1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	history, err := s.store.History(ctx, "EVIDENCE:E1")
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal([]byte("v1"), history[0].Value)
	s.True(history[2].IsDelete)
	s.Equal("remover", history[2].Actor)
}

func (s *RedisLedgerSuite) TestScanPrefixSkipsDeleted() {
	ctx := context.Background()
	s.put("IDX~CUSTODIAN\x1fidp:bob\x1fE2", "EVIDENCE:E2")
	s.put("IDX~CUSTODIAN\x1fidp:bob\x1fE1", "EVIDENCE:E1")
	s.put("IDX~CUSTODIAN\x1fidp:bobby\x1fE3", "EVIDENCE:E3")

	tx, _ := s.store.Begin(ctx)
	s.Require().NoError(tx.Delete("IDX~CUSTODIAN\x1fidp:bob\x1fE2"))
	_, err := tx.Commit(ctx, meta("x"))
	s.Require().NoError(err)

	kvs, err := s.store.ScanPrefix(ctx, "IDX~CUSTODIAN\x1fidp:bob\x1f")
	s.Require().NoError(err)
	s.Require().Len(kvs, 1)
	s.Equal("IDX~CUSTODIAN\x1fidp:bob\x1fE1", kvs[0].Key)
	s.Equal([]byte("EVIDENCE:E1"), kvs[0].Value)
}

// TestWATCHConflictDetection verifies racing updates over the same read set
// yield exactly one winner.
func (s *RedisLedgerSuite) TestWATCHConflictDetection() {
	ctx := context.Background()
	s.put("EVIDENCE:E1", "v0")

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount, otherErrors atomic.Int32
	start := make(chan struct{})

	txs := make([]ledger.Tx, goroutines)
	for i := range txs {
		tx, err := s.store.Begin(ctx)
		s.Require().NoError(err)
		_, err = tx.Get(ctx, "EVIDENCE:E1")
		s.Require().NoError(err)
		s.Require().NoError(tx.Put("EVIDENCE:E1", []byte("next")))
		txs[i] = tx
	}

	for _, tx := range txs {
		wg.Add(1)
		go func(tx ledger.Tx) {
			defer wg.Done()
			<-start
			_, err := tx.Commit(ctx, meta("racer"))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			default:
				otherErrors.Add(1)
			}
		}(tx)
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one commit should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())
	s.Equal(int32(0), otherErrors.Load())
}

package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chainguard/internal/custody/models"
	"chainguard/internal/ledger"
	"chainguard/internal/ledger/memory"
	id "chainguard/pkg/domain"
)

type IndexSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	manager *Manager
}

func TestIndexSuite(t *testing.T) {
	suite.Run(t, new(IndexSuite))
}

func (s *IndexSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.manager = NewManager(s.store)
}

func (s *IndexSuite) commit(prev, next *models.EvidenceRecord) {
	tx, err := s.store.Begin(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(Sync(tx, prev, next))
	_, err = tx.Commit(s.ctx, ledger.CommitMeta{TxID: "tx", Actor: "test", Timestamp: time.Now()})
	s.Require().NoError(err)
}

func (s *IndexSuite) keys(prefix string) []string {
	kvs, err := s.store.ScanPrefix(s.ctx, prefix)
	s.Require().NoError(err)
	keys := make([]string, len(kvs))
	for i, kv := range kvs {
		keys[i] = kv.Key
	}
	return keys
}

func newRecord(eid id.EvidenceID, fp string) *models.EvidenceRecord {
	return models.NewEvidenceRecord(eid, fp, []byte{0}, "", "", time.Now())
}

func (s *IndexSuite) TestSyncNewRecord() {
	rec := newRecord("E1", "fp42")
	s.commit(nil, rec)

	s.Equal([]string{CaseKey("fp42", "E1")}, s.keys(FamilyCase))
	s.Equal([]string{StatusKey(models.StatusCreated, "E1")}, s.keys(FamilyStatus))
	s.Empty(s.keys(FamilyCustodian))

	kv, err := s.store.Get(s.ctx, CaseKey("fp42", "E1"))
	s.Require().NoError(err)
	s.Equal(RecordKey("E1"), string(kv.Value))
}

// TestSyncMovesStatusAndCustodian verifies exactly one STATUS and one
// CUSTODIAN entry remain after each step.
func (s *IndexSuite) TestSyncMovesStatusAndCustodian() {
	alice := id.CustodianRef{Issuer: "OrgA", Subject: "alice"}
	bob := id.CustodianRef{Issuer: "OrgB", Subject: "Bob"}

	created := newRecord("E1", "fp42")
	s.commit(nil, created)

	out := created.Clone()
	s.Require().NoError(out.Apply(models.Transition{Action: models.ActionCheckOut, Custodian: &alice}, models.DefaultPolicy(), time.Now()))
	s.commit(created, out)

	s.Equal([]string{StatusKey(models.StatusCheckedOut, "E1")}, s.keys(FamilyStatus))
	s.Equal([]string{CustodianKey(alice, "E1")}, s.keys(FamilyCustodian))

	moved := out.Clone()
	s.Require().NoError(moved.Apply(models.Transition{Action: models.ActionTransfer, Custodian: &bob}, models.DefaultPolicy(), time.Now()))
	s.commit(out, moved)

	s.Equal([]string{StatusKey(models.StatusInCustody, "E1")}, s.keys(FamilyStatus))
	s.Equal([]string{CustodianKey(bob, "E1")}, s.keys(FamilyCustodian))
	s.Equal([]string{CaseKey("fp42", "E1")}, s.keys(FamilyCase), "case entries are append-only and never duplicated")
}

func (s *IndexSuite) TestListOrderingAndIsolation() {
	s.commit(nil, newRecord("E2", "fpA"))
	s.commit(nil, newRecord("E1", "fpA"))
	s.commit(nil, newRecord("E3", "fpAB"))

	ids, err := s.manager.ListByCaseFingerprint(s.ctx, "fpA")
	s.Require().NoError(err)
	s.Equal([]id.EvidenceID{"E1", "E2"}, ids)

	ids, err = s.manager.ListByStatus(s.ctx, models.StatusCreated)
	s.Require().NoError(err)
	s.Equal([]id.EvidenceID{"E1", "E2", "E3"}, ids)
}

func (s *IndexSuite) TestListUnknownValuesReturnEmpty() {
	s.commit(nil, newRecord("E1", "fpA"))

	ids, err := s.manager.ListByCaseFingerprint(s.ctx, "nope")
	s.Require().NoError(err)
	s.NotNil(ids)
	s.Empty(ids)

	ids, err = s.manager.ListByCustodian(s.ctx, id.CustodianRef{Issuer: "OrgZ", Subject: "zed"})
	s.Require().NoError(err)
	s.Empty(ids)

	ids, err = s.manager.ListByStatus(s.ctx, models.Status("CREATED\x1fE"))
	s.Require().NoError(err)
	s.Empty(ids)

	ids, err = s.manager.ListByCaseFingerprint(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *IndexSuite) TestRecordNamespaceDisjoint() {
	s.commit(nil, newRecord("E1", "fpA"))
	tx, _ := s.store.Begin(s.ctx)
	s.Require().NoError(tx.Put(RecordKey("E1"), []byte("{}")))
	_, err := tx.Commit(s.ctx, ledger.CommitMeta{TxID: "tx"})
	s.Require().NoError(err)

	for _, family := range []string{FamilyCase, FamilyStatus, FamilyCustodian} {
		for _, k := range s.keys(family) {
			s.NotEqual(RecordKey("E1"), k)
		}
	}
}

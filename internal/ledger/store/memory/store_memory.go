// Package memory provides the in-memory RecordStore used by unit tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/models"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	"github.com/julianlaycock/caelith-sub002/pkg/platform/sentinel"
)

// InMemoryStore keeps per-tenant ledgers under one RWMutex. The mutex is the
// serialized section around sequence assignment and seal writes.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[id.TenantID][]*models.DecisionRecord
	sequences map[id.TenantID]int64
	allocator store.SequenceAllocator
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithAllocator delegates sequence reservation to an external allocator
// (e.g. the Redis INCR allocator) instead of the built-in counter.
func WithAllocator(alloc store.SequenceAllocator) Option {
	return func(s *InMemoryStore) {
		if alloc != nil {
			s.allocator = alloc
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		records:   make(map[id.TenantID][]*models.DecisionRecord),
		sequences: make(map[id.TenantID]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Insert(ctx context.Context, record *models.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records[record.TenantID] {
		if existing.ID == record.ID {
			return sentinel.ErrConflict
		}
	}

	if s.allocator != nil {
		seq, err := s.allocator.Next(ctx, record.TenantID)
		if err != nil {
			return err
		}
		record.SequenceNumber = seq
	} else {
		s.sequences[record.TenantID]++
		record.SequenceNumber = s.sequences[record.TenantID]
	}

	s.records[record.TenantID] = append(s.records[record.TenantID], record.Clone())
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records[tenantID] {
		if r.ID == recordID {
			return r.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListSealed(_ context.Context, tenantID id.TenantID, limit int) ([]*models.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DecisionRecord
	for _, r := range s.records[tenantID] {
		if r.Sealed() {
			out = append(out, r.Clone())
		}
	}
	sortBySequence(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListUnsealed(_ context.Context, tenantID id.TenantID) ([]*models.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DecisionRecord
	for _, r := range s.records[tenantID] {
		if !r.Sealed() {
			out = append(out, r.Clone())
		}
	}
	sortBySequence(out)
	return out, nil
}

// Seal resolves the predecessor, computes, and persists the hashes under
// the same mutex that serializes sequence assignment, so the chain tip can
// never move between lookup and write.
func (s *InMemoryStore) Seal(_ context.Context, tenantID id.TenantID, recordID id.RecordID, chain store.ChainFunc) (*models.DecisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *models.DecisionRecord
	for _, r := range s.records[tenantID] {
		if r.ID == recordID {
			target = r
			break
		}
	}
	if target == nil {
		return nil, sentinel.ErrNotFound
	}
	if target.Sealed() {
		return nil, sentinel.ErrSealed
	}

	var predecessor *models.DecisionRecord
	for _, r := range s.records[tenantID] {
		if r.Sealed() && r.SequenceNumber < target.SequenceNumber {
			if predecessor == nil || r.SequenceNumber > predecessor.SequenceNumber {
				predecessor = r
			}
		}
	}
	var prevClone *models.DecisionRecord
	if predecessor != nil {
		prevClone = predecessor.Clone()
	}

	integrityHash, previousHash := chain(target.Clone(), prevClone)
	target.IntegrityHash = &integrityHash
	target.PreviousHash = &previousHash
	return target.Clone(), nil
}

// Tamper overwrites a stored record's input snapshot in place, bypassing the
// immutability contract. Test hook for chain-break scenarios; never call
// from production code.
func (s *InMemoryStore) Tamper(tenantID id.TenantID, recordID id.RecordID, snapshot []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[tenantID] {
		if r.ID == recordID {
			r.InputSnapshot = append([]byte(nil), snapshot...)
			return true
		}
	}
	return false
}

// TamperHashes overwrites a stored record's chain fields in place, including
// setting either to nil. Test hook for chain-break scenarios; never call
// from production code.
func (s *InMemoryStore) TamperHashes(tenantID id.TenantID, recordID id.RecordID, integrityHash, previousHash *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[tenantID] {
		if r.ID == recordID {
			r.IntegrityHash = integrityHash
			r.PreviousHash = previousHash
			return true
		}
	}
	return false
}

func sortBySequence(records []*models.DecisionRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].SequenceNumber < records[j].SequenceNumber
	})
}

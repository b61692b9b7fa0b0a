// Package store declares the decision ledger's persistence seam.
package store

import (
	"context"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/models"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
)

// RecordStore is an append-only ledger of decision records with per-tenant
// monotonic sequence numbers.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts (ErrNotFound, ErrConflict, ErrSealed); services translate them.
//
// Serialization contract: Insert assigns the record's sequence number inside
// the store's own serialized section (mutex, transaction, or atomic
// increment), so two concurrent inserts for the same tenant never share a
// sequence. Seal runs inside the same per-tenant serialized section, so the
// chain predecessor it hands to the ChainFunc is always consistent with the
// write it is chaining against. Seal is the only permitted post-insert write
// and touches only the two hash fields.
type RecordStore interface {
	// Insert persists an unsealed record and assigns SequenceNumber.
	// The passed record is updated with the assigned sequence.
	Insert(ctx context.Context, record *models.DecisionRecord) error

	// Get returns the record with the given id within a tenant.
	Get(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.DecisionRecord, error)

	// ListSealed returns sealed records in ascending sequence order.
	// limit <= 0 means no cap.
	ListSealed(ctx context.Context, tenantID id.TenantID, limit int) ([]*models.DecisionRecord, error)

	// ListUnsealed returns unsealed records in ascending sequence order.
	ListUnsealed(ctx context.Context, tenantID id.TenantID) ([]*models.DecisionRecord, error)

	// Seal atomically loads the record, resolves its chain predecessor (the
	// sealed record with the highest sequence number strictly below it, or
	// nil for the first link), calls chain to compute the two hash fields,
	// and persists them. Lookup, computation, and write all happen in one
	// per-tenant serialized section so no concurrent insert or seal can
	// slip between them. Returns the sealed record. Returns
	// sentinel.ErrSealed if the record is already sealed and
	// sentinel.ErrNotFound if it does not exist.
	Seal(ctx context.Context, tenantID id.TenantID, recordID id.RecordID, chain ChainFunc) (*models.DecisionRecord, error)
}

// ChainFunc computes a record's chain hashes from its sealed predecessor.
// predecessor is nil when the record is the first link in the tenant's
// chain. Implementations of RecordStore call it inside their serialized
// section, so it must not call back into the store.
type ChainFunc func(record, predecessor *models.DecisionRecord) (integrityHash, previousHash string)

// SequenceAllocator reserves the next per-tenant sequence number. Stores
// that cannot allocate atomically themselves (or deployments that need a
// shared counter across instances) plug one in; the Redis implementation
// uses INCR as the increment-and-reserve primitive.
type SequenceAllocator interface {
	Next(ctx context.Context, tenantID id.TenantID) (int64, error)
}

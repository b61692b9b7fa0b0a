package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/models"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
	"github.com/julianlaycock/caelith-sub002/pkg/platform/sentinel"
)

// GenesisHash is the well-known previous-hash constant for the first sealed
// record in a tenant's chain. It is a fixed sentinel, not a computed digest;
// a SHA-256 output colliding with it is cryptographically negligible, so its
// presence unambiguously marks the start of a chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Integrity seals decision records into the per-tenant hash chain and
// verifies chains for tampering.
type Integrity struct {
	records store.RecordStore
	logger  *slog.Logger
}

func NewIntegrity(records store.RecordStore, logger *slog.Logger) *Integrity {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrity{records: records, logger: logger}
}

// ComputeRecordHash canonicalizes the record's immutable fields plus the
// previous hash and returns the hex SHA-256 digest.
//
// The canonical form is a JSON object with this exact key order, frozen as a
// versioned contract (changing it breaks every stored chain):
//
//	id, decision_type, subject_id, asset_id, input_snapshot,
//	rule_version_snapshot, result, result_details, decided_at, decided_by,
//	previous_hash
//
// Encoding rules: empty subject_id/decided_by and absent asset_id encode as
// null; decided_at encodes as RFC3339Nano in UTC; the three snapshot fields
// are embedded verbatim as stored, never re-marshaled.
func ComputeRecordHash(record *models.DecisionRecord, previousHash string) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeStringField(&buf, "id", record.ID.String())
	buf.WriteByte(',')
	writeStringField(&buf, "decision_type", string(record.DecisionType))
	buf.WriteByte(',')
	writeNullableField(&buf, "subject_id", record.SubjectID)
	buf.WriteByte(',')
	if record.AssetID != nil {
		writeStringField(&buf, "asset_id", record.AssetID.String())
	} else {
		writeNullableField(&buf, "asset_id", "")
	}
	buf.WriteByte(',')
	writeRawField(&buf, "input_snapshot", record.InputSnapshot)
	buf.WriteByte(',')
	writeRawField(&buf, "rule_version_snapshot", record.RuleVersionSnapshot)
	buf.WriteByte(',')
	writeStringField(&buf, "result", string(record.Result))
	buf.WriteByte(',')
	writeRawField(&buf, "result_details", record.ResultDetails)
	buf.WriteByte(',')
	writeStringField(&buf, "decided_at", record.DecidedAt.UTC().Format(time.RFC3339Nano))
	buf.WriteByte(',')
	writeNullableField(&buf, "decided_by", record.DecidedBy)
	buf.WriteByte(',')
	writeStringField(&buf, "previous_hash", previousHash)
	buf.WriteByte('}')

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func writeStringField(buf *bytes.Buffer, key, value string) {
	encoded, _ := json.Marshal(value)
	buf.WriteByte('"')
	buf.WriteString(key)
	buf.WriteString(`":`)
	buf.Write(encoded)
}

func writeNullableField(buf *bytes.Buffer, key, value string) {
	if value == "" {
		buf.WriteByte('"')
		buf.WriteString(key)
		buf.WriteString(`":null`)
		return
	}
	writeStringField(buf, key, value)
}

func writeRawField(buf *bytes.Buffer, key string, raw json.RawMessage) {
	buf.WriteByte('"')
	buf.WriteString(key)
	buf.WriteString(`":`)
	if len(raw) == 0 {
		buf.WriteString("null")
		return
	}
	buf.Write(raw)
}

// GetRecord loads one record from the ledger.
func (s *Integrity) GetRecord(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.DecisionRecord, error) {
	record, err := s.records.Get(ctx, tenantID, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound,
				fmt.Sprintf("decision record %s not found", recordID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load decision record")
	}
	return record, nil
}

// Seal chains one record: the previous hash is the integrity hash of the
// highest-sequence sealed record below it in the tenant (or GenesisHash for
// the first link), and the record's own hash is computed and persisted. The
// store runs predecessor lookup, hash computation, and the write as one
// serialized section per tenant, so an interleaved seal or insert can never
// produce two records claiming the same previous hash. Sealing a missing
// record is a hard not-found error.
func (s *Integrity) Seal(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (string, error) {
	sealed, err := s.records.Seal(ctx, tenantID, recordID,
		func(record, predecessor *models.DecisionRecord) (string, string) {
			previousHash := GenesisHash
			if predecessor != nil {
				previousHash = *predecessor.IntegrityHash
			}
			return ComputeRecordHash(record, previousHash), previousHash
		})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrSealed):
			return "", dErrors.Wrap(err, dErrors.CodeConflict,
				fmt.Sprintf("decision record %s is already sealed", recordID))
		case errors.Is(err, sentinel.ErrNotFound):
			return "", dErrors.Wrap(err, dErrors.CodeNotFound,
				fmt.Sprintf("decision record %s not found", recordID))
		default:
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "seal record")
		}
	}

	s.logger.InfoContext(ctx, "decision record sealed",
		"tenant_id", tenantID.String(),
		"record_id", recordID.String(),
		"sequence", sealed.SequenceNumber,
	)
	return *sealed.IntegrityHash, nil
}

// VerifyChain walks the tenant's sealed records in ascending sequence order,
// checking each link's stored previous_hash against the running hash and
// recomputing each integrity hash. It stops at the first break and reports
// its exact location. An empty sealed set is trivially valid. limit <= 0
// scans the whole chain.
//
// The walk is read-only; records sealed while it runs are simply outside
// this call's window.
func (s *Integrity) VerifyChain(ctx context.Context, tenantID id.TenantID, limit int) (*models.ChainReport, error) {
	records, err := s.records.ListSealed(ctx, tenantID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list sealed records")
	}

	if len(records) == 0 {
		return &models.ChainReport{
			Valid:         true,
			TotalVerified: 0,
			Message:       "No sealed records to verify.",
		}, nil
	}

	previousHash := GenesisHash
	for i, record := range records {
		if record.PreviousHash == nil || *record.PreviousHash != previousHash {
			return brokenReport(record, i, previousHash, hashOrNull(record.PreviousHash), "previous_hash mismatch"), nil
		}

		expected := ComputeRecordHash(record, previousHash)
		if record.IntegrityHash == nil || *record.IntegrityHash != expected {
			return brokenReport(record, i, expected, hashOrNull(record.IntegrityHash), "integrity_hash mismatch"), nil
		}

		previousHash = *record.IntegrityHash
	}

	return &models.ChainReport{
		Valid:         true,
		TotalVerified: len(records),
		Message:       fmt.Sprintf("Chain verified: %d records, all hashes valid.", len(records)),
	}, nil
}

// hashOrNull renders a missing hash as the literal "null" in chain reports,
// so reports compare byte for byte across implementations.
func hashOrNull(hash *string) string {
	if hash == nil {
		return "null"
	}
	return *hash
}

func brokenReport(record *models.DecisionRecord, verified int, expected, actual, kind string) *models.ChainReport {
	seq := record.SequenceNumber
	rid := record.ID
	return &models.ChainReport{
		Valid:            false,
		TotalVerified:    verified,
		BrokenAtSequence: &seq,
		BrokenAtID:       &rid,
		ExpectedHash:     expected,
		ActualHash:       actual,
		Message:          fmt.Sprintf("Chain broken at sequence %d: %s.", seq, kind),
	}
}

// SealAllUnsealed seals every unsealed record for the tenant in ascending
// sequence order, so each new link chains off the one sealed just before it.
// Each seal is atomic; a caller-imposed abort mid-batch leaves the remainder
// unsealed for a future run.
func (s *Integrity) SealAllUnsealed(ctx context.Context, tenantID id.TenantID) (int, error) {
	unsealed, err := s.records.ListUnsealed(ctx, tenantID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list unsealed records")
	}

	sealed := 0
	for _, record := range unsealed {
		if err := ctx.Err(); err != nil {
			return sealed, err
		}
		if _, err := s.Seal(ctx, tenantID, record.ID); err != nil {
			return sealed, err
		}
		sealed++
	}
	return sealed, nil
}

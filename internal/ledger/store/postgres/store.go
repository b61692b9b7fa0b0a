// Package postgres persists the decision ledger in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE decision_records (
//	    id                    UUID PRIMARY KEY,
//	    decision_type         TEXT NOT NULL,
//	    tenant_id             UUID NOT NULL,
//	    subject_id            TEXT,
//	    asset_id              UUID,
//	    input_snapshot        JSON NOT NULL,
//	    rule_version_snapshot JSON NOT NULL,
//	    result                TEXT NOT NULL,
//	    result_details        JSON NOT NULL,
//	    decided_by            TEXT,
//	    decided_at            TIMESTAMPTZ NOT NULL,
//	    sequence_number       BIGINT NOT NULL,
//	    integrity_hash        TEXT,
//	    previous_hash         TEXT,
//	    UNIQUE (tenant_id, sequence_number)
//	);
//	CREATE TABLE decision_sequences (
//	    tenant_id UUID PRIMARY KEY,
//	    next_seq  BIGINT NOT NULL
//	);
//
// The snapshot columns are JSON, not JSONB, deliberately: JSONB normalizes
// key order and whitespace, and the integrity hash covers the stored bytes
// exactly as the writer serialized them.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/models"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	"github.com/julianlaycock/caelith-sub002/pkg/platform/sentinel"
)

// Store implements store.RecordStore on database/sql.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const recordColumns = `
	id, decision_type, tenant_id, subject_id, asset_id,
	input_snapshot, rule_version_snapshot, result, result_details,
	decided_by, decided_at, sequence_number, integrity_hash, previous_hash`

// Insert assigns the tenant's next sequence number and persists the record
// in one transaction. The per-tenant counter row is locked by the upsert, so
// concurrent inserts for the same tenant serialize on it and can never share
// a sequence number.
func (s *Store) Insert(ctx context.Context, record *models.DecisionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO decision_sequences (tenant_id, next_seq)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET next_seq = decision_sequences.next_seq + 1
		RETURNING next_seq
	`, uuid.UUID(record.TenantID)).Scan(&seq)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}
	record.SequenceNumber = seq

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decision_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL, NULL)
	`,
		uuid.UUID(record.ID),
		string(record.DecisionType),
		uuid.UUID(record.TenantID),
		nullString(record.SubjectID),
		nullAssetID(record.AssetID),
		[]byte(record.InputSnapshot),
		[]byte(record.RuleVersionSnapshot),
		string(record.Result),
		[]byte(record.ResultDetails),
		nullString(record.DecidedBy),
		record.DecidedAt,
		record.SequenceNumber,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert decision record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.DecisionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM decision_records
		WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(recordID))
	return scanRecord(row)
}

func (s *Store) ListSealed(ctx context.Context, tenantID id.TenantID, limit int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM decision_records
		WHERE tenant_id = $1 AND integrity_hash IS NOT NULL
		ORDER BY sequence_number ASC`
	args := []any{uuid.UUID(tenantID)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sealed records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListUnsealed(ctx context.Context, tenantID id.TenantID) ([]*models.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM decision_records
		WHERE tenant_id = $1 AND integrity_hash IS NULL
		ORDER BY sequence_number ASC
	`, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("query unsealed records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Seal resolves the predecessor, computes, and persists the hashes in one
// transaction. The opening SELECT FOR UPDATE on the tenant's sequence row is
// the same lock Insert's upsert takes, so seals serialize against concurrent
// inserts and against each other, and the predecessor can never move between
// lookup and write.
func (s *Store) Seal(ctx context.Context, tenantID id.TenantID, recordID id.RecordID, chain store.ChainFunc) (*models.DecisionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	err = tx.QueryRowContext(ctx, `
		SELECT next_seq FROM decision_sequences WHERE tenant_id = $1 FOR UPDATE
	`, uuid.UUID(tenantID)).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		// No sequence row means no records for this tenant.
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock tenant sequence: %w", err)
	}

	record, err := scanRecord(tx.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM decision_records
		WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(recordID)))
	if err != nil {
		return nil, err
	}
	if record.Sealed() {
		return nil, sentinel.ErrSealed
	}

	var predecessor *models.DecisionRecord
	prev, err := scanRecord(tx.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM decision_records
		WHERE tenant_id = $1 AND sequence_number < $2 AND integrity_hash IS NOT NULL
		ORDER BY sequence_number DESC
		LIMIT 1
	`, uuid.UUID(tenantID), record.SequenceNumber))
	switch {
	case err == nil:
		predecessor = prev
	case errors.Is(err, sentinel.ErrNotFound):
		// First link in this tenant's chain.
	default:
		return nil, err
	}

	integrityHash, previousHash := chain(record, predecessor)

	_, err = tx.ExecContext(ctx, `
		UPDATE decision_records
		SET integrity_hash = $1, previous_hash = $2
		WHERE tenant_id = $3 AND id = $4 AND integrity_hash IS NULL
	`, integrityHash, previousHash, uuid.UUID(tenantID), uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("seal decision record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seal tx: %w", err)
	}

	record.IntegrityHash = &integrityHash
	record.PreviousHash = &previousHash
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.DecisionRecord, error) {
	var (
		record        models.DecisionRecord
		recordID      uuid.UUID
		tenantID      uuid.UUID
		decisionType  string
		result        string
		subjectID     sql.NullString
		assetID       *uuid.UUID
		decidedBy     sql.NullString
		input         []byte
		ruleSnap      []byte
		details       []byte
		integrityHash sql.NullString
		previousHash  sql.NullString
	)

	err := row.Scan(
		&recordID,
		&decisionType,
		&tenantID,
		&subjectID,
		&assetID,
		&input,
		&ruleSnap,
		&result,
		&details,
		&decidedBy,
		&record.DecidedAt,
		&record.SequenceNumber,
		&integrityHash,
		&previousHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan decision record: %w", err)
	}

	record.ID = id.RecordID(recordID)
	record.TenantID = id.TenantID(tenantID)
	record.DecisionType = models.DecisionType(decisionType)
	record.Result = models.DecisionResult(result)
	record.SubjectID = subjectID.String
	record.DecidedBy = decidedBy.String
	record.InputSnapshot = json.RawMessage(input)
	record.RuleVersionSnapshot = json.RawMessage(ruleSnap)
	record.ResultDetails = json.RawMessage(details)
	if assetID != nil {
		a := id.AssetID(*assetID)
		record.AssetID = &a
	}
	if integrityHash.Valid {
		h := integrityHash.String
		record.IntegrityHash = &h
	}
	if previousHash.Valid {
		h := previousHash.String
		record.PreviousHash = &h
	}
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]*models.DecisionRecord, error) {
	var records []*models.DecisionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision records: %w", err)
	}
	return records, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullAssetID(a *id.AssetID) any {
	if a == nil {
		return nil
	}
	return uuid.UUID(*a)
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"applybot/internal/common"
	"applybot/internal/domain/record"
)

type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Create(ctx context.Context, value *record.ApplicationRecord) error {
	entries, err := json.Marshal(value.Entries)
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to encode entries", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO records (id, applicant_id, applicant_name, position, entries, status, with_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		value.ID.String(), value.ApplicantID, value.ApplicantName, value.Position, string(entries),
		string(value.Status), value.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return common.NewError(common.CodeConflict, "record id already exists", err)
		}
		return common.NewError(common.CodeStorage, "failed to create record", err)
	}
	return nil
}

func (s *RecordStore) Get(ctx context.Context, id common.UUID) (*record.ApplicationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, applicant_id, applicant_name, position, entries, status, reviewer_id, reason, with_reason, decided_at, created_at
		FROM records WHERE id = ?`, id.String())
	value, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "record not found", err)
		}
		return nil, common.NewError(common.CodeStorage, "failed to load record", err)
	}
	return value, nil
}

func (s *RecordStore) ListByStatus(ctx context.Context, status record.Status) ([]record.ApplicationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, applicant_id, applicant_name, position, entries, status, reviewer_id, reason, with_reason, decided_at, created_at
		FROM records WHERE status = ? ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, common.NewError(common.CodeStorage, "failed to list records", err)
	}
	defer rows.Close()
	var items []record.ApplicationRecord
	for rows.Next() {
		value, err := scanRecord(rows)
		if err != nil {
			return nil, common.NewError(common.CodeStorage, "failed to scan record", err)
		}
		items = append(items, *value)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeStorage, "failed to iterate records", err)
	}
	return items, nil
}

// CompareAndSwapStatus is the single mutation records support. The WHERE
// clause carries the expected status, so the swap is atomic at the database
// and a losing racer always observes already_decided.
func (s *RecordStore) CompareAndSwapStatus(ctx context.Context, id common.UUID, expected, next record.Status, decision *record.Decision) error {
	var reviewerID, reason any
	var withReason bool
	var decidedAt any
	if decision != nil {
		reviewerID = decision.ReviewerID
		reason = decision.Reason
		withReason = decision.WithReason
		decidedAt = decision.DecidedAt.UTC().Format(time.RFC3339Nano)
	}
	result, err := s.db.ExecContext(ctx, `UPDATE records
		SET status = ?, reviewer_id = ?, reason = ?, with_reason = ?, decided_at = ?
		WHERE id = ? AND status = ?`,
		string(next), reviewerID, reason, withReason, decidedAt, id.String(), string(expected))
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to update record status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to read update result", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return common.NewError(common.CodeAlreadyDecided, "record status no longer matches expected", nil)
	}
	return nil
}

func scanRecord(row rowScanner) (*record.ApplicationRecord, error) {
	var value record.ApplicationRecord
	var id, entries, status, createdAt string
	var reviewerID, reason, decidedAt sql.NullString
	var withReason bool
	if err := row.Scan(&id, &value.ApplicantID, &value.ApplicantName, &value.Position, &entries, &status, &reviewerID, &reason, &withReason, &decidedAt, &createdAt); err != nil {
		return nil, err
	}
	value.ID = common.UUID(id)
	value.Status = record.Status(status)
	if err := json.Unmarshal([]byte(entries), &value.Entries); err != nil {
		return nil, err
	}
	var err error
	if value.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if reviewerID.Valid {
		decision := &record.Decision{
			ReviewerID: reviewerID.String,
			Reason:     reason.String,
			WithReason: withReason,
		}
		if decidedAt.Valid {
			if decision.DecidedAt, err = time.Parse(time.RFC3339Nano, decidedAt.String); err != nil {
				return nil, err
			}
		}
		value.Decision = decision
	}
	return &value, nil
}

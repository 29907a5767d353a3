package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

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
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
		value.ID.String(), value.ApplicantID, value.ApplicantName, value.Position, entries,
		string(value.Status), value.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.NewError(common.CodeConflict, "record id already exists", err)
		}
		return common.NewError(common.CodeStorage, "failed to create record", err)
	}
	return nil
}

func (s *RecordStore) Get(ctx context.Context, id common.UUID) (*record.ApplicationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, applicant_id, applicant_name, position, entries, status, reviewer_id, reason, with_reason, decided_at, created_at
		FROM records WHERE id = $1`, id.String())
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
		FROM records WHERE status = $1 ORDER BY created_at DESC`, string(status))
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

func (s *RecordStore) CompareAndSwapStatus(ctx context.Context, id common.UUID, expected, next record.Status, decision *record.Decision) error {
	var reviewerID, reason any
	var withReason bool
	var decidedAt any
	if decision != nil {
		reviewerID = decision.ReviewerID
		reason = decision.Reason
		withReason = decision.WithReason
		decidedAt = decision.DecidedAt
	}
	result, err := s.db.ExecContext(ctx, `UPDATE records
		SET status = $1, reviewer_id = $2, reason = $3, with_reason = $4, decided_at = $5
		WHERE id = $6 AND status = $7`,
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
	var id, status string
	var entries []byte
	var reviewerID, reason sql.NullString
	var withReason bool
	var decidedAt sql.NullTime
	if err := row.Scan(&id, &value.ApplicantID, &value.ApplicantName, &value.Position, &entries, &status, &reviewerID, &reason, &withReason, &decidedAt, &value.CreatedAt); err != nil {
		return nil, err
	}
	value.ID = common.UUID(id)
	value.Status = record.Status(status)
	if err := json.Unmarshal(entries, &value.Entries); err != nil {
		return nil, err
	}
	if reviewerID.Valid {
		value.Decision = &record.Decision{
			ReviewerID: reviewerID.String,
			Reason:     reason.String,
			WithReason: withReason,
			DecidedAt:  decidedAt.Time,
		}
	}
	return &value, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"applybot/internal/common"
	"applybot/internal/domain/session"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Get(ctx context.Context, applicantID string) (*session.IntakeSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT applicant_id, applicant_name, position, questions, answers, created_at, started_at, last_activity_at
		FROM sessions WHERE applicant_id = $1`, applicantID)
	value, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "session not found", err)
		}
		return nil, common.NewError(common.CodeStorage, "failed to load session", err)
	}
	return value, nil
}

func (s *SessionStore) Put(ctx context.Context, value *session.IntakeSession) error {
	questions, err := json.Marshal(value.Questions)
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to encode questions", err)
	}
	answers, err := json.Marshal(value.Answers)
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to encode answers", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (applicant_id, applicant_name, position, questions, answers, created_at, started_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (applicant_id) DO UPDATE SET
			applicant_name = EXCLUDED.applicant_name,
			position = EXCLUDED.position,
			questions = EXCLUDED.questions,
			answers = EXCLUDED.answers,
			created_at = EXCLUDED.created_at,
			started_at = EXCLUDED.started_at,
			last_activity_at = EXCLUDED.last_activity_at`,
		value.ApplicantID, value.ApplicantName, value.Position, questions, answers,
		value.CreatedAt, value.StartedAt, value.LastActivityAt)
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to save session", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, applicantID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE applicant_id = $1`, applicantID)
	if err != nil {
		return common.NewError(common.CodeStorage, "failed to delete session", err)
	}
	return nil
}

func (s *SessionStore) ListAll(ctx context.Context) ([]session.IntakeSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT applicant_id, applicant_name, position, questions, answers, created_at, started_at, last_activity_at FROM sessions`)
	if err != nil {
		return nil, common.NewError(common.CodeStorage, "failed to list sessions", err)
	}
	defer rows.Close()
	var items []session.IntakeSession
	for rows.Next() {
		value, err := scanSession(rows)
		if err != nil {
			return nil, common.NewError(common.CodeStorage, "failed to scan session", err)
		}
		items = append(items, *value)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeStorage, "failed to iterate sessions", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.IntakeSession, error) {
	var value session.IntakeSession
	var questions, answers []byte
	var startedAt sql.NullTime
	if err := row.Scan(&value.ApplicantID, &value.ApplicantName, &value.Position, &questions, &answers, &value.CreatedAt, &startedAt, &value.LastActivityAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &value.Questions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &value.Answers); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		started := startedAt.Time
		value.StartedAt = &started
	}
	return &value, nil
}

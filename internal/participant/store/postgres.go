package participantstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cohort/internal/participant/models"
	"cohort/internal/platform/postgres"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// PostgresStore persists participants in PostgreSQL. The dynamic form answer
// bag lives in a JSONB column; email and phone uniqueness come from their
// unique constraints; program membership is the participant_programs join
// table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const participantColumns = `id, full_name, email, phone, gender, organization,
	state, age_group, referral_source, data, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Participant) error {
	data, err := marshalData(p.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		uuid.UUID(p.ID), p.FullName, nullString(p.Email), nullString(p.Phone),
		p.Gender, p.Organization, p.State, p.AgeGroup, p.ReferralSource,
		data, p.CreatedAt, p.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err, "participants_email_key") ||
		postgres.IsUniqueViolation(err, "participants_phone_key") {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`,
		uuid.UUID(participantID))
	return s.scanWithPrograms(ctx, row)
}

func (s *PostgresStore) FindByContact(ctx context.Context, email, phone string) (*models.Participant, error) {
	if email == "" && phone == "" {
		return nil, sentinel.ErrNotFound
	}
	// NULLIF keeps an empty argument from matching anything.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE email = NULLIF($1, '') OR phone = NULLIF($2, '')
		LIMIT 1`,
		email, phone)
	return s.scanWithPrograms(ctx, row)
}

func (s *PostgresStore) AddProgram(ctx context.Context, participantID id.ParticipantID, programID id.ProgramID, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO participant_programs (participant_id, program_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_id, program_id) DO NOTHING`,
		uuid.UUID(participantID), uuid.UUID(programID), now)
	if err != nil {
		var exists bool
		if fkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM participants WHERE id = $1)`, uuid.UUID(participantID)).Scan(&exists); fkErr == nil && !exists {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("add program: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add program: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyLinked
	}
	_, err = s.db.ExecContext(ctx, `UPDATE participants SET updated_at = $2 WHERE id = $1`,
		uuid.UUID(participantID), now)
	if err != nil {
		return fmt.Errorf("touch participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Execute(ctx context.Context, participantID id.ParticipantID, validate func(*models.Participant) error, mutate func(*models.Participant)) (*models.Participant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1 FOR UPDATE`,
		uuid.UUID(participantID))
	p, err := scanParticipant(row)
	if err != nil {
		return nil, err
	}
	p.Programs, err = loadProgramsTx(ctx, tx, participantID)
	if err != nil {
		return nil, err
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	data, err := marshalData(p.Data)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE participants SET
			full_name = $2, email = $3, phone = $4, gender = $5, organization = $6,
			state = $7, age_group = $8, referral_source = $9, data = $10, updated_at = $11
		WHERE id = $1`,
		uuid.UUID(p.ID), p.FullName, nullString(p.Email), nullString(p.Phone),
		p.Gender, p.Organization, p.State, p.AgeGroup, p.ReferralSource,
		data, p.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err, "participants_email_key") ||
		postgres.IsUniqueViolation(err, "participants_phone_key") {
		return nil, sentinel.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var (
		p             models.Participant
		participantID uuid.UUID
		email, phone  sql.NullString
		data          []byte
	)
	err := row.Scan(&participantID, &p.FullName, &email, &phone, &p.Gender,
		&p.Organization, &p.State, &p.AgeGroup, &p.ReferralSource, &data,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan participant: %w", err)
	}

	p.ID = id.ParticipantID(participantID)
	p.Email = email.String
	p.Phone = phone.String
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p.Data); err != nil {
			return nil, fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return &p, nil
}

func (s *PostgresStore) scanWithPrograms(ctx context.Context, row rowScanner) (*models.Participant, error) {
	p, err := scanParticipant(row)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT program_id FROM participant_programs WHERE participant_id = $1 ORDER BY added_at`,
		uuid.UUID(p.ID))
	if err != nil {
		return nil, fmt.Errorf("load programs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan program id: %w", err)
		}
		p.Programs = append(p.Programs, id.ProgramID(pid))
	}
	return p, rows.Err()
}

func loadProgramsTx(ctx context.Context, tx *sql.Tx, participantID id.ParticipantID) ([]id.ProgramID, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT program_id FROM participant_programs WHERE participant_id = $1 ORDER BY added_at`,
		uuid.UUID(participantID))
	if err != nil {
		return nil, fmt.Errorf("load programs: %w", err)
	}
	defer rows.Close()
	var out []id.ProgramID
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan program id: %w", err)
		}
		out = append(out, id.ProgramID(pid))
	}
	return out, rows.Err()
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		return []byte(`{}`), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return b, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package programstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cohort/internal/platform/postgres"
	"cohort/internal/program/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// PostgresStore persists programs in PostgreSQL. Nested documents (form
// fields, updates, completion) live in JSONB columns; the participant
// relation is a join table; slug uniqueness is the programs_link_slug_key
// constraint; batch numbers come from an atomic per-parent counter row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const programColumns = `id, department_id, name, description, structure, parent_id,
	batch_number, version_label, date, venue, cost, reg_open, reg_deadline,
	link_slug, form_fields, participants_count, startups_count, status,
	updates, completion, created_by, created_at, updated_at, approved_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Program) error {
	formFields, err := json.Marshal(p.Registration.FormFields)
	if err != nil {
		return fmt.Errorf("marshal form fields: %w", err)
	}
	updates, err := json.Marshal(p.Updates)
	if err != nil {
		return fmt.Errorf("marshal updates: %w", err)
	}
	completion, err := marshalCompletion(p.Completion)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO programs (`+programColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		uuid.UUID(p.ID), uuid.UUID(p.DepartmentID), p.Name, p.Description, string(p.Structure),
		nullProgramID(p.ParentID), nullInt(p.BatchNumber), p.VersionLabel, nullTime(p.Date),
		p.Venue, p.Cost, p.Registration.Open, nullTime(p.Registration.Deadline),
		nullString(p.Registration.LinkSlug), formFields, p.ParticipantsCount, p.StartupsCount,
		string(p.Status), updates, completion, uuid.UUID(p.CreatedBy), p.CreatedAt, p.UpdatedAt,
		nullTime(p.ApprovedAt),
	)
	if postgres.IsUniqueViolation(err, "programs_link_slug_key") {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE id = $1`, uuid.UUID(programID))
	return s.scanWithParticipants(ctx, row)
}

func (s *PostgresStore) FindBySlug(ctx context.Context, linkSlug string) (*models.Program, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE link_slug = $1`, linkSlug)
	return s.scanWithParticipants(ctx, row)
}

func (s *PostgresStore) ListByParent(ctx context.Context, parentID id.ProgramID) ([]*models.Program, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE parent_id = $1 ORDER BY created_at`,
		uuid.UUID(parentID))
	if err != nil {
		return nil, fmt.Errorf("list by parent: %w", err)
	}
	defer rows.Close()
	return scanPrograms(rows)
}

func (s *PostgresStore) ListByDepartmentCreatedBetween(ctx context.Context, departmentID id.DepartmentID, from, to time.Time) ([]*models.Program, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+programColumns+` FROM programs
		WHERE department_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC`,
		uuid.UUID(departmentID), from, to)
	if err != nil {
		return nil, fmt.Errorf("list by department window: %w", err)
	}
	defer rows.Close()
	return scanPrograms(rows)
}

func (s *PostgresStore) AllocateBatchNumber(ctx context.Context, parentID id.ProgramID) (int, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM programs WHERE id = $1)`, uuid.UUID(parentID)).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check parent: %w", err)
	}
	if !exists {
		return 0, sentinel.ErrNotFound
	}

	var n int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO batch_counters (parent_id, next) VALUES ($1, 1)
		ON CONFLICT (parent_id) DO UPDATE SET next = batch_counters.next + 1
		RETURNING next`,
		uuid.UUID(parentID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("allocate batch number: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, programID id.ProgramID, participantID id.ParticipantID, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO program_participants (program_id, participant_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (program_id, participant_id) DO NOTHING`,
		uuid.UUID(programID), uuid.UUID(participantID), now)
	if err != nil {
		var fkCheck bool
		if fkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM programs WHERE id = $1)`, uuid.UUID(programID)).Scan(&fkCheck); fkErr == nil && !fkCheck {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("add participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyLinked
	}
	_, err = s.db.ExecContext(ctx, `UPDATE programs SET updated_at = $2 WHERE id = $1`,
		uuid.UUID(programID), now)
	if err != nil {
		return fmt.Errorf("touch program: %w", err)
	}
	return nil
}

func (s *PostgresStore) Execute(ctx context.Context, programID id.ProgramID, validate func(*models.Program) error, mutate func(*models.Program)) (*models.Program, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE id = $1 FOR UPDATE`, uuid.UUID(programID))
	p, err := scanProgram(row)
	if err != nil {
		return nil, err
	}
	p.Participants, err = loadParticipantsTx(ctx, tx, programID)
	if err != nil {
		return nil, err
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	updates, err := json.Marshal(p.Updates)
	if err != nil {
		return nil, fmt.Errorf("marshal updates: %w", err)
	}
	completion, err := marshalCompletion(p.Completion)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE programs SET
			name = $2, description = $3, version_label = $4, date = $5, venue = $6,
			cost = $7, reg_open = $8, reg_deadline = $9, participants_count = $10,
			startups_count = $11, status = $12, updates = $13, completion = $14,
			updated_at = $15, approved_at = $16
		WHERE id = $1`,
		uuid.UUID(p.ID), p.Name, p.Description, p.VersionLabel, nullTime(p.Date), p.Venue,
		p.Cost, p.Registration.Open, nullTime(p.Registration.Deadline), p.ParticipantsCount,
		p.StartupsCount, string(p.Status), updates, completion, p.UpdatedAt, nullTime(p.ApprovedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("update program: %w", err)
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

func scanProgram(row rowScanner) (*models.Program, error) {
	var (
		p                    models.Program
		programID, deptID    uuid.UUID
		createdBy            uuid.UUID
		parentID             sql.Null[uuid.UUID]
		batchNumber          sql.NullInt64
		date, deadline       sql.NullTime
		approvedAt           sql.NullTime
		linkSlug             sql.NullString
		structure, status    string
		formFields, updates  []byte
		completion           []byte
	)
	err := row.Scan(&programID, &deptID, &p.Name, &p.Description, &structure, &parentID,
		&batchNumber, &p.VersionLabel, &date, &p.Venue, &p.Cost, &p.Registration.Open,
		&deadline, &linkSlug, &formFields, &p.ParticipantsCount, &p.StartupsCount, &status,
		&updates, &completion, &createdBy, &p.CreatedAt, &p.UpdatedAt, &approvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan program: %w", err)
	}

	p.ID = id.ProgramID(programID)
	p.DepartmentID = id.DepartmentID(deptID)
	p.CreatedBy = id.UserID(createdBy)
	p.Structure = models.Structure(structure)
	p.Status = models.Status(status)
	if parentID.Valid {
		v := id.ProgramID(parentID.V)
		p.ParentID = &v
	}
	if batchNumber.Valid {
		p.BatchNumber = int(batchNumber.Int64)
	}
	if date.Valid {
		v := date.Time
		p.Date = &v
	}
	if deadline.Valid {
		v := deadline.Time
		p.Registration.Deadline = &v
	}
	if approvedAt.Valid {
		v := approvedAt.Time
		p.ApprovedAt = &v
	}
	p.Registration.LinkSlug = linkSlug.String
	if err := json.Unmarshal(formFields, &p.Registration.FormFields); err != nil {
		return nil, fmt.Errorf("unmarshal form fields: %w", err)
	}
	if err := json.Unmarshal(updates, &p.Updates); err != nil {
		return nil, fmt.Errorf("unmarshal updates: %w", err)
	}
	if len(completion) > 0 {
		var c models.Completion
		if err := json.Unmarshal(completion, &c); err != nil {
			return nil, fmt.Errorf("unmarshal completion: %w", err)
		}
		p.Completion = &c
	}
	return &p, nil
}

func scanPrograms(rows *sql.Rows) ([]*models.Program, error) {
	var out []*models.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) scanWithParticipants(ctx context.Context, row rowScanner) (*models.Program, error) {
	p, err := scanProgram(row)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id FROM program_participants WHERE program_id = $1 ORDER BY added_at`,
		uuid.UUID(p.ID))
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan participant id: %w", err)
		}
		p.Participants = append(p.Participants, id.ParticipantID(pid))
	}
	return p, rows.Err()
}

func loadParticipantsTx(ctx context.Context, tx *sql.Tx, programID id.ProgramID) ([]id.ParticipantID, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT participant_id FROM program_participants WHERE program_id = $1 ORDER BY added_at`,
		uuid.UUID(programID))
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()
	var out []id.ParticipantID
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan participant id: %w", err)
		}
		out = append(out, id.ParticipantID(pid))
	}
	return out, rows.Err()
}

func marshalCompletion(c *models.Completion) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal completion: %w", err)
	}
	return b, nil
}

func nullProgramID(v *id.ProgramID) any {
	if v == nil {
		return nil
	}
	return uuid.UUID(*v)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

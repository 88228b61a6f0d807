package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

func TestRegistrationGate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("open without deadline", func(t *testing.T) {
		r := Registration{Open: true}
		assert.NoError(t, r.Gate(now))
	})

	t.Run("closed wins over expired deadline", func(t *testing.T) {
		r := Registration{Open: false, Deadline: &past}
		err := r.Gate(now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRegistrationClosed))
		assert.Contains(t, err.Error(), "closed")
		assert.NotContains(t, err.Error(), "deadline")
	})

	t.Run("deadline passed", func(t *testing.T) {
		r := Registration{Open: true, Deadline: &past}
		err := r.Gate(now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRegistrationClosed))
		assert.Contains(t, err.Error(), past.Format(time.RFC3339))
	})

	t.Run("deadline instant itself is closed", func(t *testing.T) {
		r := Registration{Open: true, Deadline: &now}
		assert.Error(t, r.Gate(now))
	})

	t.Run("open before deadline", func(t *testing.T) {
		r := Registration{Open: true, Deadline: &future}
		assert.NoError(t, r.Gate(now))
	})
}

func TestApplyStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	t.Run("unknown status rejected", func(t *testing.T) {
		p := &Program{Status: StatusPending}
		err := p.ApplyStatus(Status("archived"), now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Equal(t, StatusPending, p.Status)
	})

	t.Run("completed must carry a payload", func(t *testing.T) {
		p := &Program{Status: StatusApproved}
		err := p.ApplyStatus(StatusCompleted, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("first approval stamps ApprovedAt once", func(t *testing.T) {
		p := &Program{Status: StatusPending}
		require.NoError(t, p.ApplyStatus(StatusApproved, now))
		require.NotNil(t, p.ApprovedAt)
		assert.Equal(t, now, *p.ApprovedAt)

		require.NoError(t, p.ApplyStatus(StatusRejected, later))
		require.NoError(t, p.ApplyStatus(StatusApproved, later))
		assert.Equal(t, now, *p.ApprovedAt, "re-approval keeps the original timestamp")
	})

	t.Run("any valid reassignment allowed", func(t *testing.T) {
		p := &Program{Status: StatusCancelled}
		require.NoError(t, p.ApplyStatus(StatusPending, now))
		assert.Equal(t, StatusPending, p.Status)
		assert.Equal(t, now, p.UpdatedAt)
	})
}

func TestApplyCompletion(t *testing.T) {
	scheduled := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	now := scheduled.Add(48 * time.Hour)

	t.Run("defaults to scheduled date", func(t *testing.T) {
		p := &Program{Status: StatusApproved, Date: &scheduled}
		p.ApplyCompletion(Completion{ActualAttendance: 40}, now)

		assert.Equal(t, StatusCompleted, p.Status)
		require.NotNil(t, p.Completion)
		assert.Equal(t, scheduled, p.Completion.ActualStart)
		assert.Equal(t, scheduled, p.Completion.ActualEnd)
	})

	t.Run("explicit times kept", func(t *testing.T) {
		start := scheduled.Add(time.Hour)
		end := scheduled.Add(3 * time.Hour)
		p := &Program{Status: StatusApproved, Date: &scheduled}
		p.ApplyCompletion(Completion{ActualStart: start, ActualEnd: end}, now)

		assert.Equal(t, start, p.Completion.ActualStart)
		assert.Equal(t, end, p.Completion.ActualEnd)
	})

	t.Run("no date falls back to actual start", func(t *testing.T) {
		start := scheduled.Add(time.Hour)
		p := &Program{Status: StatusApproved}
		p.ApplyCompletion(Completion{ActualStart: start}, now)
		assert.Equal(t, start, p.Completion.ActualEnd)
	})
}

func TestCompletionDocumented(t *testing.T) {
	assert.False(t, Completion{}.Documented())
	assert.True(t, Completion{DriveLink: "https://drive.example/abc"}.Documented())
	assert.True(t, Completion{FinalDocument: "report.pdf"}.Documented())
}

func TestAppendUpdate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	author := id.NewUserID()
	p := &Program{}

	err := p.AppendUpdate(author, "", false, now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	require.NoError(t, p.AppendUpdate(author, "kickoff done", false, now))
	require.NoError(t, p.AppendUpdate(author, "wrap-up report filed", true, now.Add(time.Hour)))

	require.Len(t, p.Updates, 2)
	assert.Equal(t, "kickoff done", p.Updates[0].Text)
	assert.False(t, p.Updates[0].CompletionNote)
	assert.True(t, p.Updates[1].CompletionNote)
	assert.Equal(t, author, p.Updates[1].AuthorID)
}

func TestBlueprintAndInstancePredicates(t *testing.T) {
	parentID := id.NewProgramID()

	blueprint := &Program{Structure: StructureNumerical}
	assert.True(t, blueprint.IsBlueprint())
	assert.False(t, blueprint.IsInstance())

	oneTime := &Program{Structure: StructureOneTime}
	assert.False(t, oneTime.IsBlueprint())
	assert.False(t, oneTime.IsInstance())

	instance := &Program{Structure: StructureNumerical, ParentID: &parentID}
	assert.False(t, instance.IsBlueprint())
	assert.True(t, instance.IsInstance())
}

func TestAddParticipantIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	participant := id.NewParticipantID()
	p := &Program{}

	p.AddParticipant(participant, now)
	p.AddParticipant(participant, now.Add(time.Hour))

	require.Len(t, p.Participants, 1)
	assert.True(t, p.HasParticipant(participant))
	assert.Equal(t, now, p.UpdatedAt, "duplicate add does not touch the record")
}

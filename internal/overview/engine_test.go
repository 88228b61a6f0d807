package overview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	departmentmodels "cohort/internal/department/models"
	departmentstore "cohort/internal/department/store"
	programmodels "cohort/internal/program/models"
	programstore "cohort/internal/program/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		token     string
		wantFrom  time.Time
		wantToken string
	}{
		{"7d", now.AddDate(0, 0, -7), "7d"},
		{"2w", now.AddDate(0, 0, -14), "2w"},
		{"3m", now.AddDate(0, -3, 0), "3m"},
		{"1y", now.AddDate(-1, 0, 0), "1y"},
		{"", now.AddDate(0, 0, -30), "30d"},
		{"banana", now.AddDate(0, 0, -30), "30d"},
		{"-5d", now.AddDate(0, 0, -30), "30d"},
		{"d", now.AddDate(0, 0, -30), "30d"},
	}
	for _, tt := range tests {
		w := ParseWindow(tt.token, now)
		assert.Equal(t, tt.wantFrom, w.From, "token %q", tt.token)
		assert.Equal(t, now, w.To, "token %q", tt.token)
		assert.Equal(t, tt.wantToken, w.Token, "token %q", tt.token)
	}
}

func TestScoreKPI(t *testing.T) {
	// Zero or negative targets score zero regardless of direction.
	assert.Zero(t, scoreKPI(5, 0, DirectionUp))
	assert.Zero(t, scoreKPI(5, -1, DirectionDown))

	// Up: capped ratio.
	assert.InDelta(t, 50, scoreKPI(3, 6, DirectionUp), 0.01)
	assert.InDelta(t, 100, scoreKPI(12, 6, DirectionUp), 0.01)

	// Down: beating the target caps at 100, overshooting decays.
	assert.InDelta(t, 100, scoreKPI(1.5, 3, DirectionDown), 0.01)
	assert.InDelta(t, 50, scoreKPI(6, 3, DirectionDown), 0.01)
	assert.InDelta(t, 100, scoreKPI(0, 3, DirectionDown), 0.01)
}

func TestCompositeScoreGuardsZeroWeightSum(t *testing.T) {
	kpis := []KPI{
		{Score: 80, Weight: 0},
		{Score: 40, Weight: 0},
	}
	assert.Zero(t, compositeScore(kpis))
}

type EngineSuite struct {
	suite.Suite
	programs    *programstore.InMemoryStore
	departments *departmentstore.InMemoryStore
	engine      *Engine
	ctx         context.Context
	now         time.Time
	dept        *departmentmodels.Department
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.programs = programstore.NewInMemoryStore()
	s.departments = departmentstore.NewInMemoryStore()
	s.engine = NewEngine(s.programs, s.departments)
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	dept, err := departmentmodels.New(id.NewDepartmentID(), "Incubation", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.departments.Create(s.ctx, dept))
	s.dept = dept
}

type seed struct {
	status     programmodels.Status
	createdAt  time.Time
	approvedIn time.Duration // 0 means never approved
	documented bool
	expected   int
	attended   int
	cost       float64
}

func (s *EngineSuite) seedProgram(sd seed) {
	p := &programmodels.Program{
		ID:                id.NewProgramID(),
		DepartmentID:      s.dept.ID,
		Name:              "Program",
		Structure:         programmodels.StructureOneTime,
		Cost:              sd.cost,
		ParticipantsCount: sd.expected,
		Status:            sd.status,
		CreatedBy:         id.NewUserID(),
		CreatedAt:         sd.createdAt,
		UpdatedAt:         sd.createdAt,
	}
	if sd.approvedIn > 0 {
		t := sd.createdAt.Add(sd.approvedIn)
		p.ApprovedAt = &t
	}
	if sd.status == programmodels.StatusCompleted {
		c := programmodels.Completion{
			ActualAttendance: sd.attended,
			ActualStart:      sd.createdAt,
			ActualEnd:        sd.createdAt,
		}
		if sd.documented {
			c.DriveLink = "https://drive.example.org/x"
		}
		p.Completion = &c
	}
	s.Require().NoError(s.programs.Create(s.ctx, p))
}

func (s *EngineSuite) kpi(report *Overview, key string) KPI {
	for _, k := range report.KPIs {
		if k.Key == key {
			return k
		}
	}
	s.Require().Failf("missing KPI", "key %s", key)
	return KPI{}
}

func (s *EngineSuite) TestCompletionRateScoring() {
	created := s.now.AddDate(0, 0, -10)
	for i := 0; i < 4; i++ {
		s.seedProgram(seed{status: programmodels.StatusCompleted, createdAt: created})
	}
	s.seedProgram(seed{status: programmodels.StatusCancelled, createdAt: created})
	s.seedProgram(seed{status: programmodels.StatusRejected, createdAt: created})

	report, err := s.engine.Compute(s.ctx, s.dept.ID, "30d")
	s.Require().NoError(err)

	k := s.kpi(report, MetricCompletionRate)
	s.InDelta(4.0/6.0, k.Actual, 0.001)
	s.InDelta(78.4, k.Score, 0.1)
}

func (s *EngineSuite) TestApprovalLeadTimeDownDirection() {
	created := s.now.AddDate(0, 0, -10)
	s.seedProgram(seed{status: programmodels.StatusApproved, createdAt: created, approvedIn: 36 * time.Hour})

	report, err := s.engine.Compute(s.ctx, s.dept.ID, "30d")
	s.Require().NoError(err)
	k := s.kpi(report, MetricApprovalLeadTimeDays)
	s.InDelta(1.5, k.Actual, 0.001)
	s.InDelta(100, k.Score, 0.001) // capped, not 200

	slow := departmentstore.NewInMemoryStore()
	dept2, err := departmentmodels.New(id.NewDepartmentID(), "Acceleration", s.now)
	s.Require().NoError(err)
	s.Require().NoError(slow.Create(s.ctx, dept2))
	programs2 := programstore.NewInMemoryStore()
	p := &programmodels.Program{
		ID: id.NewProgramID(), DepartmentID: dept2.ID, Name: "Slow",
		Structure: programmodels.StructureOneTime,
		Status:    programmodels.StatusApproved,
		CreatedBy: id.NewUserID(), CreatedAt: created, UpdatedAt: created,
	}
	t := created.Add(6 * 24 * time.Hour)
	p.ApprovedAt = &t
	s.Require().NoError(programs2.Create(s.ctx, p))

	engine2 := NewEngine(programs2, slow)
	report2, err := engine2.Compute(s.ctx, dept2.ID, "30d")
	s.Require().NoError(err)
	k2 := s.kpi(report2, MetricApprovalLeadTimeDays)
	s.InDelta(6, k2.Actual, 0.001)
	s.InDelta(50, k2.Score, 0.001)
}

func (s *EngineSuite) TestEmptyWindowScoresDeterministically() {
	report, err := s.engine.Compute(s.ctx, s.dept.ID, "30d")
	s.Require().NoError(err)

	// pending_backlog and approval_lead_time score perfectly at zero
	// actuals; everything else bottoms out.
	s.InDelta(100, s.kpi(report, MetricPendingBacklog).Score, 0.001)
	s.InDelta(100, s.kpi(report, MetricApprovalLeadTimeDays).Score, 0.001)
	s.Zero(s.kpi(report, MetricProgramsDelivered).Score)
	s.Zero(s.kpi(report, MetricCompletionRate).Score)
	s.Empty(report.Trend)
	s.Empty(report.RecentPrograms)
}

func (s *EngineSuite) TestDepartmentOverridesApply() {
	_, err := s.departments.SetKPIOverrides(s.ctx, s.dept.ID,
		map[string]float64{MetricProgramsDelivered: 2},
		map[string]float64{MetricProgramsDelivered: 50},
	)
	s.Require().NoError(err)

	created := s.now.AddDate(0, 0, -5)
	s.seedProgram(seed{status: programmodels.StatusCompleted, createdAt: created})
	s.seedProgram(seed{status: programmodels.StatusCompleted, createdAt: created})

	report, err := s.engine.Compute(s.ctx, s.dept.ID, "30d")
	s.Require().NoError(err)

	k := s.kpi(report, MetricProgramsDelivered)
	s.Equal(2.0, k.Target)
	s.Equal(50.0, k.Weight)
	s.InDelta(100, k.Score, 0.001)
}

func (s *EngineSuite) TestReachAndDocumentationMetrics() {
	created := s.now.AddDate(0, 0, -5)
	s.seedProgram(seed{status: programmodels.StatusCompleted, createdAt: created, documented: true, expected: 100, attended: 60})
	s.seedProgram(seed{status: programmodels.StatusCompleted, createdAt: created, expected: 100, attended: 90})

	report, err := s.engine.Compute(s.ctx, s.dept.ID, "30d")
	s.Require().NoError(err)

	s.InDelta(0.5, s.kpi(report, MetricDocumentationCompliance).Actual, 0.001)
	s.InDelta(0.75, s.kpi(report, MetricReachRate).Actual, 0.001)
	s.Equal(200, report.Totals.ExpectedHeadcount)
	s.Equal(150, report.Totals.ActualAttendance)
}

func (s *EngineSuite) TestTrendIsMonthlyOldestFirstAndRecentCapped() {
	for i := 0; i < 12; i++ {
		s.seedProgram(seed{
			status:    programmodels.StatusPending,
			createdAt: s.now.AddDate(0, 0, -i*10),
		})
	}

	report, err := s.engine.Compute(s.ctx, s.dept.ID, "6m")
	s.Require().NoError(err)

	s.Len(report.RecentPrograms, 8)
	s.Require().NotEmpty(report.Trend)
	for i := 1; i < len(report.Trend); i++ {
		s.Less(report.Trend[i-1].Month, report.Trend[i].Month)
	}
	// Newest first in the display projection.
	s.True(!report.RecentPrograms[0].CreatedAt.Before(report.RecentPrograms[7].CreatedAt))
}

func (s *EngineSuite) TestUnknownDepartment() {
	_, err := s.engine.Compute(s.ctx, id.NewDepartmentID(), "30d")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

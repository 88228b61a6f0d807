package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cohort/internal/platform/middleware"
	"cohort/internal/program/models"
	programstore "cohort/internal/program/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

type ManagerSuite struct {
	suite.Suite
	store   *programstore.InMemoryStore
	manager *Manager
	ctx     context.Context
	now     time.Time
	dept    id.DepartmentID
	actor   id.UserID
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.store = programstore.NewInMemoryStore()
	s.manager = NewManager(s.store)
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.dept = id.NewDepartmentID()
	s.actor = id.NewUserID()
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithUserID(ctx, s.actor)
}

func (s *ManagerSuite) blueprint(structure models.Structure) *models.Program {
	p, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept,
		Name:         "Founder Bootcamp",
		Structure:    structure,
	})
	s.Require().NoError(err)
	return p
}

func (s *ManagerSuite) TestOneTimeProgramGetsSlugAndDate() {
	date := s.now.AddDate(0, 1, 0)
	p, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept,
		Name:         "Hackathon 2026",
		Structure:    models.StructureOneTime,
		Date:         &date,
	})
	s.Require().NoError(err)

	s.NotEmpty(p.Registration.LinkSlug)
	s.Contains(p.Registration.LinkSlug, "hackathon-2026")
	s.Require().NotNil(p.Date)
	s.Equal(date, *p.Date)
	s.Equal(models.StatusPending, p.Status)
	s.Equal(s.actor, p.CreatedBy)
}

func (s *ManagerSuite) TestOneTimeProgramRequiresDate() {
	_, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept,
		Name:         "Hackathon 2026",
		Structure:    models.StructureOneTime,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ManagerSuite) TestBlueprintGetsNeitherSlugNorDate() {
	p := s.blueprint(models.StructureRecurring)
	s.Empty(p.Registration.LinkSlug)
	s.Nil(p.Date)
	s.True(p.IsBlueprint())
}

func (s *ManagerSuite) TestBlueprintIsNeverRegistrationEligible() {
	deadline := s.now.AddDate(0, 1, 0)
	p, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID:     s.dept,
		Name:             "Founder Bootcamp",
		Structure:        models.StructureNumerical,
		RegistrationOpen: true,
		Deadline:         &deadline,
	})
	s.Require().NoError(err)

	s.False(p.Registration.Open, "templates take registrations only through instances")
	s.Nil(p.Registration.Deadline)
	s.Empty(p.Registration.LinkSlug)
}

func (s *ManagerSuite) TestSameNameProducesDistinctSlugs() {
	date := s.now.AddDate(0, 1, 0)
	first, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept, Name: "Hackathon 2025",
		Structure: models.StructureOneTime, Date: &date,
	})
	s.Require().NoError(err)
	second, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept, Name: "Hackathon 2025",
		Structure: models.StructureOneTime, Date: &date,
	})
	s.Require().NoError(err)
	s.NotEqual(first.Registration.LinkSlug, second.Registration.LinkSlug)
}

func (s *ManagerSuite) TestAdminCreationIsApprovedDirectly() {
	ctx := requestcontext.WithRole(s.ctx, middleware.RoleAdmin)
	date := s.now.AddDate(0, 1, 0)
	p, err := s.manager.CreateProgram(ctx, CreateProgramInput{
		DepartmentID: s.dept, Name: "Demo Day",
		Structure: models.StructureOneTime, Date: &date,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, p.Status)
	s.NotNil(p.ApprovedAt)
}

func (s *ManagerSuite) TestNumericalInstancesAreBatchNumberedSequentially() {
	parent := s.blueprint(models.StructureNumerical)
	date := s.now.AddDate(0, 1, 0)

	suffixes := []string{"", "Lagos Edition", ""}
	var batches []int
	for i, suffix := range suffixes {
		p, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
			ParentID:     parent.ID,
			CustomSuffix: suffix,
			Date:         date.AddDate(0, i, 0),
		})
		s.Require().NoError(err)
		batches = append(batches, p.BatchNumber)
		s.Equal(models.StructureNumerical, p.Structure)
		if suffix == "" {
			s.Equal(fmt.Sprintf("Founder Bootcamp - Batch %d", p.BatchNumber), p.Name)
		} else {
			s.Equal("Founder Bootcamp - Lagos Edition", p.Name)
		}
	}
	s.Equal([]int{1, 2, 3}, batches)
}

func (s *ManagerSuite) TestConcurrentInstanceCreationNeverReusesBatchNumbers() {
	parent := s.blueprint(models.StructureNumerical)
	date := s.now.AddDate(0, 1, 0)

	const n = 24
	batches := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
				ParentID: parent.ID,
				Date:     date,
			})
			if s.NoError(err) {
				batches <- p.BatchNumber
			}
		}()
	}
	wg.Wait()
	close(batches)

	seen := make(map[int]bool, n)
	for b := range batches {
		s.False(seen[b], "batch number %d allocated twice", b)
		seen[b] = true
	}
	s.Len(seen, n)
}

func (s *ManagerSuite) TestRecurringInstanceLabelDefaultsToDate() {
	parent := s.blueprint(models.StructureRecurring)
	date := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)

	p, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
		ParentID: parent.ID,
		Date:     date,
	})
	s.Require().NoError(err)
	s.Equal("Founder Bootcamp - May 14, 2026", p.Name)
	s.Zero(p.BatchNumber)
	s.NotEmpty(p.Registration.LinkSlug)
}

func (s *ManagerSuite) TestInstanceInheritsVenueAndCostUnlessOverridden() {
	parent, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept,
		Name:         "Founder Bootcamp",
		Structure:    models.StructureRecurring,
		Venue:        "Main Hall",
		Cost:         1500,
	})
	s.Require().NoError(err)
	date := s.now.AddDate(0, 1, 0)

	inherited, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
		ParentID: parent.ID, Date: date,
	})
	s.Require().NoError(err)
	s.Equal("Main Hall", inherited.Venue)
	s.Equal(1500.0, inherited.Cost)

	venue := "Annex"
	cost := 0.0
	overridden, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
		ParentID: parent.ID, Date: date, Venue: &venue, Cost: &cost,
	})
	s.Require().NoError(err)
	s.Equal("Annex", overridden.Venue)
	s.Equal(0.0, overridden.Cost)
}

func (s *ManagerSuite) TestInstanceOfInstanceRejected() {
	parent := s.blueprint(models.StructureRecurring)
	date := s.now.AddDate(0, 1, 0)
	child, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
		ParentID: parent.ID, Date: date,
	})
	s.Require().NoError(err)

	_, err = s.manager.CreateInstance(s.ctx, CreateInstanceInput{
		ParentID: child.ID, Date: date,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ManagerSuite) TestCreateInstanceUnknownParent() {
	_, err := s.manager.CreateInstance(s.ctx, CreateInstanceInput{
		ParentID: id.NewProgramID(),
		Date:     s.now,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ManagerSuite) TestTransitionRecordsFirstApproval() {
	p := s.blueprint(models.StructureRecurring)

	approved, err := s.manager.Transition(s.ctx, p.ID, models.StatusApproved)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.Require().NotNil(approved.ApprovedAt)
	firstApproval := *approved.ApprovedAt

	// Re-approving later must not move the original approval timestamp.
	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
	_, err = s.manager.Transition(later, p.ID, models.StatusCancelled)
	s.Require().NoError(err)
	reapproved, err := s.manager.Transition(later, p.ID, models.StatusApproved)
	s.Require().NoError(err)
	s.Equal(firstApproval, *reapproved.ApprovedAt)
}

func (s *ManagerSuite) TestTransitionToCompletedRequiresPayload() {
	p := s.blueprint(models.StructureRecurring)
	_, err := s.manager.Transition(s.ctx, p.ID, models.StatusCompleted)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	reloaded, err := s.manager.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, reloaded.Status)
}

func (s *ManagerSuite) TestCompleteDefaultsActualDatesToScheduled() {
	date := s.now.AddDate(0, 1, 0)
	p, err := s.manager.CreateProgram(s.ctx, CreateProgramInput{
		DepartmentID: s.dept, Name: "Demo Day",
		Structure: models.StructureOneTime, Date: &date,
	})
	s.Require().NoError(err)

	completed, err := s.manager.Complete(s.ctx, p.ID, CompleteInput{
		ActualAttendance: 120,
		DriveLink:        "https://drive.example.org/demo-day",
		Comment:          "wrapped up under budget",
	})
	s.Require().NoError(err)

	s.Equal(models.StatusCompleted, completed.Status)
	s.Require().NotNil(completed.Completion)
	s.Equal(120, completed.Completion.ActualAttendance)
	s.Equal(date, completed.Completion.ActualStart)
	s.Equal(date, completed.Completion.ActualEnd)
	s.True(completed.Completion.Documented())

	s.Require().Len(completed.Updates, 1)
	s.Equal("wrapped up under budget", completed.Updates[0].Text)
	s.True(completed.Updates[0].CompletionNote)
	s.Equal(s.actor, completed.Updates[0].AuthorID)
}

func (s *ManagerSuite) TestAddUpdateAppendsInOrder() {
	p := s.blueprint(models.StructureRecurring)

	_, err := s.manager.AddUpdate(s.ctx, p.ID, "kickoff scheduled")
	s.Require().NoError(err)
	updated, err := s.manager.AddUpdate(s.ctx, p.ID, "venue confirmed")
	s.Require().NoError(err)

	s.Require().Len(updated.Updates, 2)
	s.Equal("kickoff scheduled", updated.Updates[0].Text)
	s.Equal("venue confirmed", updated.Updates[1].Text)

	_, err = s.manager.AddUpdate(s.ctx, p.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cohort/internal/notify"
	participantmodels "cohort/internal/participant/models"
	participantservice "cohort/internal/participant/service"
	participantstore "cohort/internal/participant/store"
	programmodels "cohort/internal/program/models"
	programstore "cohort/internal/program/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/requestcontext"
)

type recordingNotifier struct {
	sent chan string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, recipient string, _ notify.TemplateKind, _ map[string]any) error {
	n.sent <- recipient
	return n.err
}

type RegistrationSuite struct {
	suite.Suite
	programs     *programstore.InMemoryStore
	participants *participantstore.InMemoryStore
	notifier     *recordingNotifier
	service      *Service
	ctx          context.Context
	now          time.Time
}

func TestRegistrationSuite(t *testing.T) {
	suite.Run(t, new(RegistrationSuite))
}

func (s *RegistrationSuite) SetupTest() {
	s.programs = programstore.NewInMemoryStore()
	s.participants = participantstore.NewInMemoryStore()
	s.notifier = &recordingNotifier{sent: make(chan string, 8)}
	resolver := participantservice.NewResolver(s.participants, s.programs)
	s.service = New(s.programs, resolver, WithNotifier(s.notifier))
	s.now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *RegistrationSuite) seedProgram(open bool, deadline *time.Time, fields []programmodels.FormField) *programmodels.Program {
	date := s.now.AddDate(0, 1, 0)
	p := &programmodels.Program{
		ID:           id.NewProgramID(),
		DepartmentID: id.NewDepartmentID(),
		Name:         "Founder Bootcamp",
		Structure:    programmodels.StructureOneTime,
		Date:         &date,
		Registration: programmodels.Registration{
			Open:       open,
			Deadline:   deadline,
			LinkSlug:   "founder-bootcamp-abc123",
			FormFields: fields,
		},
		Status:    programmodels.StatusApproved,
		CreatedBy: id.NewUserID(),
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.programs.Create(s.ctx, p))
	return p
}

func (s *RegistrationSuite) request(ref string) Request {
	return Request{
		ProgramRef: ref,
		Attributes: participantmodels.Attributes{
			FullName: "Ada Obi",
			Email:    "ada@example.org",
		},
		Consent: true,
	}
}

func (s *RegistrationSuite) TestRegisterBySlug() {
	p := s.seedProgram(true, nil, nil)

	participant, err := s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.Require().NoError(err)
	s.Equal("ada@example.org", participant.Email)

	stored, err := s.programs.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(stored.HasParticipant(participant.ID))

	select {
	case recipient := <-s.notifier.sent:
		s.Equal("ada@example.org", recipient)
	case <-time.After(time.Second):
		s.Fail("confirmation was not sent")
	}
}

func (s *RegistrationSuite) TestRegisterFallsBackToIDForValidUUIDs() {
	p := s.seedProgram(true, nil, nil)

	participant, err := s.service.Register(s.ctx, s.request(p.ID.String()))
	s.Require().NoError(err)
	s.NotNil(participant)

	_, err = s.service.Register(s.ctx, s.request("no-such-slug"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrationSuite) TestBlueprintIDIsNotRegistrable() {
	// A blueprint has no slug; even a registration sub-object marked open
	// must not make its raw ID a registration door.
	blueprint := &programmodels.Program{
		ID:           id.NewProgramID(),
		DepartmentID: id.NewDepartmentID(),
		Name:         "Founder Bootcamp",
		Structure:    programmodels.StructureRecurring,
		Registration: programmodels.Registration{Open: true},
		Status:       programmodels.StatusApproved,
		CreatedBy:    id.NewUserID(),
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
	s.Require().NoError(s.programs.Create(s.ctx, blueprint))

	_, err := s.service.Register(s.ctx, s.request(blueprint.ID.String()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.programs.FindByID(s.ctx, blueprint.ID)
	s.Require().NoError(err)
	s.Empty(stored.Participants)
}

func (s *RegistrationSuite) TestClosedProgramRejectsBeforeDeadlineCheck() {
	past := s.now.Add(-time.Hour)
	p := s.seedProgram(false, &past, nil)

	_, err := s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.True(dErrors.HasCode(err, dErrors.CodeRegistrationClosed))
	s.Contains(err.Error(), "closed")
	s.NotContains(err.Error(), "deadline")
}

func (s *RegistrationSuite) TestPassedDeadlineRejectsEvenWhenOpen() {
	past := s.now.Add(-time.Hour)
	p := s.seedProgram(true, &past, nil)

	_, err := s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.True(dErrors.HasCode(err, dErrors.CodeRegistrationClosed))
	s.Contains(err.Error(), past.UTC().Format(time.RFC3339))
}

func (s *RegistrationSuite) TestConsentIsRequired() {
	p := s.seedProgram(true, nil, nil)

	req := s.request(p.Registration.LinkSlug)
	req.Consent = false
	_, err := s.service.Register(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RegistrationSuite) TestRequiredFormFieldsAreEnforced() {
	fields := []programmodels.FormField{
		{Label: "Startup Stage", Type: programmodels.FieldSelect, Required: true, Options: []string{"idea", "mvp"}},
	}
	p := s.seedProgram(true, nil, fields)

	_, err := s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	req := s.request(p.Registration.LinkSlug)
	req.Answers = map[string]any{"Startup Stage": "mvp"}
	participant, err := s.service.Register(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("mvp", participant.Data["Startup Stage"])
}

func (s *RegistrationSuite) TestDuplicateRegistrationRejected() {
	p := s.seedProgram(true, nil, nil)

	_, err := s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
}

func (s *RegistrationSuite) TestNotificationFailureDoesNotFailRegistration() {
	s.notifier.err = errors.New("smtp relay down")
	p := s.seedProgram(true, nil, nil)

	_, err := s.service.Register(s.ctx, s.request(p.Registration.LinkSlug))
	s.NoError(err)
}

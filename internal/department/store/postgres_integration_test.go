//go:build integration

package departmentstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cohort/internal/department/models"
	departmentstore "cohort/internal/department/store"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
	"cohort/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *departmentstore.PostgresStore
	ctx      context.Context
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = departmentstore.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "departments"))
}

func (s *PostgresStoreSuite) create(name string) *models.Department {
	d, err := models.New(id.NewDepartmentID(), name, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, d))
	return d
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	d := s.create("Entrepreneurship")

	got, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal("Entrepreneurship", got.Name)
	s.Nil(got.KPITargets)
	s.Nil(got.KPIWeights)

	_, err = s.store.FindByID(s.ctx, id.NewDepartmentID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestList() {
	s.create("Entrepreneurship")
	s.create("Innovation")

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresStoreSuite) TestSetKPIOverridesRoundTrip() {
	d := s.create("Entrepreneurship")

	updated, err := s.store.SetKPIOverrides(s.ctx, d.ID,
		map[string]float64{"programs_delivered": 10},
		map[string]float64{"programs_delivered": 40})
	s.Require().NoError(err)
	s.Equal(10.0, updated.KPITargets["programs_delivered"])
	s.Equal(40.0, updated.KPIWeights["programs_delivered"])

	got, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(10.0, got.KPITargets["programs_delivered"])

	_, err = s.store.SetKPIOverrides(s.ctx, id.NewDepartmentID(), nil, nil)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

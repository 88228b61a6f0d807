//go:build integration

package overview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	departmentmodels "cohort/internal/department/models"
	departmentstore "cohort/internal/department/store"
	programmodels "cohort/internal/program/models"
	programstore "cohort/internal/program/store"
	id "cohort/pkg/domain"
	"cohort/pkg/requestcontext"
	"cohort/pkg/testutil/containers"
)

func TestComputeServesFromRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	programs := programstore.NewInMemoryStore()
	departments := departmentstore.NewInMemoryStore()
	engine := NewEngine(programs, departments,
		WithCache(redis.Client, time.Minute))

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	dept, err := departmentmodels.New(id.NewDepartmentID(), "Entrepreneurship", now)
	require.NoError(t, err)
	require.NoError(t, departments.Create(ctx, dept))

	seedProgram := func() {
		p := &programmodels.Program{
			ID:           id.NewProgramID(),
			DepartmentID: dept.ID,
			Name:         "Founder Bootcamp",
			Structure:    programmodels.StructureOneTime,
			Status:       programmodels.StatusApproved,
			CreatedBy:    id.NewUserID(),
			CreatedAt:    now.AddDate(0, 0, -5),
			UpdatedAt:    now.AddDate(0, 0, -5),
		}
		require.NoError(t, programs.Create(ctx, p))
	}
	seedProgram()

	first, err := engine.Compute(ctx, dept.ID, "30d")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Totals.Programs)

	// A later write is invisible until the cache entry expires.
	seedProgram()
	cached, err := engine.Compute(ctx, dept.ID, "30d")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Totals.Programs)
	assert.Equal(t, first.GeneratedAt.UTC(), cached.GeneratedAt.UTC())

	// A different window token misses the cache.
	fresh, err := engine.Compute(ctx, dept.ID, "7d")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Totals.Programs)

	require.NoError(t, redis.FlushAll(ctx))
	recomputed, err := engine.Compute(ctx, dept.ID, "30d")
	require.NoError(t, err)
	assert.Equal(t, 2, recomputed.Totals.Programs)
}

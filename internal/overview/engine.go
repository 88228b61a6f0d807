// Package overview reduces a department's program activity inside a time
// window into six scored KPIs and a weighted composite. Reports are
// recomputed on every call and never persisted as source of truth; an
// optional cache only bounds recomputation load.
package overview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	departmentmodels "cohort/internal/department/models"
	departmentstore "cohort/internal/department/store"
	redisplatform "cohort/internal/platform/redis"
	programmodels "cohort/internal/program/models"
	programstore "cohort/internal/program/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

// TrendRow is one month of status counts, keyed year-month.
type TrendRow struct {
	Month  string         `json:"month"`
	Counts map[string]int `json:"counts"`
}

// Totals are the raw aggregates the KPIs are derived from, kept in the
// report for display.
type Totals struct {
	Programs          int     `json:"programs"`
	CostTotal         float64 `json:"cost_total"`
	ExpectedHeadcount int     `json:"expected_headcount"`
	ActualAttendance  int     `json:"actual_attendance"`
}

// Overview is a department performance report.
type Overview struct {
	DepartmentID   id.DepartmentID          `json:"department_id"`
	Window         Window                   `json:"window"`
	Totals         Totals                   `json:"totals"`
	KPIs           []KPI                    `json:"kpis"`
	CompositeScore float64                  `json:"composite_score"`
	Trend          []TrendRow               `json:"trend"`
	RecentPrograms []*programmodels.Program `json:"recent_programs"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

// recentProgramLimit bounds the display projection of newest programs.
const recentProgramLimit = 8

// Engine computes overview reports.
type Engine struct {
	programs    programstore.Store
	departments departmentstore.Store
	cache       *redisplatform.Client
	cacheTTL    time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCache caches rendered reports in Redis for ttl. A nil client disables
// caching.
func WithCache(cache *redisplatform.Client, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = cache
		e.cacheTTL = ttl
	}
}

// NewEngine constructs an Engine.
func NewEngine(programs programstore.Store, departments departmentstore.Store, opts ...Option) *Engine {
	e := &Engine{
		programs:    programs,
		departments: departments,
		tracer:      otel.Tracer("cohort/overview"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Compute builds the overview for a department over a relative range token.
func (e *Engine) Compute(ctx context.Context, departmentID id.DepartmentID, rangeToken string) (*Overview, error) {
	ctx, span := e.tracer.Start(ctx, "overview.compute", trace.WithAttributes(
		attribute.String("department.id", departmentID.String()),
		attribute.String("range", rangeToken),
	))
	defer span.End()

	department, err := e.departments.FindByID(ctx, departmentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "department not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}

	now := requestcontext.Now(ctx)
	window := ParseWindow(rangeToken, now)

	if cached := e.fromCache(ctx, departmentID, window.Token); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	programs, err := e.programs.ListByDepartmentCreatedBetween(ctx, departmentID, window.From, window.To)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load programs")
	}

	report := build(department, window, programs, now)
	e.toCache(ctx, report)
	return report, nil
}

// facts are the raw aggregates of one pass over the window's programs.
type facts struct {
	totals         Totals
	statusCounts   map[programmodels.Status]int
	documented     int
	leadTimeDays   float64
	approvedCount  int
	monthlyCounts  map[string]map[string]int
	recentPrograms []*programmodels.Program
}

func build(department *departmentmodels.Department, window Window, programs []*programmodels.Program, now time.Time) *Overview {
	f := aggregate(programs)

	completed := float64(f.statusCounts[programmodels.StatusCompleted])
	pending := float64(f.statusCounts[programmodels.StatusPending])
	closedOut := completed +
		float64(f.statusCounts[programmodels.StatusCancelled]) +
		float64(f.statusCounts[programmodels.StatusRejected])

	actuals := map[string]float64{
		MetricProgramsDelivered:       completed,
		MetricPendingBacklog:          pending,
		MetricCompletionRate:          ratio(completed, closedOut),
		MetricDocumentationCompliance: ratio(float64(f.documented), completed),
		MetricReachRate:               ratio(float64(f.totals.ActualAttendance), float64(f.totals.ExpectedHeadcount)),
		MetricApprovalLeadTimeDays:    ratio(f.leadTimeDays, float64(f.approvedCount)),
	}

	kpis := make([]KPI, 0, len(kpiDefinitions))
	for _, def := range kpiDefinitions {
		target := department.Target(def.Key, def.DefaultTarget)
		weight := department.Weight(def.Key, def.DefaultWeight)
		actual := actuals[def.Key]
		kpis = append(kpis, KPI{
			Key:       def.Key,
			Direction: def.Direction,
			Actual:    actual,
			Target:    target,
			Weight:    weight,
			Score:     scoreKPI(actual, target, def.Direction),
		})
	}

	return &Overview{
		DepartmentID:   department.ID,
		Window:         window,
		Totals:         f.totals,
		KPIs:           kpis,
		CompositeScore: compositeScore(kpis),
		Trend:          trendRows(f.monthlyCounts),
		RecentPrograms: f.recentPrograms,
		GeneratedAt:    now,
	}
}

func aggregate(programs []*programmodels.Program) facts {
	f := facts{
		statusCounts:  make(map[programmodels.Status]int),
		monthlyCounts: make(map[string]map[string]int),
	}
	for _, p := range programs {
		f.totals.Programs++
		f.totals.CostTotal += p.Cost
		f.totals.ExpectedHeadcount += p.ParticipantsCount
		f.statusCounts[p.Status]++

		if p.Completion != nil {
			f.totals.ActualAttendance += p.Completion.ActualAttendance
			if p.Status == programmodels.StatusCompleted && p.Completion.Documented() {
				f.documented++
			}
		}
		if p.ApprovedAt != nil {
			f.leadTimeDays += p.ApprovedAt.Sub(p.CreatedAt).Hours() / 24
			f.approvedCount++
		}

		month := p.CreatedAt.UTC().Format("2006-01")
		if f.monthlyCounts[month] == nil {
			f.monthlyCounts[month] = make(map[string]int)
		}
		f.monthlyCounts[month][string(p.Status)]++

		if len(f.recentPrograms) < recentProgramLimit {
			// The store returns programs newest first.
			f.recentPrograms = append(f.recentPrograms, p)
		}
	}
	return f
}

// trendRows flattens the monthly counts oldest first, one column for every
// status value observed in that month.
func trendRows(monthly map[string]map[string]int) []TrendRow {
	rows := make([]TrendRow, 0, len(monthly))
	for month, counts := range monthly {
		rows = append(rows, TrendRow{Month: month, Counts: counts})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows
}

func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func (e *Engine) cacheKey(departmentID id.DepartmentID, token string) string {
	return fmt.Sprintf("cohort:overview:%s:%s", departmentID, token)
}

func (e *Engine) fromCache(ctx context.Context, departmentID id.DepartmentID, token string) *Overview {
	if e.cache == nil {
		return nil
	}
	raw, err := e.cache.Get(ctx, e.cacheKey(departmentID, token)).Bytes()
	if err != nil {
		return nil
	}
	var report Overview
	if err := json.Unmarshal(raw, &report); err != nil {
		e.logger.WarnContext(ctx, "discarding malformed cached overview", "error", err)
		return nil
	}
	return &report
}

func (e *Engine) toCache(ctx context.Context, report *Overview) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	key := e.cacheKey(report.DepartmentID, report.Window.Token)
	if err := e.cache.Set(ctx, key, raw, e.cacheTTL).Err(); err != nil {
		e.logger.WarnContext(ctx, "overview cache write failed", "error", err)
	}
}

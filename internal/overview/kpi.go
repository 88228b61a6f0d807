package overview

// Direction states whether a higher or lower actual is better for a metric.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Metric keys for the six fixed KPIs.
const (
	MetricProgramsDelivered       = "programs_delivered"
	MetricPendingBacklog          = "pending_backlog"
	MetricCompletionRate          = "completion_rate"
	MetricDocumentationCompliance = "documentation_compliance"
	MetricReachRate               = "reach_rate"
	MetricApprovalLeadTimeDays    = "approval_lead_time_days"
)

// kpiDefinition fixes a metric's direction and fallback target/weight.
// Departments may override target and weight per metric; direction is not
// overridable.
type kpiDefinition struct {
	Key           string
	Direction     Direction
	DefaultTarget float64
	DefaultWeight float64
}

// kpiDefinitions is the scoring contract, in display order. Default weights
// sum to 100; department overrides are not required to.
var kpiDefinitions = []kpiDefinition{
	{MetricProgramsDelivered, DirectionUp, 6, 25},
	{MetricPendingBacklog, DirectionDown, 2, 10},
	{MetricCompletionRate, DirectionUp, 0.85, 20},
	{MetricDocumentationCompliance, DirectionUp, 0.80, 15},
	{MetricReachRate, DirectionUp, 0.75, 15},
	{MetricApprovalLeadTimeDays, DirectionDown, 3, 15},
}

// KPI is one scored metric in an overview report.
type KPI struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
	Actual    float64   `json:"actual"`
	Target    float64   `json:"target"`
	Weight    float64   `json:"weight"`
	Score     float64   `json:"score"`
}

// scoreKPI normalizes an actual against its target into [0, 100].
//
// A non-positive target scores 0: no meaningful target, no credit. For a
// down-direction metric a non-positive actual is a perfect 100; otherwise the
// ratio decays toward 0 as the actual exceeds the target but beating the
// target is capped at 100, never rewarded past it. Up-direction is the plain
// capped ratio.
func scoreKPI(actual, target float64, direction Direction) float64 {
	if target <= 0 {
		return 0
	}
	if direction == DirectionDown {
		if actual <= 0 {
			return 100
		}
		return clamp(target / actual * 100)
	}
	return clamp(actual / target * 100)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// compositeScore is the weighted mean of the per-KPI scores. A zero weight
// sum is treated as 1 to avoid dividing by zero.
func compositeScore(kpis []KPI) float64 {
	var weightSum, weighted float64
	for _, k := range kpis {
		weightSum += k.Weight
		weighted += k.Score * k.Weight
	}
	if weightSum == 0 {
		weightSum = 1
	}
	return weighted / weightSum
}

package monitor

import (
	"fmt"
	"time"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/ratelimit"
	"meridian-llm/meridian/pkg/routing"
)

// Utilization thresholds, in percent, that grade a dimension's usage.
const (
	thresholdInfo     = 50.0
	thresholdWarning  = 75.0
	thresholdCritical = 90.0

	// recommendUtilization is the point at which a dimension earns a
	// load-distribution recommendation.
	recommendUtilization = 80.0

	// tokenImbalanceGap is how far (in percentage points) token
	// utilization must outrun request utilization before prompts are
	// flagged as oversized.
	tokenImbalanceGap = 20.0
)

// Severity grades a warning or an overall model status.
type Severity string

const (
	SeverityHealthy  Severity = "healthy"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DimensionUsage is current consumption against one quota dimension.
type DimensionUsage struct {
	Current     int64   `json:"current"`
	Limit       int64   `json:"limit"`
	Remaining   int64   `json:"remaining"`
	Utilization float64 `json:"utilization_pct"`
}

// Warning flags a dimension whose utilization crossed a threshold.
type Warning struct {
	Severity    Severity            `json:"severity"`
	Dimension   ratelimit.Dimension `json:"dimension"`
	Message     string              `json:"message"`
	Utilization float64             `json:"utilization_pct"`
}

// Projection is a linear forecast for one dimension, assuming the usage
// accumulated so far repeats at the same rate.
type Projection struct {
	NextHour     int64      `json:"next_hour"`
	NextDay      int64      `json:"next_day"`
	TimeToLimit  *float64   `json:"time_to_limit_hours,omitempty"`
	ExhaustionAt *time.Time `json:"exhaustion_at,omitempty"`
}

// Recommendation suggests a concrete mitigation.
type Recommendation struct {
	Type        string   `json:"type"`
	Priority    Severity `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
}

// ModelReport is the full analysis for one provider/model pair.
type ModelReport struct {
	Model       string                                 `json:"model"`
	Status      Severity                               `json:"status"`
	Usage       map[ratelimit.Dimension]DimensionUsage `json:"usage"`
	Warnings    []Warning                              `json:"warnings,omitempty"`
	Projections map[ratelimit.Dimension]Projection     `json:"projections,omitempty"`
}

// ProviderReport aggregates the analysis for every model a provider serves.
type ProviderReport struct {
	Provider        string                  `json:"provider"`
	Timestamp       time.Time               `json:"timestamp"`
	Stats           providers.Stats         `json:"stats"`
	Circuit         routing.CircuitState    `json:"circuit"`
	Models          map[string]*ModelReport `json:"models"`
	Recommendations []Recommendation        `json:"recommendations,omitempty"`
}

// Summary counts providers by health across an Overview.
type Summary struct {
	TotalProviders       int `json:"total_providers"`
	ActiveProviders      int `json:"active_providers"`
	RateLimitedProviders int `json:"rate_limited_providers"`
	HealthyProviders     int `json:"healthy_providers"`
}

// Overview is the system-wide analytics report.
type Overview struct {
	Timestamp             time.Time                  `json:"timestamp"`
	Summary               Summary                    `json:"summary"`
	Providers             map[string]*ProviderReport `json:"providers"`
	GlobalRecommendations []Recommendation           `json:"global_recommendations,omitempty"`
}

// ProviderSet is the view of the provider registry the monitor needs.
// *providers.Registry satisfies it.
type ProviderSet interface {
	All() []providers.Provider
	Get(name string) (providers.Provider, bool)
}

// Monitor computes usage analytics from live provider and circuit state.
type Monitor struct {
	set     ProviderSet
	breaker *routing.CircuitBreaker

	now func() time.Time
}

// New creates a monitor over the given provider set. breaker may be nil
// when no router is wired (circuit state then reports closed).
func New(set ProviderSet, breaker *routing.CircuitBreaker) *Monitor {
	return &Monitor{
		set:     set,
		breaker: breaker,
		now:     time.Now,
	}
}

// Report builds the analytics report for a single provider.
func (m *Monitor) Report(provider string) (*ProviderReport, error) {
	p, ok := m.set.Get(provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return m.reportFor(p), nil
}

// Overview builds the system-wide report across every provider.
func (m *Monitor) Overview() *Overview {
	all := m.set.All()

	out := &Overview{
		Timestamp: m.now(),
		Summary:   Summary{TotalProviders: len(all)},
		Providers: make(map[string]*ProviderReport, len(all)),
	}

	for _, p := range all {
		report := m.reportFor(p)
		out.Providers[p.Name()] = report

		if len(report.Models) == 0 {
			continue
		}
		out.Summary.ActiveProviders++
		if reportUnderPressure(report) {
			out.Summary.RateLimitedProviders++
		} else {
			out.Summary.HealthyProviders++
		}
	}

	out.GlobalRecommendations = globalRecommendations(out.Providers)
	return out
}

func (m *Monitor) reportFor(p providers.Provider) *ProviderReport {
	report := &ProviderReport{
		Provider:  p.Name(),
		Timestamp: m.now(),
		Stats:     p.Stats(),
		Models:    make(map[string]*ModelReport),
	}
	if m.breaker != nil {
		report.Circuit = m.breaker.State(p.Name())
	}

	for _, model := range p.Models() {
		mr := m.analyzeModel(model, p.RateLimitStatus(model))
		report.Models[model] = mr
		report.Recommendations = append(report.Recommendations, recommendationsFor(mr)...)
	}
	return report
}

// analyzeModel grades one model's quota snapshot and projects its usage.
func (m *Monitor) analyzeModel(model string, snap ratelimit.Snapshot) *ModelReport {
	mr := &ModelReport{
		Model:       model,
		Status:      SeverityHealthy,
		Usage:       make(map[ratelimit.Dimension]DimensionUsage, len(snap)),
		Projections: make(map[ratelimit.Dimension]Projection),
	}

	for dim, st := range snap {
		usage := DimensionUsage{
			Current:   st.Current,
			Limit:     st.Limit,
			Remaining: max(0, st.Limit-st.Current),
		}
		if st.Limit > 0 {
			usage.Utilization = float64(st.Current) / float64(st.Limit) * 100
		}
		mr.Usage[dim] = usage

		if w, ok := gradeUtilization(dim, usage.Utilization); ok {
			mr.Warnings = append(mr.Warnings, w)
			mr.Status = escalate(mr.Status, w.Severity)
		}

		if proj, ok := m.project(usage); ok {
			mr.Projections[dim] = proj
		}
	}
	return mr
}

// project extends the usage accumulated so far linearly. The simple model
// treats the current count as an hourly rate, which is deliberately
// pessimistic for sub-hour windows.
func (m *Monitor) project(usage DimensionUsage) (Projection, bool) {
	if usage.Current <= 0 {
		return Projection{}, false
	}

	proj := Projection{
		NextHour: min(usage.Current*2, usage.Limit),
		NextDay:  min(usage.Current*24, usage.Limit),
	}

	hours := float64(usage.Remaining) / float64(usage.Current)
	at := m.now().Add(time.Duration(hours * float64(time.Hour)))
	proj.TimeToLimit = &hours
	proj.ExhaustionAt = &at
	return proj, true
}

func gradeUtilization(dim ratelimit.Dimension, pct float64) (Warning, bool) {
	switch {
	case pct >= thresholdCritical:
		return Warning{
			Severity:    SeverityCritical,
			Dimension:   dim,
			Message:     fmt.Sprintf("%s usage at %.1f%% - imminent rate limit", dim, pct),
			Utilization: pct,
		}, true
	case pct >= thresholdWarning:
		return Warning{
			Severity:    SeverityWarning,
			Dimension:   dim,
			Message:     fmt.Sprintf("%s usage at %.1f%% - approaching limit", dim, pct),
			Utilization: pct,
		}, true
	case pct >= thresholdInfo:
		return Warning{
			Severity:    SeverityInfo,
			Dimension:   dim,
			Message:     fmt.Sprintf("%s usage at %.1f%% - moderate usage", dim, pct),
			Utilization: pct,
		}, true
	}
	return Warning{}, false
}

// escalate keeps the worse of two statuses. Info never changes the
// overall status; it only annotates.
func escalate(current, next Severity) Severity {
	rank := map[Severity]int{
		SeverityHealthy:  0,
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityCritical: 2,
	}
	if rank[next] > rank[current] {
		return next
	}
	return current
}

func recommendationsFor(mr *ModelReport) []Recommendation {
	var recs []Recommendation

	for dim, usage := range mr.Usage {
		if usage.Utilization >= recommendUtilization {
			priority := SeverityWarning
			if usage.Utilization >= thresholdCritical {
				priority = SeverityCritical
			}
			recs = append(recs, Recommendation{
				Type:        "optimization",
				Priority:    priority,
				Title:       fmt.Sprintf("High %s usage for %s", dim, mr.Model),
				Description: "Consider request batching or spreading load across providers",
				Action:      "distribute_load",
			})
		}
	}

	tokenPct := mr.Usage[ratelimit.DimTokensPerMinute].Utilization
	requestPct := mr.Usage[ratelimit.DimRequestsPerMinute].Utilization
	if tokenPct > requestPct+tokenImbalanceGap {
		recs = append(recs, Recommendation{
			Type:        "efficiency",
			Priority:    SeverityWarning,
			Title:       fmt.Sprintf("High token-to-request ratio for %s", mr.Model),
			Description: "Token quota is depleting faster than request quota; consider shorter prompts",
			Action:      "optimize_prompts",
		})
	}

	return recs
}

func globalRecommendations(reports map[string]*ProviderReport) []Recommendation {
	pressured := 0
	for _, report := range reports {
		if reportUnderPressure(report) {
			pressured++
		}
	}

	if pressured > 1 {
		return []Recommendation{{
			Type:        "system",
			Priority:    SeverityCritical,
			Title:       "Multiple providers under pressure",
			Description: fmt.Sprintf("%d providers are approaching their rate limits", pressured),
			Action:      "implement_load_balancing",
		}}
	}
	return nil
}

// reportUnderPressure is true when any model has escalated past healthy.
func reportUnderPressure(report *ProviderReport) bool {
	for _, mr := range report.Models {
		if mr.Status == SeverityWarning || mr.Status == SeverityCritical {
			return true
		}
	}
	return false
}

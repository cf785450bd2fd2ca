package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles Prometheus metrics for the scenario-run pipeline.
// All observation methods are nil-safe so callers can run without metrics
// wired (e.g. in tests).
type RunCollector struct {
	gatherer prometheus.Gatherer

	// ScenarioRuns counts orchestrated scenarios by outcome:
	// completed, cached, or failed.
	ScenarioRuns *prometheus.CounterVec

	// RunStages counts executed pipeline stages (base, disrupt); cached
	// scenarios execute none.
	RunStages *prometheus.CounterVec

	// JoinWarnings counts non-fatal table-join problems by lookup table,
	// the operator's signal that input data needs review.
	JoinWarnings *prometheus.CounterVec

	// NetworkLinks is the row count of the most recently built link table.
	NetworkLinks prometheus.Gauge
}

// NewRunCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenario_runs_total",
		Help: "Total number of orchestrated scenario runs, labeled by outcome.",
	}, []string{"outcome"}), "scenario_runs_total")
	if err != nil {
		return nil, err
	}

	stages, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "run_stages_total",
		Help: "Total number of executed pipeline stages, labeled by stage.",
	}, []string{"stage"}), "run_stages_total")
	if err != nil {
		return nil, err
	}

	joins, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "table_join_warnings_total",
		Help: "Total number of non-fatal table-join warnings, labeled by lookup table.",
	}, []string{"table"}), "table_join_warnings_total")
	if err != nil {
		return nil, err
	}

	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "network_links_last_built",
		Help: "Row count of the most recently built network link table.",
	}), "network_links_last_built")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:     gatherer,
		ScenarioRuns: runs,
		RunStages:    stages,
		JoinWarnings: joins,
		NetworkLinks: links,
	}, nil
}

// ObserveRun records a finished orchestration by outcome.
func (c *RunCollector) ObserveRun(outcome string) {
	if c == nil || c.ScenarioRuns == nil {
		return
	}
	c.ScenarioRuns.WithLabelValues(outcome).Inc()
}

// ObserveStage records one executed pipeline stage.
func (c *RunCollector) ObserveStage(stage string) {
	if c == nil || c.RunStages == nil {
		return
	}
	c.RunStages.WithLabelValues(stage).Inc()
}

// ObserveJoinWarning records a non-fatal join problem for a lookup table.
func (c *RunCollector) ObserveJoinWarning(table string) {
	if c == nil || c.JoinWarnings == nil {
		return
	}
	c.JoinWarnings.WithLabelValues(table).Inc()
}

// SetNetworkLinks records the size of the last built link table.
func (c *RunCollector) SetNetworkLinks(n int) {
	if c == nil || c.NetworkLinks == nil {
		return
	}
	c.NetworkLinks.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

// core/orchestrator.go
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/eneucereHGAC/RDR-Public/internal/logging"
	"github.com/eneucereHGAC/RDR-Public/internal/observability"
	"github.com/eneucereHGAC/RDR-Public/internal/store"
	"github.com/eneucereHGAC/RDR-Public/model"
)

// ProjectFunc projects a built network CSV into a run's relational store.
// Injectable so orchestration tests can run without a database file.
type ProjectFunc func(ctx context.Context, dbPath, csvPath string) error

// Orchestrator sequences one scenario through base-run and disrupted-run
// preparation, with artifact-based caching and delegation to the external
// assignment engine at the two solve points.
//
// The pipeline is strictly sequential and single-threaded: provisioning,
// table building, relational projection, then solve, with the base stage
// fully complete before the disrupted stage begins (the disrupted solve
// warm-starts from the base run's matrices). A fatal error aborts the whole
// scenario; partially written artifacts are cleaned up by the next attempt's
// destructive re-provisioning, never retried here.
type Orchestrator struct {
	cfg     *RunConfig
	log     logging.Logger
	metrics *observability.RunCollector
	tracer  trace.Tracer

	engine       Engine
	folders      *RunFolderManager
	builder      *TableBuilder
	availability *AvailabilityEngine
	project      ProjectFunc
}

func NewOrchestrator(cfg *RunConfig, log logging.Logger, metrics *observability.RunCollector, engine Engine) *Orchestrator {
	if log == nil {
		log = logging.Noop()
	}
	return &Orchestrator{
		cfg:          cfg,
		log:          log,
		metrics:      metrics,
		tracer:       otel.Tracer("scenariorun/orchestrator"),
		engine:       engine,
		folders:      NewRunFolderManager(cfg, log),
		builder:      NewTableBuilder(cfg, log, metrics),
		availability: NewAvailabilityEngine(cfg, log, metrics),
		project:      store.ProjectLinkTable,
	}
}

// WithProjectFunc swaps the relational projection, for tests.
func (o *Orchestrator) WithProjectFunc(fn ProjectFunc) *Orchestrator {
	o.project = fn
	return o
}

// Run produces, or confirms already produced, assignment outputs for both
// the base and disrupted networks of one scenario. At most one unit of work
// happens per (scenario, run id) identity: when the disrupted skim artifact
// already exists the call is a no-op performing zero filesystem writes.
func (o *Orchestrator) Run(ctx context.Context, scen model.Scenario) error {
	if err := scen.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}

	id := model.RunIdentity{RunID: o.cfg.RunID, Scenario: scen}
	artifacts := id.Artifacts(o.cfg.OutputDir)
	log := o.log.With(
		logging.String("scenario", scen.DisruptScenName()),
		logging.String("run_id", o.cfg.RunID),
	)

	if fileExists(artifacts.DisruptSkim()) {
		log.Info(ctx, "scenario already solved for this run id; skipping",
			logging.String("skim", artifacts.DisruptSkim()))
		o.metrics.ObserveRun("cached")
		return nil
	}

	if err := o.baseStage(ctx, log, scen, id, artifacts); err != nil {
		o.metrics.ObserveRun("failed")
		return err
	}
	if err := o.disruptStage(ctx, log, scen, id, artifacts); err != nil {
		o.metrics.ObserveRun("failed")
		return err
	}

	o.metrics.ObserveRun("completed")
	return nil
}

// baseStage prepares and solves the undisrupted network, unless its
// canonical skim artifact already exists.
func (o *Orchestrator) baseStage(ctx context.Context, log logging.Logger, scen model.Scenario, id model.RunIdentity, artifacts model.ArtifactSet) error {
	if fileExists(artifacts.BaseSkim()) {
		log.Debug(ctx, "base run already solved; skipping base stage")
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "scenariorun.base_stage",
		trace.WithAttributes(attribute.String("scenario", scen.BaseScenName())))
	defer span.End()
	o.metrics.ObserveStage("base")

	runDir := id.BaseRunDir(o.cfg.OutputDir)
	dbPath, err := o.folders.Provision(ctx, scen, runDir)
	if err != nil {
		return err
	}

	csvPath, err := o.builder.Build(ctx, RunBase, scen, runDir)
	if err != nil {
		return err
	}
	if !fileExists(csvPath) {
		return fmt.Errorf("base network csv %s: %w", csvPath, ErrMissingArtifact)
	}

	if err := o.project(ctx, dbPath, csvPath); err != nil {
		return fmt.Errorf("projecting base network into %s: %w", dbPath, err)
	}

	log.Info(ctx, "base network prepared; delegating to assignment engine",
		logging.String("run_dir", runDir))
	if err := o.engine.SolveBase(ctx, scen, runDir); err != nil {
		return fmt.Errorf("base solve: %w", err)
	}
	return nil
}

// disruptStage always runs when reached; only the whole-scenario completion
// check in Run short-circuits it.
func (o *Orchestrator) disruptStage(ctx context.Context, log logging.Logger, scen model.Scenario, id model.RunIdentity, artifacts model.ArtifactSet) error {
	ctx, span := o.tracer.Start(ctx, "scenariorun.disrupt_stage",
		trace.WithAttributes(attribute.String("scenario", scen.DisruptScenName())))
	defer span.End()
	o.metrics.ObserveStage("disrupt")

	runDir := id.DisruptRunDir(o.cfg.OutputDir)
	dbPath, err := o.folders.Provision(ctx, scen, runDir)
	if err != nil {
		return err
	}

	// The disrupted solve warm-starts from the base run's converged
	// matrices; both must exist by now.
	for _, src := range []string{artifacts.BaseSkim(), artifacts.BaseAssignment()} {
		if !fileExists(src) {
			return fmt.Errorf("base run matrix %s: %w", src, ErrMissingArtifact)
		}
		dst := filepath.Join(runDir, model.MatrixFolder, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copying base run matrix %s: %v", src, err)
		}
	}

	if _, err := o.availability.ComputeAvailability(ctx, scen, runDir); err != nil {
		return err
	}

	csvPath, err := o.builder.Build(ctx, RunDisrupt, scen, runDir)
	if err != nil {
		return err
	}
	if !fileExists(csvPath) {
		return fmt.Errorf("disrupted network csv %s: %w", csvPath, ErrMissingArtifact)
	}

	if err := o.project(ctx, dbPath, csvPath); err != nil {
		return fmt.Errorf("projecting disrupted network into %s: %w", dbPath, err)
	}

	log.Info(ctx, "disrupted network prepared; delegating to assignment engine",
		logging.String("run_dir", runDir),
		logging.Any("mini_equilibrium", scen.RunMiniEq))
	if err := o.engine.SolveDisrupted(ctx, scen, runDir); err != nil {
		return fmt.Errorf("disrupted solve: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

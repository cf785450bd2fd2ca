// core/engine.go
package core

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/eneucereHGAC/RDR-Public/internal/logging"
	"github.com/eneucereHGAC/RDR-Public/model"
)

// Engine is the external traffic-assignment solver. It is handed a fully
// provisioned run directory (populated link table, demand matrix) and is
// expected to write the canonical skim and assignment matrix files back into
// the same directory; those files are the pipeline's completion signals.
type Engine interface {
	// SolveBase runs the undisrupted network assignment.
	SolveBase(ctx context.Context, scen model.Scenario, runDir string) error

	// SolveDisrupted runs the disrupted network assignment, warm-started
	// from the base run's matrices already copied into runDir. Whether a
	// secondary mini-equilibrium pass runs is the engine's concern,
	// signalled by scen.RunMiniEq.
	SolveDisrupted(ctx context.Context, scen model.Scenario, runDir string) error
}

// CommandEngine invokes the solver as an external command, appending the run
// directory as the final argument. The mini-equilibrium flag and trip-table
// selector travel via environment variables.
type CommandEngine struct {
	BaseCmd    []string
	DisruptCmd []string
	Log        logging.Logger
}

func (e *CommandEngine) SolveBase(ctx context.Context, scen model.Scenario, runDir string) error {
	return e.run(ctx, e.BaseCmd, "base solve", scen, runDir)
}

func (e *CommandEngine) SolveDisrupted(ctx context.Context, scen model.Scenario, runDir string) error {
	return e.run(ctx, e.DisruptCmd, "disrupted solve", scen, runDir)
}

func (e *CommandEngine) run(ctx context.Context, argv []string, stage string, scen model.Scenario, runDir string) error {
	if len(argv) == 0 {
		if e.Log != nil {
			e.Log.Info(ctx, "no solver command configured; leaving solve to the caller",
				logging.String("stage", stage),
				logging.String("run_dir", runDir))
		}
		return nil
	}
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], runDir)...)
	cmd.Env = append(cmd.Environ(),
		"SCENARIORUN_MATRIX="+scen.MatrixName,
		fmt.Sprintf("SCENARIORUN_MINIEQ=%t", scen.RunMiniEq),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s command %q in %s: %v: %s", stage, argv[0], runDir, err, out)
	}
	return nil
}

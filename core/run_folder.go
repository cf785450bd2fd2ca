// core/run_folder.go
package core

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eneucereHGAC/RDR-Public/internal/logging"
	"github.com/eneucereHGAC/RDR-Public/model"
)

// ProjectDatabaseFile is the relational store copied out of the master
// template into every run directory.
const ProjectDatabaseFile = "project_database.sqlite"

// masterTemplateDir is the engine's master folder under the input directory.
const masterTemplateDir = "AEMaster"

// RunFolderManager provisions scenario working directories from the master
// template. Provisioning is destructive on purpose: a pre-existing directory
// is deleted wholesale before re-copying, so a restarted step never sees
// stale partial state. There is no resume, only restart.
type RunFolderManager struct {
	cfg *RunConfig
	log logging.Logger
}

func NewRunFolderManager(cfg *RunConfig, log logging.Logger) *RunFolderManager {
	if log == nil {
		log = logging.Noop()
	}
	return &RunFolderManager{cfg: cfg, log: log}
}

// Provision builds runDir from the master template, excluding matrix files,
// then copies in the one demand matrix for the scenario's socio-economic id.
// It returns the path to the run's copy of the project database.
func (m *RunFolderManager) Provision(ctx context.Context, scen model.Scenario, runDir string) (string, error) {
	if _, err := os.Stat(runDir); err == nil {
		m.log.Warn(ctx, "run directory already exists (prior incomplete run); removing and re-provisioning",
			logging.String("path", runDir))
		if err := os.RemoveAll(runDir); err != nil {
			return "", fmt.Errorf("removing stale run directory %s: %v", runDir, err)
		}
	}

	master := filepath.Join(m.cfg.InputDir, masterTemplateDir)
	if _, err := os.Stat(master); err != nil {
		return "", fmt.Errorf("master template folder %s: %w", master, ErrMissingArtifact)
	}

	m.log.Debug(ctx, "provisioning run directory",
		logging.String("template", master),
		logging.String("path", runDir))
	if err := copyTreeExcludingMatrices(master, runDir); err != nil {
		return "", fmt.Errorf("copying master template into %s: %v", runDir, err)
	}

	demand := filepath.Join(master, model.MatrixFolder, scen.Socio+"_demand_summed.omx")
	if _, err := os.Stat(demand); err != nil {
		return "", fmt.Errorf("demand matrix %s: %w", demand, ErrMissingArtifact)
	}
	if err := copyFile(demand, filepath.Join(runDir, model.MatrixFolder, filepath.Base(demand))); err != nil {
		return "", fmt.Errorf("copying demand matrix into %s: %v", runDir, err)
	}

	return filepath.Join(runDir, ProjectDatabaseFile), nil
}

// copyTreeExcludingMatrices mirrors the template tree, skipping the binary
// trip-table files so each run only carries its own demand matrix.
func copyTreeExcludingMatrices(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if strings.EqualFold(filepath.Ext(path), ".omx") {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

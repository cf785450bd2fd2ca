// model/identity.go
package model

import "path/filepath"

// MatrixFolder is the run-directory subfolder the assignment engine reads
// and writes its matrix files in.
const MatrixFolder = "matrices"

const (
	runsDir         = "aeq_runs"
	baseYearRunsDir = "aeq_runs_base_year"
)

// RunIdentity pins one scenario to one run/batch id. Paths are constructed
// deterministically from the identity's fields, so two identities collide on
// disk exactly when they compare equal; the run id (rather than a date) keeps
// a sweep that crosses midnight inside one folder tree.
type RunIdentity struct {
	RunID    string
	Scenario Scenario
}

func (id RunIdentity) runsRoot() string {
	if id.Scenario.Socio == BaseYearSocio {
		return baseYearRunsDir
	}
	return runsDir
}

// BaseRunDir is the working directory for the undisrupted network run.
func (id RunIdentity) BaseRunDir(outputRoot string) string {
	return filepath.Join(outputRoot, id.runsRoot(), "base", id.RunID,
		id.Scenario.BaseScenName(), id.Scenario.MatrixName)
}

// DisruptRunDir is the working directory for the disrupted network run.
func (id RunIdentity) DisruptRunDir(outputRoot string) string {
	return filepath.Join(outputRoot, id.runsRoot(), "disrupt", id.RunID,
		id.Scenario.DisruptScenName(), id.Scenario.MatrixName)
}

// Artifacts resolves the canonical completion-marker files for this identity.
func (id RunIdentity) Artifacts(outputRoot string) ArtifactSet {
	return ArtifactSet{
		baseDir:    id.BaseRunDir(outputRoot),
		disruptDir: id.DisruptRunDir(outputRoot),
		baseScen:   id.Scenario.BaseScenName(),
	}
}

// ArtifactSet locates the output files whose presence signals a completed
// step. The caching check only ever tests existence; contents belong to the
// assignment engine.
type ArtifactSet struct {
	baseDir    string
	disruptDir string
	baseScen   string
}

// DisruptSkim is the disrupted run's skim file. Its presence means the whole
// scenario is already done.
func (a ArtifactSet) DisruptSkim() string {
	return filepath.Join(a.disruptDir, "NetSkim.csv")
}

// BaseSkim is the base run's converged skim matrix. Its presence means the
// base stage is already done.
func (a ArtifactSet) BaseSkim() string {
	return filepath.Join(a.baseDir, MatrixFolder, "sp_"+a.baseScen+".omx")
}

// BaseAssignment is the base run's converged assignment matrix, copied into
// the disrupted run directory as a warm start.
func (a ArtifactSet) BaseAssignment() string {
	return filepath.Join(a.baseDir, MatrixFolder, "rt_"+a.baseScen+".omx")
}

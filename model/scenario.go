// model/scenario.go
package model

import (
	"fmt"
	"strconv"
)

// Trip-table selectors. The selector decides which demand matrix a run
// assigns and, downstream, which toll / travel-time columns are read from
// the project-group network file.
const (
	MatrixFull  = "matrix"
	MatrixNoCar = "nocar"
)

// BaseYearSocio routes runs into a separate output tree so base-year results
// never collide with future-year scenarios sharing a project group.
const BaseYearSocio = "baseyear"

// Scenario identifies one unit of assignment work: a socio-economic future,
// project group, resilience project, hazard event, and recovery stage.
// Immutable once constructed; the outer sweep driver creates one per
// combination and owns it for the duration of the run.
type Scenario struct {
	Socio      string  // socio-economic scenario id, e.g. "base", "urban", "baseyear"
	ProjGroup  string  // project group id, e.g. "04", "30"
	Resil      string  // resilience project id; "no" = baseline
	Elasticity float64 // non-positive trip-loss elasticity, e.g. 0, -0.5, -1
	Hazard     string  // hazard event id, e.g. "100yr3SLR"
	Recovery   string  // exposure depth already repaired at this recovery stage
	RunMiniEq  bool    // whether the disrupted solve runs a secondary mini-equilibrium pass
	MatrixName string  // MatrixFull or MatrixNoCar
}

// Validate checks the fields the pipeline itself depends on. Raw input files
// are verified by the upstream input-validation collaborator, not here.
func (s Scenario) Validate() error {
	if s.Socio == "" || s.ProjGroup == "" {
		return fmt.Errorf("scenario requires socio and projgroup ids")
	}
	if s.Resil == "" {
		return fmt.Errorf("scenario requires a resilience project id (use %q for baseline)", "no")
	}
	if s.Elasticity > 0 {
		return fmt.Errorf("scenario elasticity must be non-positive, got %v", s.Elasticity)
	}
	if s.MatrixName != MatrixFull && s.MatrixName != MatrixNoCar {
		return fmt.Errorf("scenario matrix name must be %q or %q, got %q", MatrixFull, MatrixNoCar, s.MatrixName)
	}
	if _, err := s.RecoveryDepth(); err != nil {
		return err
	}
	return nil
}

// BaseScenName is the folder token identifying the undisrupted network run,
// shared by every scenario with the same socio + project group.
func (s Scenario) BaseScenName() string {
	return s.Socio + s.ProjGroup
}

// ElasName encodes the non-positive elasticity as a folder-safe token:
// -0.5 becomes "5", -1 becomes "10".
func (s Scenario) ElasName() string {
	return strconv.Itoa(int(10 * -s.Elasticity))
}

// DisruptScenName is the folder token identifying the disrupted run.
func (s Scenario) DisruptScenName() string {
	return s.BaseScenName() + "_" + s.Resil + "_" + s.ElasName() + "_" + s.Hazard + "_" + s.Recovery
}

// RecoveryDepth parses the recovery stage into the exposure depth considered
// already repaired. Stages are whole depths in the configured exposure unit.
func (s Scenario) RecoveryDepth() (float64, error) {
	d, err := strconv.Atoi(s.Recovery)
	if err != nil {
		return 0, fmt.Errorf("scenario recovery stage %q is not a whole depth: %w", s.Recovery, err)
	}
	return float64(d), nil
}

// AvailabilityFileName names the intermediate per-link availability table
// written into the disrupted run directory.
func (s Scenario) AvailabilityFileName() string {
	return "NP_Disrupt_" + s.Resil + "_" + s.Hazard + "_" + s.Recovery + ".csv"
}

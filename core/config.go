// core/config.go
package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// Resilience mitigation approaches.
const (
	MitigationBinary = "binary" // every project link is fully mitigated
	MitigationManual = "manual" // per-link Exposure Reduction column is read
)

// Link availability approaches.
const (
	PolicyBinary      = "binary"
	PolicyDepthDamage = "default_flood_exposure_function"
	PolicyManual      = "manual"
	PolicyBeta        = "beta_distribution_function"
)

// RunConfig carries the sweep-wide settings shared by every scenario: where
// inputs and outputs live, how hazard exposure maps to link availability, and
// how the external assignment engine is invoked.
type RunConfig struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	RunID     string `json:"run_id"`

	// ZoneConnThreshold is the node id below which an endpoint marks its
	// link as a zone connector, exempt from all disruption effects.
	ZoneConnThreshold int `json:"zone_conn"`

	// ExposureField is the column of the hazard CSV holding the exposure
	// magnitude; ExposureUnit its real-world unit (feet, yards, meters).
	ExposureField string `json:"exposure_field"`
	ExposureUnit  string `json:"exposure_unit"`

	// HazardFiles maps a hazard event id to the exposure CSV (without
	// extension) under <InputDir>/Hazards.
	HazardFiles map[string]string `json:"hazard_files"`

	ResilMitigationApproach string `json:"resil_mitigation_approach"`

	LinkAvailabilityApproach string `json:"link_availability_approach"`

	// LinkAvailabilityCSV is the manual policy's breakpoint table.
	LinkAvailabilityCSV string `json:"link_availability_csv"`

	// Beta-distribution policy parameters.
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	BetaMethod string  `json:"beta_method"` // "lower cumulative" or "upper cumulative"

	// External engine invocations; the run directory is appended as the
	// final argument. Empty commands leave the solve to the caller.
	BaseSolveCommand    []string `json:"base_solve_command"`
	DisruptSolveCommand []string `json:"disrupt_solve_command"`
}

// LoadRunConfig reads and validates a JSON run configuration.
func LoadRunConfig(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("run config %s: %w", path, ErrMissingArtifact)
	}
	var cfg RunConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("run config %s: %v: %w", path, err, ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate applies defaults and rejects settings no step could act on.
// Policy-specific parameters are checked again by NewPolicy, which is the
// single constructor for availability policies.
func (c *RunConfig) Validate() error {
	if c.InputDir == "" || c.OutputDir == "" {
		return fmt.Errorf("input_dir and output_dir are required: %w", ErrInvalidConfig)
	}
	if c.RunID == "" {
		return fmt.Errorf("run_id is required: %w", ErrInvalidConfig)
	}
	if c.ResilMitigationApproach == "" {
		c.ResilMitigationApproach = MitigationBinary
	}
	if c.ResilMitigationApproach != MitigationBinary && c.ResilMitigationApproach != MitigationManual {
		return fmt.Errorf("resil_mitigation_approach must be %q or %q, got %q: %w",
			MitigationBinary, MitigationManual, c.ResilMitigationApproach, ErrInvalidConfig)
	}
	if c.LinkAvailabilityApproach == "" {
		c.LinkAvailabilityApproach = PolicyBinary
	}
	if c.ExposureField == "" {
		return fmt.Errorf("exposure_field is required: %w", ErrInvalidConfig)
	}
	if c.ZoneConnThreshold <= 0 {
		return fmt.Errorf("zone_conn must be a positive node id threshold: %w", ErrInvalidConfig)
	}
	return nil
}

// HazardFile resolves the exposure CSV path for a hazard event id.
func (c *RunConfig) HazardFile(hazard string) (string, error) {
	name, ok := c.HazardFiles[hazard]
	if !ok {
		return "", fmt.Errorf("no exposure file configured for hazard %q: %w", hazard, ErrInvalidConfig)
	}
	return name + ".csv", nil
}

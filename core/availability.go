// core/availability.go
package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/eneucereHGAC/RDR-Public/internal/logging"
	"github.com/eneucereHGAC/RDR-Public/internal/observability"
	"github.com/eneucereHGAC/RDR-Public/model"
)

// AvailabilityEngine derives per-link availability for a disrupted network:
// hazard exposure, less recovery progress, less resilience-project
// mitigation, mapped through the configured policy.
type AvailabilityEngine struct {
	cfg     *RunConfig
	log     logging.Logger
	metrics *observability.RunCollector
}

func NewAvailabilityEngine(cfg *RunConfig, log logging.Logger, metrics *observability.RunCollector) *AvailabilityEngine {
	if log == nil {
		log = logging.Noop()
	}
	return &AvailabilityEngine{cfg: cfg, log: log, metrics: metrics}
}

// ComputeAvailability loads the hazard exposure and project mitigation
// tables, derives availability for the scenario, and writes the availability
// table into runDir. The returned records mirror what was written.
func (e *AvailabilityEngine) ComputeAvailability(ctx context.Context, scen model.Scenario, runDir string) ([]model.AvailabilityRecord, error) {
	e.log.Debug(ctx, "calculating link availability",
		logging.String("hazard", scen.Hazard),
		logging.String("recovery", scen.Recovery),
		logging.String("resil", scen.Resil))

	// Policy construction runs before any file IO so configuration errors
	// surface first.
	policy, err := NewPolicy(e.cfg)
	if err != nil {
		return nil, err
	}

	recovery, err := scen.RecoveryDepth()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}

	mitigation, err := e.loadProjectMitigation(ctx, scen.Resil)
	if err != nil {
		return nil, err
	}

	exposures, err := e.loadExposures(ctx, scen.Hazard)
	if err != nil {
		return nil, err
	}

	e.log.Debug(ctx, "input tables loaded",
		logging.Int("exposure_rows", len(exposures)),
		logging.Int("project_links", len(mitigation)))

	records := DeriveAvailability(exposures, mitigation, recovery, e.cfg.ZoneConnThreshold, policy)

	if len(records) != len(exposures) {
		e.log.Warn(ctx, "link availability row count drifted from exposure input",
			logging.Int("exposure_rows", len(exposures)),
			logging.Int("availability_rows", len(records)))
		e.metrics.ObserveJoinWarning("availability")
	}

	outPath := filepath.Join(runDir, scen.AvailabilityFileName())
	if err := writeAvailabilityCSV(outPath, records); err != nil {
		return nil, err
	}
	e.log.Info(ctx, "link availability table written",
		logging.String("path", outPath),
		logging.String("policy", policy.Name()),
		logging.Int("links", len(records)))
	return records, nil
}

// DeriveAvailability is the pure core of the engine. Steps run in fixed
// order: zone-connector marking, project association, residual exposure,
// policy application, then the sentinel and zone-connector overrides, with
// the zone-connector override applied last so it has final priority.
func DeriveAvailability(exposures []model.ExposureRecord, mitigation map[int]float64,
	recoveryDepth float64, zoneConnThreshold int, policy Policy) []model.AvailabilityRecord {

	records := make([]model.AvailabilityRecord, 0, len(exposures))
	for _, ex := range exposures {
		rec := model.AvailabilityRecord{
			LinkID:   ex.LinkID,
			A:        ex.A,
			B:        ex.B,
			Exposure: ex.Exposure,
		}
		rec.ZoneConn = ex.A < zoneConnThreshold || ex.B < zoneConnThreshold

		reduction, associated := mitigation[ex.LinkID]
		rec.VulProject = associated
		rec.ExposureReduction = reduction

		residual := ex.Exposure - recoveryDepth
		if residual < 0 {
			residual = 0
		}
		// The sentinel is a marker, not a magnitude; it is excluded from
		// the numeric subtraction and handled as an override below.
		if reduction != model.FullMitigation {
			residual -= reduction
			if residual < 0 {
				residual = 0
			}
		}
		rec.Residual = residual

		avail := policy.Availability(residual)
		if reduction == model.FullMitigation {
			avail = 1
		}
		if rec.ZoneConn {
			avail = 1
		}
		rec.Available = avail
		records = append(records, rec)
	}
	return records
}

// loadExposures reads the hazard event's exposure table, de-duplicated by
// link id with blank exposure cells treated as zero.
func (e *AvailabilityEngine) loadExposures(ctx context.Context, hazard string) ([]model.ExposureRecord, error) {
	name, err := e.cfg.HazardFile(hazard)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(e.cfg.InputDir, "Hazards", name)
	table, err := readCSVTable(path)
	if err != nil {
		return nil, fmt.Errorf("exposure table %s: %w", path, ErrMissingArtifact)
	}
	if err := table.requireColumns("link_id", "A", "B", e.cfg.ExposureField); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}

	seen := make(map[int]bool, len(table.rows))
	duplicates := 0
	records := make([]model.ExposureRecord, 0, len(table.rows))
	for _, row := range table.rows {
		linkID, err := table.intField(row, "link_id")
		if err != nil {
			return nil, err
		}
		if seen[linkID] {
			duplicates++
			continue
		}
		seen[linkID] = true

		rec := model.ExposureRecord{LinkID: linkID}
		if rec.A, err = table.intField(row, "A"); err != nil {
			return nil, err
		}
		if rec.B, err = table.intField(row, "B"); err != nil {
			return nil, err
		}
		if rec.Exposure, err = table.floatField(row, e.cfg.ExposureField, 0); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if duplicates > 0 {
		e.log.Warn(ctx, "exposure table carries duplicate link ids",
			logging.String("path", path),
			logging.Int("duplicates", duplicates))
		e.metrics.ObserveJoinWarning("exposure")
	}
	return records, nil
}

// loadProjectMitigation reads the resilience project lookup filtered to one
// project id, returning link id -> exposure reduction. Under the binary
// mitigation approach every project link is fully mitigated; under the
// manual approach the Exposure Reduction column is read, blank cells
// meaning no reduction.
func (e *AvailabilityEngine) loadProjectMitigation(ctx context.Context, resil string) (map[int]float64, error) {
	path := filepath.Join(e.cfg.InputDir, "LookupTables", "project_table.csv")
	table, err := readCSVTable(path)
	if err != nil {
		return nil, fmt.Errorf("project table %s: %w", path, ErrMissingArtifact)
	}
	if err := table.requireColumns("Project ID", "link_id"); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	manual := e.cfg.ResilMitigationApproach == MitigationManual
	if manual {
		if err := table.requireColumns("Exposure Reduction"); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
		}
	}

	mitigation := make(map[int]float64)
	duplicates := 0
	for _, row := range table.rows {
		if table.field(row, "Project ID") != resil {
			continue
		}
		linkID, err := table.intField(row, "link_id")
		if err != nil {
			return nil, err
		}
		if _, ok := mitigation[linkID]; ok {
			duplicates++
			continue
		}
		reduction := model.FullMitigation
		if manual {
			if reduction, err = table.floatField(row, "Exposure Reduction", 0); err != nil {
				return nil, err
			}
		}
		mitigation[linkID] = reduction
	}
	if duplicates > 0 {
		e.log.Warn(ctx, "project table carries duplicate (project, link) pairs",
			logging.String("path", path),
			logging.String("resil", resil),
			logging.Int("duplicates", duplicates))
		e.metrics.ObserveJoinWarning("project")
	}
	return mitigation, nil
}

func writeAvailabilityCSV(path string, records []model.AvailabilityRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("availability table %s: %v", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(model.AvailabilityColumns); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.LinkID),
			strconv.Itoa(rec.A),
			strconv.Itoa(rec.B),
			formatFloat(rec.Exposure),
			boolFlag(rec.ZoneConn),
			boolFlag(rec.VulProject),
			formatFloat(rec.ExposureReduction),
			formatFloat(rec.Residual),
			formatFloat(rec.Available),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("availability table %s: %v", path, err)
	}
	return f.Close()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

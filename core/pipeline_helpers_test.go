// core/pipeline_helpers_test.go
package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eneucereHGAC/RDR-Public/model"
)

// testConfig returns a RunConfig rooted in fresh temp dirs with the binary
// policy and a single configured hazard.
func testConfig(t *testing.T) *RunConfig {
	t.Helper()
	cfg := &RunConfig{
		InputDir:                 t.TempDir(),
		OutputDir:                t.TempDir(),
		RunID:                    "1",
		ZoneConnThreshold:        1000,
		ExposureField:            "depth",
		ExposureUnit:             "feet",
		HazardFiles:              map[string]string{"100yr": "haz_100yr"},
		ResilMitigationApproach:  MitigationBinary,
		LinkAvailabilityApproach: PolicyBinary,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func testScenario() model.Scenario {
	return model.Scenario{
		Socio:      "base",
		ProjGroup:  "04",
		Resil:      "no",
		Elasticity: -1,
		Hazard:     "100yr",
		Recovery:   "0",
		MatrixName: model.MatrixFull,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeExposures populates the configured hazard CSV.
func writeExposures(t *testing.T, cfg *RunConfig, rows string) {
	t.Helper()
	writeFile(t, filepath.Join(cfg.InputDir, "Hazards", "haz_100yr.csv"),
		"link_id,A,B,depth\n"+rows)
}

// writeProjectTable populates the resilience project lookup.
func writeProjectTable(t *testing.T, cfg *RunConfig, rows string) {
	t.Helper()
	writeFile(t, filepath.Join(cfg.InputDir, "LookupTables", "project_table.csv"),
		"Project ID,link_id,Exposure Reduction\n"+rows)
}

// writeNetwork populates the project-group network file for testScenario.
func writeNetwork(t *testing.T, cfg *RunConfig, rows string) {
	t.Helper()
	writeFile(t, filepath.Join(cfg.InputDir, "Networks", "base04.csv"),
		"link_id,from_node_id,to_node_id,directed,length,facility_type,capacity,free_speed,lanes,allowed_uses,toll,travel_time,toll_nocar,travel_time_nocar\n"+rows)
}

// writeMasterTemplate provisions a minimal AEMaster folder with a project
// database file, one demand matrix, and one stray matrix that must not be
// copied.
func writeMasterTemplate(t *testing.T, cfg *RunConfig, socio string) {
	t.Helper()
	master := filepath.Join(cfg.InputDir, "AEMaster")
	writeFile(t, filepath.Join(master, "project_database.sqlite"), "db")
	writeFile(t, filepath.Join(master, model.MatrixFolder, socio+"_demand_summed.omx"), "demand")
	writeFile(t, filepath.Join(master, model.MatrixFolder, "other_demand_summed.omx"), "other")
}

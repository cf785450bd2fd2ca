// core/table_builder_test.go
package core

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/eneucereHGAC/RDR-Public/model"
)

func readRows(t *testing.T, path string) (header []string, rows []map[string]string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(records) == 0 {
		t.Fatalf("%s is empty", path)
	}
	header = records[0]
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows
}

func floatCell(t *testing.T, row map[string]string, col string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(row[col], 64)
	if err != nil {
		t.Fatalf("column %q value %q: %v", col, row[col], err)
	}
	return v
}

func TestBuild_BaseRunEveryLinkFullyAvailable(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg,
		"1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1.0,6\n"+
			"2,3000,4000,1,2.0,arterial,800,45,3,c,0,4,0,8\n")

	runDir := t.TempDir()
	builder := NewTableBuilder(cfg, nil, nil)
	path, err := builder.Build(context.Background(), RunBase, scen, runDir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if filepath.Base(path) != "Group04_baserun.csv" {
		t.Errorf("base table name = %s", filepath.Base(path))
	}

	header, rows := readRows(t, path)
	if strings.Join(header, ",") != strings.Join(model.NetworkLinkColumns, ",") {
		t.Fatalf("column order = %v", header)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if row["link_available"] != "1" {
			t.Errorf("link %s availability = %s, want 1", row["link_id"], row["link_available"])
		}
	}
	// capacity = per-lane capacity x lanes x availability
	if got := floatCell(t, rows[0], "capacity"); math.Abs(got-1000*2*1) > 1e-6 {
		t.Errorf("link 1 capacity = %v, want 2000", got)
	}
	if got := floatCell(t, rows[1], "capacity"); math.Abs(got-800*3*1) > 1e-6 {
		t.Errorf("link 2 capacity = %v, want 2400", got)
	}
}

func TestBuild_NoCarVariantSelectsAlternateColumns(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	scen.MatrixName = model.MatrixNoCar
	writeNetwork(t, cfg, "1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,9.5,42\n")

	builder := NewTableBuilder(cfg, nil, nil)
	path, err := builder.Build(context.Background(), RunBase, scen, t.TempDir())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, rows := readRows(t, path)
	if rows[0]["toll"] != "9.5" {
		t.Errorf("toll = %s, want nocar toll 9.5", rows[0]["toll"])
	}
	if rows[0]["travel_time"] != "42" {
		t.Errorf("travel_time = %s, want nocar travel time 42", rows[0]["travel_time"])
	}
}

func TestBuild_DisruptedCapacityScaling(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg,
		"1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1.0,6\n"+
			"2,3000,4000,1,2.0,arterial,800,45,3,c,0,4,0,8\n"+
			"3,4000,5000,1,1.0,local,500,30,1,c,0,5,0,10\n")

	runDir := t.TempDir()
	// Availability table covers links 1 and 2 only; link 3 takes the
	// near-unavailable fill.
	writeFile(t, filepath.Join(runDir, scen.AvailabilityFileName()),
		"link_id,link_available\n1,0.25\n2,0\n")

	builder := NewTableBuilder(cfg, nil, nil)
	path, err := builder.Build(context.Background(), RunDisrupt, scen, runDir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if filepath.Base(path) != "Group04_no_100yr_0.csv" {
		t.Errorf("disrupted table name = %s", filepath.Base(path))
	}

	_, rows := readRows(t, path)
	if got := floatCell(t, rows[0], "capacity"); math.Abs(got-1000*2*0.25) > 1e-6 {
		t.Errorf("link 1 capacity = %v, want 500", got)
	}
	if got := floatCell(t, rows[1], "capacity"); got != 0 {
		t.Errorf("link 2 capacity = %v, want 0", got)
	}
	if got := floatCell(t, rows[2], "link_available"); got != DefaultLinkAvailable {
		t.Errorf("link 3 availability = %v, want fill %v", got, DefaultLinkAvailable)
	}
	if got := floatCell(t, rows[2], "capacity"); math.Abs(got-500*1*DefaultLinkAvailable) > 1e-6 {
		t.Errorf("link 3 capacity = %v, want %v", got, 500*DefaultLinkAvailable)
	}
}

func TestBuild_DisruptedAvailabilityJoinZeroMatchesFatal(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg, "1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1,6\n")

	runDir := t.TempDir()
	writeFile(t, filepath.Join(runDir, scen.AvailabilityFileName()),
		"link_id,link_available\n999,0.5\n")

	builder := NewTableBuilder(cfg, nil, nil)
	if _, err := builder.Build(context.Background(), RunDisrupt, scen, runDir); !errors.Is(err, ErrJoinIntegrity) {
		t.Fatalf("Build error = %v, want ErrJoinIntegrity", err)
	}
}

func TestBuild_DisruptedMissingAvailabilityTableFatal(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg, "1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1,6\n")

	builder := NewTableBuilder(cfg, nil, nil)
	if _, err := builder.Build(context.Background(), RunDisrupt, scen, t.TempDir()); !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("Build error = %v, want ErrMissingArtifact", err)
	}
}

func TestBuild_BlankAvailabilityCellReadsAsZero(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg, "1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1,6\n")

	runDir := t.TempDir()
	writeFile(t, filepath.Join(runDir, scen.AvailabilityFileName()),
		"link_id,link_available\n1,\n")

	builder := NewTableBuilder(cfg, nil, nil)
	path, err := builder.Build(context.Background(), RunDisrupt, scen, runDir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, rows := readRows(t, path)
	if got := floatCell(t, rows[0], "link_available"); got != 0 {
		t.Errorf("blank availability cell = %v, want 0", got)
	}
}

func TestBuild_VolumeDelayDefaultsAndLookup(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg,
		"1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1,6\n"+
			"2,3000,4000,1,2.0,ferry,800,45,3,c,0,4,0,8\n")

	// Without a lookup table both links take the fixed defaults.
	builder := NewTableBuilder(cfg, nil, nil)
	path, err := builder.Build(context.Background(), RunBase, scen, t.TempDir())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, rows := readRows(t, path)
	for _, row := range rows {
		if floatCell(t, row, "alpha") != 0.15 || floatCell(t, row, "beta") != 4 {
			t.Errorf("link %s vdf = %s/%s, want defaults 0.15/4", row["link_id"], row["alpha"], row["beta"])
		}
	}

	// With a lookup covering only "highway", the unmatched row keeps the
	// defaults; a partial match must never be fatal.
	writeFile(t, filepath.Join(cfg.InputDir, "LookupTables", "link_types_table.csv"),
		"facility_type,alpha,beta\nhighway,0.5,5.5\n")
	path, err = builder.Build(context.Background(), RunBase, scen, t.TempDir())
	if err != nil {
		t.Fatalf("Build with lookup: %v", err)
	}
	_, rows = readRows(t, path)
	if floatCell(t, rows[0], "alpha") != 0.5 || floatCell(t, rows[0], "beta") != 5.5 {
		t.Errorf("highway vdf = %s/%s, want 0.5/5.5", rows[0]["alpha"], rows[0]["beta"])
	}
	if floatCell(t, rows[1], "alpha") != 0.15 || floatCell(t, rows[1], "beta") != 4 {
		t.Errorf("ferry vdf = %s/%s, want defaults", rows[1]["alpha"], rows[1]["beta"])
	}
}

func TestBuild_TrueShapeJoinIsCosmetic(t *testing.T) {
	cfg := testConfig(t)
	scen := testScenario()
	writeNetwork(t, cfg, "1,2000,3000,1,1.5,highway,1000,60,2,c,0.5,3,1,6\n")

	// No shape file: empty wkt, no error.
	builder := NewTableBuilder(cfg, nil, nil)
	path, err := builder.Build(context.Background(), RunBase, scen, t.TempDir())
	if err != nil {
		t.Fatalf("Build without shapes: %v", err)
	}
	_, rows := readRows(t, path)
	if rows[0]["wkt"] != "" {
		t.Errorf("wkt without shape file = %q, want empty", rows[0]["wkt"])
	}

	// Shape file with a match fills wkt.
	writeFile(t, filepath.Join(cfg.InputDir, "LookupTables", "TrueShape.csv"),
		"link_id,WKT\n1,LINESTRING(0 0 1 1)\n")
	path, err = builder.Build(context.Background(), RunBase, scen, t.TempDir())
	if err != nil {
		t.Fatalf("Build with shapes: %v", err)
	}
	_, rows = readRows(t, path)
	if rows[0]["wkt"] != "LINESTRING(0 0 1 1)" {
		t.Errorf("wkt = %q", rows[0]["wkt"])
	}

	// Shape file matching nothing is a warning, never an error.
	writeFile(t, filepath.Join(cfg.InputDir, "LookupTables", "TrueShape.csv"),
		"link_id,WKT\n999,LINESTRING(2 2 3 3)\n")
	if _, err := builder.Build(context.Background(), RunBase, scen, t.TempDir()); err != nil {
		t.Fatalf("Build with zero-match shapes: %v", err)
	}
}

func TestBuild_MissingNetworkFileFatal(t *testing.T) {
	cfg := testConfig(t)
	builder := NewTableBuilder(cfg, nil, nil)
	if _, err := builder.Build(context.Background(), RunBase, testScenario(), t.TempDir()); !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("Build error = %v, want ErrMissingArtifact", err)
	}
}

func TestOutputTableName_RejectsUnknownRunType(t *testing.T) {
	if _, err := OutputTableName(RunType("rehearsal"), testScenario()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("OutputTableName error = %v, want ErrInvalidConfig", err)
	}
}

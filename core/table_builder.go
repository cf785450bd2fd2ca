// core/table_builder.go
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

// RunType distinguishes the undisrupted base build from the disrupted build.
type RunType string

const (
	RunBase    RunType = "base"
	RunDisrupt RunType = "disrupt"
)

// DefaultLinkAvailable fills availability for links the availability join
// missed after producing at least one match. Near-unavailable rather than
// zero or one: it fails the assignment solve softly instead of silently
// excluding capacity. The constant matches the NetworkPrep workbook.
const DefaultLinkAvailable = 0.999

// Volume-delay fallbacks for facility types absent from the lookup table.
const (
	defaultVDFAlpha = 0.15
	defaultVDFBeta  = 4.0
)

// TableBuilder joins the base network attributes, availability, true-shape
// geometry, and volume-delay lookups into the assignment-ready link table.
type TableBuilder struct {
	cfg     *RunConfig
	log     logging.Logger
	metrics *observability.RunCollector
}

func NewTableBuilder(cfg *RunConfig, log logging.Logger, metrics *observability.RunCollector) *TableBuilder {
	if log == nil {
		log = logging.Noop()
	}
	return &TableBuilder{cfg: cfg, log: log, metrics: metrics}
}

// OutputTableName is the canonical network CSV name for a run, also used as
// the staging-table identity in the relational store.
func OutputTableName(runType RunType, scen model.Scenario) (string, error) {
	switch runType {
	case RunBase:
		return "Group" + scen.ProjGroup + "_baserun", nil
	case RunDisrupt:
		return "Group" + scen.ProjGroup + "_" + scen.Resil + "_" + scen.Hazard + "_" + scen.Recovery, nil
	default:
		return "", fmt.Errorf("run type %q must be %q or %q: %w", runType, RunBase, RunDisrupt, ErrInvalidConfig)
	}
}

// Build produces the assignment-ready network CSV inside runDir and returns
// its path. Base builds mark every link fully available; disrupted builds
// join the availability table written by the availability engine.
func (b *TableBuilder) Build(ctx context.Context, runType RunType, scen model.Scenario, runDir string) (string, error) {
	b.log.Debug(ctx, "creating network links table",
		logging.String("run_type", string(runType)),
		logging.String("scenario", scen.DisruptScenName()),
		logging.String("trip_table", scen.MatrixName))

	tableName, err := OutputTableName(runType, scen)
	if err != nil {
		return "", err
	}

	links, err := b.loadNetwork(scen)
	if err != nil {
		return "", err
	}
	inputRows := len(links)

	dupes := b.joinTrueShape(ctx, links)
	if runType == RunDisrupt {
		availDupes, err := b.joinAvailability(ctx, scen, runDir, links)
		if err != nil {
			return "", err
		}
		dupes += availDupes
	} else {
		for i := range links {
			links[i].LinkAvailable = 1
		}
	}

	// Effective capacity: the network file carries capacity per lane per
	// day, the assignment engine wants capacity per day. This is the only
	// place hazard exposure becomes assignment-visible.
	for i := range links {
		links[i].Capacity = links[i].Capacity * float64(links[i].Lanes) * links[i].LinkAvailable
	}

	dupes += b.joinVolumeDelay(ctx, links)

	if dupes > 0 {
		b.log.Warn(ctx, "network table joins hit duplicate lookup keys",
			logging.String("scenario", scen.DisruptScenName()),
			logging.Int("duplicate_keys", dupes))
	}
	if len(links) != inputRows {
		b.log.Warn(ctx, "network table row count drifted from input",
			logging.Int("input_rows", inputRows),
			logging.Int("output_rows", len(links)))
		b.metrics.ObserveJoinWarning("network")
	}

	outPath := filepath.Join(runDir, tableName+".csv")
	if err := writeNetworkCSV(outPath, links); err != nil {
		return "", err
	}
	b.metrics.SetNetworkLinks(len(links))
	b.log.Info(ctx, "network links table written",
		logging.String("path", outPath),
		logging.Int("links", len(links)))
	return outPath, nil
}

// loadNetwork reads the project-group network file, selecting toll and
// travel-time columns per the trip-table variant and renaming them to
// canonical names.
func (b *TableBuilder) loadNetwork(scen model.Scenario) ([]model.NetworkLinkRow, error) {
	path := filepath.Join(b.cfg.InputDir, "Networks", scen.BaseScenName()+".csv")
	table, err := readCSVTable(path)
	if err != nil {
		return nil, fmt.Errorf("network file %s: %w", path, ErrMissingArtifact)
	}

	tollCol, timeCol := "toll", "travel_time"
	if scen.MatrixName == model.MatrixNoCar {
		tollCol, timeCol = "toll_nocar", "travel_time_nocar"
	}
	required := []string{
		"link_id", "from_node_id", "to_node_id", "directed", "length",
		"facility_type", "capacity", "free_speed", "lanes", "allowed_uses",
		tollCol, timeCol,
	}
	if err := table.requireColumns(required...); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}

	links := make([]model.NetworkLinkRow, 0, len(table.rows))
	for _, row := range table.rows {
		var link model.NetworkLinkRow
		if link.LinkID, err = table.intField(row, "link_id"); err != nil {
			return nil, err
		}
		if link.FromNodeID, err = table.intField(row, "from_node_id"); err != nil {
			return nil, err
		}
		if link.ToNodeID, err = table.intField(row, "to_node_id"); err != nil {
			return nil, err
		}
		if link.Directed, err = table.intField(row, "directed"); err != nil {
			return nil, err
		}
		if link.Length, err = table.floatField(row, "length", 0); err != nil {
			return nil, err
		}
		link.FacilityType = table.field(row, "facility_type")
		if link.Capacity, err = table.floatField(row, "capacity", 0); err != nil {
			return nil, err
		}
		if link.FreeSpeed, err = table.floatField(row, "free_speed", 0); err != nil {
			return nil, err
		}
		if link.Lanes, err = table.intField(row, "lanes"); err != nil {
			return nil, err
		}
		link.AllowedUses = table.field(row, "allowed_uses")
		if link.Toll, err = table.floatField(row, tollCol, 0); err != nil {
			return nil, err
		}
		if link.TravelTime, err = table.floatField(row, timeCol, 0); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// joinTrueShape attaches WKT geometry from the optional true-shape lookup.
// A missing file or a zero-match join is cosmetic, never fatal. Returns the
// number of duplicate lookup keys encountered.
func (b *TableBuilder) joinTrueShape(ctx context.Context, links []model.NetworkLinkRow) int {
	path := filepath.Join(b.cfg.InputDir, "LookupTables", "TrueShape.csv")
	table, err := readCSVTable(path)
	if err != nil {
		b.log.Warn(ctx, "true shape file could not be read (optional); continuing without geometry",
			logging.String("path", path))
		return 0
	}
	if err := table.requireColumns("link_id", "WKT"); err != nil {
		b.log.Warn(ctx, "true shape file missing columns (optional); continuing without geometry",
			logging.String("path", path))
		return 0
	}

	shapes := make(map[int]string, len(table.rows))
	duplicates := 0
	for _, row := range table.rows {
		linkID, err := table.intField(row, "link_id")
		if err != nil {
			continue
		}
		if _, ok := shapes[linkID]; ok {
			duplicates++
			continue
		}
		shapes[linkID] = table.field(row, "WKT")
	}

	matched := 0
	for i := range links {
		if wkt, ok := shapes[links[i].LinkID]; ok {
			links[i].WKT = wkt
			matched++
		}
	}
	if matched == 0 && len(links) > 0 {
		b.log.Warn(ctx, "true shape join produced no matches")
		b.metrics.ObserveJoinWarning("true_shape")
	}
	return duplicates
}

// joinAvailability attaches the availability fraction computed for the
// disrupted scenario. Zero matches is the single fatal join outcome in the
// builder: it means the join key spaces disagree. Links the join misses
// after at least one match fill with DefaultLinkAvailable; availability
// cells blank in the CSV itself load as zero.
func (b *TableBuilder) joinAvailability(ctx context.Context, scen model.Scenario, runDir string, links []model.NetworkLinkRow) (int, error) {
	path := filepath.Join(runDir, scen.AvailabilityFileName())
	table, err := readCSVTable(path)
	if err != nil {
		return 0, fmt.Errorf("link availability table %s: %w", path, ErrMissingArtifact)
	}
	if err := table.requireColumns("link_id", "link_available"); err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}

	avail := make(map[int]float64, len(table.rows))
	duplicates := 0
	for _, row := range table.rows {
		linkID, err := table.intField(row, "link_id")
		if err != nil {
			return 0, err
		}
		if _, ok := avail[linkID]; ok {
			duplicates++
			continue
		}
		v, err := table.floatField(row, "link_available", 0)
		if err != nil {
			return 0, err
		}
		avail[linkID] = v
	}

	matched := 0
	for i := range links {
		if v, ok := avail[links[i].LinkID]; ok {
			links[i].LinkAvailable = v
			matched++
		} else {
			links[i].LinkAvailable = DefaultLinkAvailable
		}
	}
	if matched == 0 && len(links) > 0 {
		b.metrics.ObserveJoinWarning("availability")
		return duplicates, fmt.Errorf(
			"availability join from %s matched no network links; check the corresponding table columns: %w",
			path, ErrJoinIntegrity)
	}
	if missed := len(links) - matched; missed > 0 {
		b.log.Warn(ctx, "links missing from availability table filled with near-unavailable default",
			logging.Int("links", missed),
			logging.Float64("fill", DefaultLinkAvailable))
	}
	return duplicates, nil
}

// joinVolumeDelay attaches alpha/beta volume-delay parameters by facility
// type from the optional lookup, falling back to the fixed defaults. Never
// fatal. Returns the number of duplicate lookup keys encountered.
func (b *TableBuilder) joinVolumeDelay(ctx context.Context, links []model.NetworkLinkRow) int {
	for i := range links {
		links[i].Alpha = defaultVDFAlpha
		links[i].Beta = defaultVDFBeta
	}

	path := filepath.Join(b.cfg.InputDir, "LookupTables", "link_types_table.csv")
	table, err := readCSVTable(path)
	if err != nil {
		b.log.Debug(ctx, "link types table not found (optional); using default volume-delay parameters",
			logging.String("path", path))
		return 0
	}
	if err := table.requireColumns("facility_type", "alpha", "beta"); err != nil {
		b.log.Warn(ctx, "link types table missing columns (optional); using default volume-delay parameters",
			logging.String("path", path))
		return 0
	}

	type vdf struct{ alpha, beta float64 }
	params := make(map[string]vdf, len(table.rows))
	duplicates := 0
	for _, row := range table.rows {
		ft := table.field(row, "facility_type")
		if _, ok := params[ft]; ok {
			duplicates++
			continue
		}
		alpha, errA := table.floatField(row, "alpha", defaultVDFAlpha)
		beta, errB := table.floatField(row, "beta", defaultVDFBeta)
		if errA != nil || errB != nil {
			continue
		}
		params[ft] = vdf{alpha: alpha, beta: beta}
	}

	matched := 0
	for i := range links {
		if p, ok := params[links[i].FacilityType]; ok {
			links[i].Alpha = p.alpha
			links[i].Beta = p.beta
			matched++
		}
	}
	if matched == 0 && len(links) > 0 {
		b.log.Warn(ctx, "link types join produced no matches; all links on default volume-delay parameters")
		b.metrics.ObserveJoinWarning("link_types")
	}
	return duplicates
}

func writeNetworkCSV(path string, links []model.NetworkLinkRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("network table %s: %v", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(model.NetworkLinkColumns); err != nil {
		f.Close()
		return err
	}
	for _, link := range links {
		row := []string{
			strconv.Itoa(link.LinkID),
			strconv.Itoa(link.FromNodeID),
			strconv.Itoa(link.ToNodeID),
			strconv.Itoa(link.Directed),
			formatFloat(link.Length),
			link.FacilityType,
			formatFloat(link.Capacity),
			formatFloat(link.FreeSpeed),
			strconv.Itoa(link.Lanes),
			link.AllowedUses,
			formatFloat(link.TravelTime),
			formatFloat(link.Toll),
			formatFloat(link.Alpha),
			formatFloat(link.Beta),
			formatFloat(link.LinkAvailable),
			link.WKT,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("network table %s: %v", path, err)
	}
	return f.Close()
}

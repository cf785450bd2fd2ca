// internal/store/store.go

// Package store projects a built network CSV into the run's relational
// store: the CSV is bulk-loaded as a staging table, the canonical link table
// is cleared and refilled from it with a fixed column remapping, and the
// reverse direction is forced closed.
package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// StagingTable is the staging table the network CSV is loaded into; it is
// replaced wholesale on every projection.
const StagingTable = "GMNS_link"

// Text-typed staging columns; everything else gets numeric affinity so the
// availability filter below compares numbers, not strings.
var textColumns = map[string]bool{
	"facility_type": true,
	"allowed_uses":  true,
	"wkt":           true,
}

// insertLinks remaps staging columns into the canonical links table,
// excluding links with no available capacity: an unavailable link leaves the
// assignable network entirely rather than riding along with zero capacity.
const insertLinks = `insert into links(ogc_fid, link_id, a_node, b_node, direction, distance, modes,
	link_type, capacity_ab, speed_ab, free_flow_time, toll, alpha, beta)
	select link_id, link_id, from_node_id, to_node_id, directed, length, allowed_uses,
	facility_type, capacity, free_speed, travel_time, toll, alpha, beta
	from ` + StagingTable + `
	where ` + StagingTable + `.link_available > 0`

// zeroReverse closes the opposing direction on every link; the network is
// modeled as one-way-only links.
const zeroReverse = `update links set capacity_ba = 0, speed_ba = 0`

// ProjectLinkTable loads csvPath into the staging table of the sqlite
// database at dbPath and derives the canonical links table from it. The
// whole projection runs in one transaction.
func ProjectLinkTable(ctx context.Context, dbPath, csvPath string) error {
	header, rows, err := readCSV(csvPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %v", dbPath, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction on %s: %v", dbPath, err)
	}
	defer tx.Rollback()

	if err := loadStaging(ctx, tx, header, rows); err != nil {
		return fmt.Errorf("staging %s into %s: %v", csvPath, dbPath, err)
	}
	if _, err := tx.ExecContext(ctx, `delete from links`); err != nil {
		return fmt.Errorf("clearing links table in %s: %v", dbPath, err)
	}
	if _, err := tx.ExecContext(ctx, insertLinks); err != nil {
		return fmt.Errorf("deriving links table in %s: %v", dbPath, err)
	}
	if _, err := tx.ExecContext(ctx, zeroReverse); err != nil {
		return fmt.Errorf("zeroing reverse capacity in %s: %v", dbPath, err)
	}
	return tx.Commit()
}

func loadStaging(ctx context.Context, tx *sql.Tx, header []string, rows [][]string) error {
	if _, err := tx.ExecContext(ctx, `drop table if exists `+StagingTable); err != nil {
		return err
	}

	defs := make([]string, len(header))
	for i, col := range header {
		affinity := "NUMERIC"
		if textColumns[col] {
			affinity = "TEXT"
		}
		defs[i] = fmt.Sprintf("%q %s", col, affinity)
	}
	create := fmt.Sprintf("create table %s (%s)", StagingTable, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("insert into %s values (%s)", StagingTable, placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for _, row := range rows {
		for i := range header {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("network csv %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("network csv %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("network csv %s: empty table", path)
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(col)
	}
	return header, records[1:], nil
}

// model/availability.go
package model

// AvailabilityRecord is the derived per-link availability for one disrupted
// scenario. Written once to the scenario's availability table and re-read by
// the network table builder; never mutated afterwards.
//
// Invariants: zone-connector links and fully-mitigated project links always
// carry Available == 1.0, regardless of policy.
type AvailabilityRecord struct {
	LinkID int
	A, B   int

	Exposure          float64 // raw hazard exposure
	ZoneConn          bool    // either endpoint id below the zone-connector threshold
	VulProject        bool    // link belongs to the scenario's resilience project
	ExposureReduction float64 // mitigation bought by the project; 0 if unassociated
	Residual          float64 // exposure after recovery depth and mitigation
	Available         float64 // usable fraction of capacity
}

// AvailabilityColumns is the emit order of the intermediate availability CSV.
var AvailabilityColumns = []string{
	"link_id", "A", "B", "exposure",
	"zone_conn", "vul_project", "exposure_reduction",
	"recov_value", "link_available",
}

// model/link.go
package model

// NetworkLinkRow is one assignment-ready link: base network attributes joined
// with availability, volume-delay parameters, and optional true-shape
// geometry. LinkID is unique within a scenario's table.
type NetworkLinkRow struct {
	LinkID        int
	FromNodeID    int
	ToNodeID      int
	Directed      int
	Length        float64
	FacilityType  string
	Capacity      float64 // effective capacity: per-lane capacity x lanes x availability
	FreeSpeed     float64
	Lanes         int
	AllowedUses   string
	Toll          float64
	TravelTime    float64 // taken from the network file; may include user-defined wait times
	Alpha         float64 // volume-delay parameter
	Beta          float64 // volume-delay parameter
	LinkAvailable float64
	WKT           string // optional true-shape geometry, cosmetic only
}

// NetworkLinkColumns is the fixed column order of the emitted network CSV.
// The relational projection and the assignment engine both depend on it.
var NetworkLinkColumns = []string{
	"link_id", "from_node_id", "to_node_id", "directed", "length",
	"facility_type", "capacity", "free_speed", "lanes", "allowed_uses",
	"travel_time", "toll", "alpha", "beta", "link_available", "wkt",
}

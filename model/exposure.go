// model/exposure.go
package model

// FullMitigation is the sentinel exposure reduction denoting a link whose
// hazard exposure is completely mitigated by its resilience project. It is
// never subtracted numerically; the availability engine forces such links to
// fully available instead.
const FullMitigation = 99999.0

// ExposureRecord is one link's hazard exposure, loaded once per hazard event.
type ExposureRecord struct {
	LinkID   int
	A, B     int // endpoint node ids
	Exposure float64
}

// ProjectMitigation maps one (resilience project, link) pair to the exposure
// reduction the project buys on that link. Pairs absent from the table imply
// zero mitigation; ExposureReduction == FullMitigation means fully mitigated.
type ProjectMitigation struct {
	ProjectID         string
	LinkID            int
	ExposureReduction float64
}

// core/policy.go
package core

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Policy maps a link's residual exposure to an availability fraction.
// Exactly one policy is constructed per scenario run; the closed set of
// implementations below keeps two policies from ever firing on the same
// link.
type Policy interface {
	Name() string
	Availability(residual float64) float64
}

// NewPolicy builds the configured availability policy. Configuration
// problems (unknown policy, unknown unit, bad breakpoint rows) surface here,
// before any per-link work starts.
func NewPolicy(cfg *RunConfig) (Policy, error) {
	switch cfg.LinkAvailabilityApproach {
	case PolicyBinary:
		return binaryPolicy{}, nil
	case PolicyDepthDamage:
		return newDepthDamagePolicy(cfg.ExposureUnit)
	case PolicyManual:
		return newManualPolicy(cfg.LinkAvailabilityCSV)
	case PolicyBeta:
		return newBetaPolicy(cfg)
	default:
		return nil, fmt.Errorf("link_availability_approach %q is not recognized: %w",
			cfg.LinkAvailabilityApproach, ErrInvalidConfig)
	}
}

// binaryPolicy: any residual exposure closes the link outright.
type binaryPolicy struct{}

func (binaryPolicy) Name() string { return PolicyBinary }

func (binaryPolicy) Availability(residual float64) float64 {
	if residual > 0 {
		return 0
	}
	return 1
}

// depthDamagePolicy follows the Pregnolato et al. depth-damage relationship:
// the maximum safe vehicle speed reaches zero at roughly 300 millimeters of
// standing water, with a linear decay between 0 and 300 mm. Residual
// exposure is unit-converted to millimeters first. Only the lower bound is
// clamped; the upper side is left as computed (see DESIGN.md).
type depthDamagePolicy struct {
	mmPerUnit float64
}

const depthDamageCutoffMM = 300.0

func newDepthDamagePolicy(unit string) (Policy, error) {
	switch strings.ToLower(unit) {
	case "feet", "ft", "foot":
		return depthDamagePolicy{mmPerUnit: 304.8}, nil
	case "yards", "yard":
		return depthDamagePolicy{mmPerUnit: 914.4}, nil
	case "meters", "m":
		return depthDamagePolicy{mmPerUnit: 1000}, nil
	default:
		return nil, fmt.Errorf("exposure_unit %q is not recognized: %w", unit, ErrInvalidConfig)
	}
}

func (depthDamagePolicy) Name() string { return PolicyDepthDamage }

func (p depthDamagePolicy) Availability(residual float64) float64 {
	avail := 1 - residual*p.mmPerUnit/depthDamageCutoffMM
	if avail < 0 {
		return 0
	}
	return avail
}

// manualPolicy matches residual exposure against user-supplied
// [min, max) ranges in file order; the last matching row wins, and residual
// exposure outside every range leaves the link fully available.
type manualPolicy struct {
	breakpoints []breakpoint
}

type breakpoint struct {
	min, max  float64
	available float64
}

func newManualPolicy(path string) (Policy, error) {
	if path == "" {
		return nil, fmt.Errorf("manual policy requires link_availability_csv: %w", ErrInvalidConfig)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("link availability breakpoints %s: %w", path, ErrMissingArtifact)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("link availability breakpoints %s: %v: %w", path, err, ErrInvalidConfig)
	}

	var bps []breakpoint
	for i, rec := range records {
		if i == 0 {
			continue // header row
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("link availability breakpoints %s row %d: want min,max,availability: %w",
				path, i+1, ErrInvalidConfig)
		}
		bp := breakpoint{}
		var errs [3]error
		bp.min, errs[0] = strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		bp.max, errs[1] = strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		bp.available, errs[2] = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		for _, e := range errs {
			if e != nil {
				return nil, fmt.Errorf("link availability breakpoints %s row %d: %v: %w",
					path, i+1, e, ErrInvalidConfig)
			}
		}
		bps = append(bps, bp)
	}
	return manualPolicy{breakpoints: bps}, nil
}

func (manualPolicy) Name() string { return PolicyManual }

func (p manualPolicy) Availability(residual float64) float64 {
	avail := 1.0 // default when no range matches
	for _, bp := range p.breakpoints {
		if residual >= bp.min && residual < bp.max {
			avail = bp.available
		}
	}
	return avail
}

// betaPolicy maps residual exposure through the CDF of a beta distribution
// stretched over [lower, upper]. The lower-cumulative direction opens links
// as exposure grows; the upper-cumulative direction closes them. Outside the
// support the policy pins availability to the direction's boundary values.
type betaPolicy struct {
	dist            distuv.Beta
	lower, upper    float64
	upperCumulative bool
}

func newBetaPolicy(cfg *RunConfig) (Policy, error) {
	if cfg.Alpha <= 0 || cfg.Beta <= 0 {
		return nil, fmt.Errorf("beta policy requires positive alpha and beta shape parameters: %w", ErrInvalidConfig)
	}
	if cfg.UpperBound <= cfg.LowerBound {
		return nil, fmt.Errorf("beta policy requires upper_bound > lower_bound: %w", ErrInvalidConfig)
	}
	var upperCumulative bool
	switch cfg.BetaMethod {
	case "lower cumulative":
		upperCumulative = false
	case "upper cumulative":
		upperCumulative = true
	default:
		return nil, fmt.Errorf("beta_method %q must be %q or %q: %w",
			cfg.BetaMethod, "lower cumulative", "upper cumulative", ErrInvalidConfig)
	}
	return betaPolicy{
		dist:            distuv.Beta{Alpha: cfg.Alpha, Beta: cfg.Beta},
		lower:           cfg.LowerBound,
		upper:           cfg.UpperBound,
		upperCumulative: upperCumulative,
	}, nil
}

func (betaPolicy) Name() string { return PolicyBeta }

func (p betaPolicy) Availability(residual float64) float64 {
	if residual < p.lower {
		if p.upperCumulative {
			return 1
		}
		return 0
	}
	if residual > p.upper {
		if p.upperCumulative {
			return 0
		}
		return 1
	}
	cdf := p.dist.CDF((residual - p.lower) / (p.upper - p.lower))
	if p.upperCumulative {
		return 1 - cdf
	}
	return cdf
}

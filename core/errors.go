// core/errors.go
package core

import "errors"

// Error categories the outer sweep driver can branch on with errors.Is.
// Everything else the pipeline reports is a warning, logged and counted but
// never fatal.
var (
	// ErrMissingArtifact marks a required upstream file or directory that
	// could not be found: the master template, a demand matrix, an input
	// table, or the expected output of a prior step.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrJoinIntegrity marks the one fatal join outcome: the availability
	// join onto the network table produced zero matches, meaning the join
	// key space is wrong.
	ErrJoinIntegrity = errors.New("table join produced no matches")

	// ErrInvalidConfig marks an unrecognized policy name, unit string, or
	// similar configuration problem, raised before any per-link work.
	ErrInvalidConfig = errors.New("invalid configuration")
)

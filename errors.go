package seisclust

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when clustering fewer than two
	// templates.
	ErrInsufficientData = errors.New("insufficient number of templates to cluster")

	// ErrCorrelationNotRun is returned by the re-threshold path before any
	// correlation clustering run.
	ErrCorrelationNotRun = errors.New("correlation clustering has not been run")

	// ErrNoDistanceMatrix is returned when the re-threshold path finds no
	// captured distance matrix.
	ErrNoDistanceMatrix = errors.New("distance matrix not populated")
)

// ErrDuplicateName indicates a name collision on add without rename
// permission.
type ErrDuplicateName struct {
	Name string
}

func (e *ErrDuplicateName) Error() string {
	return fmt.Sprintf("duplicate template name %q", e.Name)
}

// ErrUnsupportedMethod indicates an unknown clustering method name.
type ErrUnsupportedMethod struct {
	Method string
}

func (e *ErrUnsupportedMethod) Error() string {
	return fmt.Sprintf("clustering method %q not supported", e.Method)
}

// ErrUnknownName indicates a subset request for a name absent from the
// membership table.
type ErrUnknownName struct {
	Name string
}

func (e *ErrUnknownName) Error() string {
	return fmt.Sprintf("no template named %q in this tribe", e.Name)
}

// ErrInvalidThreshold indicates a regroup threshold outside (0, 1].
type ErrInvalidThreshold struct {
	Threshold float64
}

func (e *ErrInvalidThreshold) Error() string {
	return fmt.Sprintf("correlation threshold %v must be in (0, 1]", e.Threshold)
}

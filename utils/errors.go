package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of the solver pipeline
type ErrorKind uint8

const (
	ConfigurationError ErrorKind = iota
	GeometryError
	StencilError
	LinearSolveError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case GeometryError:
		return "GeometryError"
	case StencilError:
		return "StencilError"
	case LinearSolveError:
		return "LinearSolveError"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Kind sentinels. Every *SolveError matches exactly one of these through
// errors.Is.
var (
	ErrConfiguration = errors.New("gfd: invalid configuration")
	ErrGeometry      = errors.New("gfd: invalid geometry")
	ErrStencil       = errors.New("gfd: degenerate stencil")
	ErrLinearSolve   = errors.New("gfd: linear solve failed")
)

// Specific causes
var (
	ErrInsufficientNeighbors = errors.New("insufficient neighbors")
	ErrDuplicateNode         = errors.New("duplicate node coordinates")
	ErrBadTriangle           = errors.New("triangle references unknown node")
	ErrDegenerateStencil     = errors.New("local least-squares system rank deficient")
	ErrSingularSystem        = errors.New("global system is singular")
	ErrOutOfRange            = errors.New("parameter out of range")
)

// NoNode marks a SolveError that is not tied to a particular node
const NoNode = -1

// SolveError carries the kind of failure, the offending node or parameter
// when there is one, and the underlying cause.
type SolveError struct {
	Kind  ErrorKind
	Node  int    // NoNode when not node specific
	Param string // Empty when not parameter specific
	Err   error
}

func (e *SolveError) Error() string {
	msg := e.Kind.String()
	if e.Param != "" {
		msg += fmt.Sprintf(" [%s]", e.Param)
	}
	if e.Node != NoNode {
		msg += fmt.Sprintf(" at node %d", e.Node)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the specific cause.
func (e *SolveError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case GeometryError:
		return ErrGeometry
	case StencilError:
		return ErrStencil
	case LinearSolveError:
		return ErrLinearSolve
	}
	return ErrConfiguration
}

// NewConfigError reports an invalid configuration parameter
func NewConfigError(param string, format string, args ...interface{}) *SolveError {
	return &SolveError{
		Kind:  ConfigurationError,
		Node:  NoNode,
		Param: param,
		Err:   fmt.Errorf("%w: "+format, append([]interface{}{ErrOutOfRange}, args...)...),
	}
}

// NewNodeError reports a failure located at a single node
func NewNodeError(kind ErrorKind, node int, cause error) *SolveError {
	return &SolveError{Kind: kind, Node: node, Err: cause}
}

// NewSolveError reports a failure not tied to a node or parameter
func NewSolveError(kind ErrorKind, cause error) *SolveError {
	return &SolveError{Kind: kind, Node: NoNode, Err: cause}
}

// KindOf returns the ErrorKind of err if it wraps a *SolveError
func KindOf(err error) (ErrorKind, bool) {
	var se *SolveError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

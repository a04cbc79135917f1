package node

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleArity is returned when an output arity does not
	// match the input arity it is connected to.
	ErrIncompatibleArity = errors.New("node: incompatible arity")

	// ErrCycle is returned when a connection would close a loop.
	ErrCycle = errors.New("node: connection would create a cycle")

	// ErrNoSource is returned by Visit when the chain does not start at a Source.
	ErrNoSource = errors.New("node: chain has no source")

	// ErrUnexpectedToken is returned by a Transform that cannot handle the
	// token it received.
	ErrUnexpectedToken = errors.New("node: unexpected token")
)

// ArityError describes a rejected connection.
type ArityError struct {
	From    string
	To      string
	Outputs int
	Inputs  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("node: cannot connect %s (outputs=%d) to %s (inputs=%d)",
		e.From, e.Outputs, e.To, e.Inputs)
}

// Unwrap lets errors.Is match ErrIncompatibleArity.
func (e *ArityError) Unwrap() error { return ErrIncompatibleArity }

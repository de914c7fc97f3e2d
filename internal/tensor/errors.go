package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Common errors.
var (
	ErrInvalidType         = errors.New("invalid type")
	ErrMalformedTypeSpec   = errors.New("malformed type spec")
	ErrUnsupportedCellType = errors.New("unsupported cell type")
	ErrCellCount           = errors.New("cell count does not match type")
	ErrStaleHandle         = errors.New("stale value handle")
)

// TypeError describes operand types that are structurally incompatible for an operation.
type TypeError struct {
	Op      string     // Operation (e.g., "join", "reduce")
	Lhs     ValueType  // Primary operand type
	Rhs     *ValueType // Secondary operand type (join only)
	Details string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Rhs != nil {
		return fmt.Sprintf("%s: %s and %s: %s", e.Op, e.Lhs, *e.Rhs, e.Details)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Lhs, e.Details)
}

// Unwrap makes every TypeError match ErrInvalidType.
func (e *TypeError) Unwrap() error {
	return ErrInvalidType
}

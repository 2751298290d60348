package results

import (
	"errors"
	"fmt"
)

var (
	ErrDataFetch = errors.New("results fetch failed")
	ErrParse     = errors.New("results document could not be parsed")
	ErrShape     = errors.New("results document has unexpected shape")
)

// ShapeError pins a shape violation to a region offset and group slot.
// Slot is -1 when the problem is with the region itself.
type ShapeError struct {
	Region int
	Slot   int
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("region %d: %s", e.Region, e.Reason)
	}
	return fmt.Sprintf("region %d slot %d: %s", e.Region, e.Slot, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

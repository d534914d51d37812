package cycle

import (
	"errors"
	"fmt"
)

// ErrUnknownCycle is returned when a cycle has not been loaded into the store.
var ErrUnknownCycle = errors.New("cycle: unknown cycle")

// DuplicateMusicianError is returned when a musician is added twice to the same cycle.
type DuplicateMusicianError struct {
	Key        Key
	MusicianID string
}

// Error implements the error interface.
func (e *DuplicateMusicianError) Error() string {
	return fmt.Sprintf("cycle: musician %s already present in cycle %d of church %s", e.MusicianID, e.Key.Number, e.Key.ChurchID)
}

// IndexOutOfRangeError is returned when a position does not exist in a cycle.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("cycle: index %d out of range [0,%d)", e.Index, e.Len)
}

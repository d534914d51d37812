package rotation

import "sort"

// Cursor is the immutable rotation state: for every cycle number, the index of
// the next entry to draw. The zero value starts every cycle at position 0.
type Cursor struct {
	positions map[int]int
}

// NewCursor returns a cursor with the given positions.
func NewCursor(positions map[int]int) Cursor {
	c := Cursor{}
	for number, index := range positions {
		c = c.With(number, index)
	}
	return c
}

// Position returns the next index for cycle number.
func (c Cursor) Position(number int) int {
	return c.positions[number]
}

// With returns a copy of c with cycle number pointing at index.
func (c Cursor) With(number, index int) Cursor {
	next := make(map[int]int, len(c.positions)+1)
	for k, v := range c.positions {
		next[k] = v
	}
	next[number] = index
	return Cursor{positions: next}
}

// Pin returns a copy of c whose cycle starts at musicianID. The boolean is false
// when the musician is not part of the cycle, in which case c is returned unchanged.
func (c Cursor) Pin(cycle Cycle, musicianID string) (Cursor, bool) {
	idx := cycle.IndexOf(musicianID)
	if idx < 0 {
		return c, false
	}
	return c.With(cycle.Number, idx), true
}

// Positions returns a copy of the cursor state.
func (c Cursor) Positions() map[int]int {
	out := make(map[int]int, len(c.positions))
	for k, v := range c.positions {
		out[k] = v
	}
	return out
}

// Cycles lists the cycle numbers that carry an explicit position.
func (c Cursor) Cycles() []int {
	numbers := make([]int, 0, len(c.positions))
	for k := range c.positions {
		numbers = append(numbers, k)
	}
	sort.Ints(numbers)
	return numbers
}

// Equal reports whether both cursors point at the same positions. Missing
// entries compare as 0.
func (c Cursor) Equal(other Cursor) bool {
	for k, v := range c.positions {
		if other.positions[k] != v {
			return false
		}
	}
	for k, v := range other.positions {
		if c.positions[k] != v {
			return false
		}
	}
	return true
}

package cycle

// MoveItem returns a copy of list with the element at from moved to the
// insertion point to. The insertion point ranges over 0..len(list) and refers
// to the gap before the element currently at that index, so moving forward
// lands one slot earlier once the element has been removed.
func MoveItem(list []string, from, to int) ([]string, error) {
	n := len(list)
	if from < 0 || from >= n {
		return nil, &IndexOutOfRangeError{Index: from, Len: n}
	}
	if to < 0 || to > n {
		return nil, &IndexOutOfRangeError{Index: to, Len: n + 1}
	}

	moved := list[from]
	out := make([]string, 0, n)
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)

	if from < to {
		to--
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out, nil
}

// Items converts an ordered list of musician IDs into dense cycle items.
func Items(musicianIDs []string) []Item {
	items := make([]Item, len(musicianIDs))
	for i, id := range musicianIDs {
		items[i] = Item{MusicianID: id, Position: i}
	}
	return items
}

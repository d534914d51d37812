package scheduler

import "strings"

// CompareIDs orders identifiers naturally: runs of digits compare by numeric
// value, so "svc-2" sorts before "svc-10" and seed files may use plain
// numbers. Everything else compares bytewise. Identifiers that differ only in
// leading zeros fall back to a bytewise comparison to keep the order total.
func CompareIDs(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ai, bj := digitsEnd(a, i), digitsEnd(b, j)
			na := strings.TrimLeft(a[i:ai], "0")
			nb := strings.TrimLeft(b[j:bj], "0")
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			i, j = ai, bj
			continue
		}
		if a[i] != b[j] {
			if a[i] < b[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digitsEnd(s string, start int) int {
	for start < len(s) && isDigit(s[start]) {
		start++
	}
	return start
}

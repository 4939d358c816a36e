package periods

import "slices"

// Set is an immutable, chronologically sorted collection of distinct periods.
type Set struct {
	items []Period
}

// NewSet builds a Set from periods in any order, dropping duplicates.
func NewSet(periods ...Period) Set {
	items := append([]Period(nil), periods...)
	slices.SortFunc(items, Period.Compare)
	return Set{items: slices.Compact(items)}
}

// Len returns the number of periods in the set.
func (s Set) Len() int { return len(s.items) }

// Contains reports whether p is in the set.
func (s Set) Contains(p Period) bool {
	_, found := slices.BinarySearchFunc(s.items, p, Period.Compare)
	return found
}

// Periods returns the periods in chronological order.
func (s Set) Periods() []Period {
	return append([]Period(nil), s.items...)
}

// Strings returns the canonical identifiers in chronological order.
func (s Set) Strings() []string {
	out := make([]string, len(s.items))
	for i, p := range s.items {
		out[i] = p.String()
	}
	return out
}

// Equal reports whether both sets hold the same periods.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.items, other.items)
}

// Latest returns the most recent period, or false when the set is empty.
func (s Set) Latest() (Period, bool) {
	if len(s.items) == 0 {
		return Period{}, false
	}
	return s.items[len(s.items)-1], true
}

// Missing returns the candidates not present in existing, preserving
// candidate order and dropping repeated candidates.
func Missing(candidates []Period, existing Set) []Period {
	seen := make(map[Period]struct{}, len(candidates))
	var out []Period
	for _, p := range candidates {
		if existing.Contains(p) {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

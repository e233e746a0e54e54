package sweepq

import (
	"cmp"
	"slices"
)

type QueueGroup struct {
	Base string
	Keys []string
}

// GroupQueueKeys keeps the queue keys among names and groups them by
// QueueBase. Groups are returned in the order their base was first seen.
func GroupQueueKeys(names []string) []QueueGroup {
	index := make(map[string]int)
	var groups []QueueGroup

	for _, name := range names {
		if !IsQueueKey(name) {
			continue
		}
		base := QueueBase(name)
		i, ok := index[base]
		if !ok {
			i = len(groups)
			index[base] = i
			groups = append(groups, QueueGroup{Base: base})
		}
		groups[i].Keys = append(groups[i].Keys, name)
	}
	return groups
}

// CompareGroupKeys orders the members of a queue group by preference to be
// kept. Keys without a timestamp come first; between two timestamped keys
// the newer one comes first; anything left is ordered by name.
func CompareGroupKeys(a, b string) int {
	ta, aHas := ExtractTimestamp(a)
	tb, bHas := ExtractTimestamp(b)

	if aHas && !bHas {
		return 1
	}
	if !aHas && bHas {
		return -1
	}
	if aHas && bHas {
		if c := cmp.Compare(tb, ta); c != 0 {
			return c
		}
	}
	return cmp.Compare(a, b)
}

// SortGroup returns the group members in keep-preference order; the first
// element is the canonical key.
func SortGroup(keys []string) []string {
	out := slices.Clone(keys)
	slices.SortFunc(out, CompareGroupKeys)
	return out
}

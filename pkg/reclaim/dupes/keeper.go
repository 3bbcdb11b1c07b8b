package dupes

import (
	"sort"
	"strings"

	"github.com/reclaimtool/reclaim/pkg/reclaim/classify"
)

// sortMembers orders a group so the member at index zero is the keeper.
// The comparison is layered; each rule only fires when every rule above
// it ties, and the final rules guarantee absolute determinism:
//
//  1. a member outside temp and cache directories beats one inside
//  2. the longer path wins, favoring the more deliberately filed copy
//  3. the more recently modified copy wins
//  4. the lexicographically smaller path wins, except that paths equal
//     under case folding fall back to discovery order
func sortMembers(members []Member) {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]

		aTemp := classify.InTempLocation(a.Path)
		bTemp := classify.InTempLocation(b.Path)
		if aTemp != bTemp {
			return !aTemp
		}

		if len(a.Path) != len(b.Path) {
			return len(a.Path) > len(b.Path)
		}

		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}

		if strings.EqualFold(a.Path, b.Path) {
			return a.Order < b.Order
		}
		return a.Path < b.Path
	})
}

package rates

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance keeps hints for typos only.
const maxSuggestDistance = 2

// Closest returns the known code nearest to code by edit distance, or "" when
// nothing is close enough. Ties resolve alphabetically.
func Closest(code string, known []string) string {
	code = strings.ToUpper(code)
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)

	best, bestDist := "", maxSuggestDistance+1
	for _, k := range sorted {
		if d := levenshtein.ComputeDistance(code, strings.ToUpper(k)); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

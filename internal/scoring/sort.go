package scoring

import "sort"

// Result pairs a scored candidate's entity name with its total and
// breakdown, the unit the engine sorts, caps, and persists.
type Result struct {
	EntityName string
	HubScore   int
	Offset     int
	Total      float64
	Breakdown  Breakdown
}

// Sort orders results by the §4.3 tie-breaking rule: total score
// descending, then higher hub score, then earlier first-occurrence offset,
// then lexicographic name.
func Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.HubScore != b.HubScore {
			return a.HubScore > b.HubScore
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		return a.EntityName < b.EntityName
	})
}

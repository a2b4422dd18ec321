package dataset

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

type scored struct {
	id    string
	score float64
}

// Suggest ranks rollable table IDs that look like query, best first. It backs
// "did you mean" hints when a lookup misses.
func (ds *Dataset) Suggest(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	var results []scored
	for _, table := range ds.Tables() {
		id := strings.ToLower(table.ID)
		tail := shortID(id)
		score := 0.0
		switch {
		case id == query || tail == query:
			score = 1.0
		case strings.HasSuffix(id, query) && len(query) >= 3:
			score = 0.9
		case strings.Contains(id, query) && len(query) >= 3:
			score = 0.8
		default:
			dist := levenshtein.ComputeDistance(query, tail)
			if dist > levenshteinLimit(len(tail)) {
				continue
			}
			score = 0.72 - (0.08 * float64(dist))
		}
		results = append(results, scored{id: table.ID, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].id < results[j].id
		}
		return results[i].score > results[j].score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]string, 0, len(results))
	for _, result := range results {
		out = append(out, result.id)
	}
	return out
}

// shortID drops the "<ruleset>/oracles/" prefix.
func shortID(id string) string {
	if idx := strings.Index(id, "/oracles/"); idx != -1 {
		return id[idx+len("/oracles/"):]
	}
	return id
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	case length <= 16:
		return 3
	default:
		return 4
	}
}

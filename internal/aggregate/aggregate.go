// Package aggregate implements the pure, total event-counting function
// at the heart of a job's processing step (spec.md §4.2).
package aggregate

import (
	"sort"
	"strings"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
)

// Count produces one (event type, count) pair per distinct type seen in
// events, grouped case-insensitively under ASCII folding. The
// representative spelling is the first one observed for each group.
// Output is sorted by folded type ascending, ties broken by
// first-observed order. Count never fails and performs no I/O.
func Count(events []domain.RawEvent) []domain.ResultRow {
	type group struct {
		repr  string
		count int
		first int
	}

	groups := make(map[string]*group, len(events))
	order := make([]string, 0, len(events))

	for i, e := range events {
		key := FoldASCII(e.Type)
		g, ok := groups[key]
		if !ok {
			g = &group{repr: e.Type, first: i}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i] < order[j]
	})

	out := make([]domain.ResultRow, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, domain.ResultRow{EventType: g.repr, Count: g.count})
	}
	return out
}

// FoldASCII lowercases the ASCII range only, matching the spec's
// "locale-independent ASCII fold" requirement exactly (strings.ToLower
// would fold non-ASCII runes too). Exported so readers that need the
// same ordering key the aggregator used (e.g. the store's result
// listing) don't have to re-derive it or rely on DB collation.
func FoldASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

package aggregate

import (
	"testing"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
)

func events(types ...string) []domain.RawEvent {
	out := make([]domain.RawEvent, len(types))
	for i, t := range types {
		out[i] = domain.RawEvent{Type: t}
	}
	return out
}

func TestCount_GroupsCaseInsensitive(t *testing.T) {
	got := Count(events("a", "B", "a", "b", "A"))

	want := []domain.ResultRow{
		{EventType: "a", Count: 3},
		{EventType: "B", Count: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCount_FirstObservedSpellingWins(t *testing.T) {
	got := Count(events("Signup", "SIGNUP", "signup"))
	if len(got) != 1 || got[0].EventType != "Signup" || got[0].Count != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestCount_SortedAscendingByFoldedKey(t *testing.T) {
	got := Count(events("z", "a", "m"))
	if len(got) != 3 || got[0].EventType != "a" || got[1].EventType != "m" || got[2].EventType != "z" {
		t.Fatalf("got %+v", got)
	}
}

func TestCount_Empty(t *testing.T) {
	got := Count(nil)
	if len(got) != 0 {
		t.Fatalf("got %+v, want empty", got)
	}
}

func TestCount_ExhaustiveAndSumsToLen(t *testing.T) {
	input := events("a", "b", "a", "c", "B", "a")
	got := Count(input)

	var sum int
	seen := map[string]bool{}
	for _, r := range got {
		sum += r.Count
		if r.Count < 1 {
			t.Fatalf("count must be >= 1, got %+v", r)
		}
		seen[FoldASCII(r.EventType)] = true
	}
	if sum != len(input) {
		t.Fatalf("sum of counts = %d, want %d", sum, len(input))
	}
	for _, e := range input {
		if !seen[FoldASCII(e.Type)] {
			t.Fatalf("missing group for %q", e.Type)
		}
	}
}

func TestCount_NonASCIIIsNotFolded(t *testing.T) {
	// ASCII-only fold: 'İ' (Turkish dotted capital I) must NOT be
	// treated as equal to 'i' the way strings.ToLower (locale/Unicode
	// aware in some runtimes) might.
	got := Count(events("İ", "i"))
	if len(got) != 2 {
		t.Fatalf("expected non-ASCII rune to stay distinct from ascii fold, got %+v", got)
	}
}

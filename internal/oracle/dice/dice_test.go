package dice

import (
	"math/rand"
	"testing"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
)

func TestResolveSingletonBoundaries(t *testing.T) {
	rows := []dataset.Row{
		{Min: 3, Text: "three"},
		{Min: 5, Max: 5, Text: "five"},
	}
	tcs := []struct {
		roll int
		want string
		ok   bool
	}{
		{roll: 2, ok: false},
		{roll: 3, want: "three", ok: true},
		{roll: 4, ok: false},
		{roll: 5, want: "five", ok: true},
		{roll: 6, ok: false},
	}
	for _, tc := range tcs {
		row, ok := Resolve(tc.roll, rows)
		if ok != tc.ok {
			t.Fatalf("Resolve(%d) ok = %v, want %v", tc.roll, ok, tc.ok)
		}
		if ok && row.Text != tc.want {
			t.Fatalf("Resolve(%d) = %q, want %q", tc.roll, row.Text, tc.want)
		}
	}
}

func TestResolveRangesAreInclusive(t *testing.T) {
	rows := []dataset.Row{
		{Min: 1, Max: 10, Text: "low"},
		{Min: 11, Max: 100, Text: "high"},
	}
	for roll, want := range map[int]string{1: "low", 10: "low", 11: "high", 100: "high"} {
		row, ok := Resolve(roll, rows)
		if !ok || row.Text != want {
			t.Fatalf("Resolve(%d) = (%q, %v), want %q", roll, row.Text, ok, want)
		}
	}
	if _, ok := Resolve(101, rows); ok {
		t.Fatal("expected no match above the last range")
	}
	if _, ok := Resolve(0, rows); ok {
		t.Fatal("expected no match below the first range")
	}
}

func TestResolveFirstMatchWinsOnOverlap(t *testing.T) {
	rows := []dataset.Row{
		{Min: 50, Max: 60, Text: "second declared range"},
		{Min: 1, Max: 55, Text: "first numeric range"},
	}
	row, ok := Resolve(52, rows)
	if !ok || row.Text != "second declared range" {
		t.Fatalf("Resolve(52) = %q, want the first declared row", row.Text)
	}
}

func TestResolveWithGap(t *testing.T) {
	rows := []dataset.Row{{Min: 1, Max: 4}, {Min: 7, Max: 10}}
	if _, ok := Resolve(5, rows); ok {
		t.Fatal("expected gap to resolve to nothing")
	}
}

func TestMaxRoll(t *testing.T) {
	tcs := []struct {
		name string
		rows []dataset.Row
		want int
	}{
		{name: "empty", rows: nil, want: 100},
		{name: "d6", rows: []dataset.Row{{Min: 1, Max: 2}, {Min: 3, Max: 6}}, want: 6},
		{name: "singletons", rows: []dataset.Row{{Min: 1}, {Min: 2}, {Min: 3}}, want: 3},
		{name: "d100", rows: []dataset.Row{{Min: 1, Max: 50}, {Min: 51, Max: 100}}, want: 100},
		{name: "above 100 clamps", rows: []dataset.Row{{Min: 1, Max: 66}, {Min: 67, Max: 300}}, want: 100},
		{name: "unsorted", rows: []dataset.Row{{Min: 5, Max: 8}, {Min: 1, Max: 4}}, want: 8},
		{name: "zero bounds", rows: []dataset.Row{{Min: 0}}, want: 1},
	}
	for _, tc := range tcs {
		if got := MaxRoll(tc.rows); got != tc.want {
			t.Fatalf("%s: MaxRoll = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestRollStaysWithinSides(t *testing.T) {
	roller := NewRoller(7)
	for _, sides := range []int{1, 6, 66, 100} {
		for i := 0; i < 500; i++ {
			got := Roll(roller, sides)
			if got < 1 || got > sides {
				t.Fatalf("Roll(d%d) = %d, want within [1, %d]", sides, got, sides)
			}
		}
	}
	if got := Roll(roller, 0); got != 1 {
		t.Fatalf("Roll(d0) = %d, want 1", got)
	}
}

func TestNewRollerIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	want := []int{rng.Intn(100) + 1, rng.Intn(6) + 1}

	roller := NewRoller(42)
	got := []int{Roll(roller, 100), Roll(roller, 6)}
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("rolls = %v, want %v", got, want)
	}
}

func TestSequenceReplaysAndClamps(t *testing.T) {
	seq := &Sequence{Values: []int{3, 12}}
	if got := Roll(seq, 6); got != 3 {
		t.Fatalf("first roll = %d, want 3", got)
	}
	if got := Roll(seq, 6); got != 6 {
		t.Fatalf("second roll = %d, want clamp to 6", got)
	}
	if got := Roll(seq, 6); got != 3 {
		t.Fatalf("third roll = %d, want cycle back to 3", got)
	}
}

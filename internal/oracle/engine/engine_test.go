package engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/dice"
	"github.com/louisbranch/oracles/internal/oracle/rulesets"
)

func wide(text string, refs ...string) []dataset.Row {
	return []dataset.Row{{Min: 1, Max: 100, Text: text, Oracles: refs}}
}

func table(id string, name string, rows []dataset.Row) *dataset.Table {
	return &dataset.Table{ID: id, Name: name, Rows: rows}
}

func mustDataset(t *testing.T, roots ...dataset.Node) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(roots...)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("r%d", n), nil
	}
}

func newEngine(t *testing.T, ds *dataset.Dataset, values []int, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithRoller(&dice.Sequence{Values: values}),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	return New(ds, append(base, opts...)...)
}

func childIDs(entry LogEntry) []string {
	var ids []string
	for _, child := range entry.Children {
		ids = append(ids, child.OracleID)
	}
	return ids
}

func TestRollCascadesBreadthFirstAndFlat(t *testing.T) {
	a := table("t/a", "A", wide("a", "t/b", "t/c"))
	b := table("t/b", "B", wide("see [D](id:t/d)"))
	c := table("t/c", "C", wide("c"))
	d := table("t/d", "D", wide("d"))
	e := newEngine(t, mustDataset(t, a, b, c, d), []int{50})

	entry, ok := e.Roll(context.Background(), "", a, RollOptions{})
	if !ok {
		t.Fatal("expected roll")
	}
	if diff := cmp.Diff([]string{"t/b", "t/c", "t/d"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	for _, child := range entry.Children {
		if len(child.Children) != 0 {
			t.Fatalf("child %s has nested children", child.OracleID)
		}
	}
	if entry.Roll != 50 || entry.Result != "a" || entry.OracleName != "A" {
		t.Fatalf("entry = %+v, want roll 50 result a name A", entry.RollRecord)
	}
	if diff := cmp.Diff([]string{"t/b", "t/c"}, entry.References); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestRollStopsAtCycles(t *testing.T) {
	x := table("t/x", "X", wide("x", "t/y"))
	y := table("t/y", "Y", wide("y", "t/x"))
	e := newEngine(t, mustDataset(t, x, y), []int{10})

	entry, _ := e.Roll(context.Background(), "", x, RollOptions{})
	if diff := cmp.Diff([]string{"t/y"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestRollTwiceRerollsOwnTable(t *testing.T) {
	self := table("t/self", "Self", []dataset.Row{
		{Min: 1, Max: 50, Text: "plain"},
		{Min: 51, Max: 90, Text: "other", OracleRolls: []dataset.OracleRoll{{Oracle: "t/back", Times: 1}}},
		{Min: 91, Max: 100, Text: "Roll twice", OracleRolls: []dataset.OracleRoll{{Oracle: "t/self", Times: 2}}},
	})
	back := table("t/back", "Back", []dataset.Row{
		{Min: 1, Max: 100, Text: "back", OracleRolls: []dataset.OracleRoll{{Oracle: "t/self", Times: 1}}},
	})
	e := newEngine(t, mustDataset(t, self, back), []int{95, 10, 20})

	entry, _ := e.Roll(context.Background(), "", self, RollOptions{})
	if entry.Result != "Roll twice" {
		t.Fatalf("result = %q, want Roll twice", entry.Result)
	}
	var results []string
	for _, child := range entry.Children {
		results = append(results, child.Result)
	}
	if diff := cmp.Diff([]string{"plain", "plain"}, results); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}

	e = newEngine(t, mustDataset(t, self, back), []int{60})
	entry, _ = e.Roll(context.Background(), "", self, RollOptions{})
	if diff := cmp.Diff([]string{"t/back"}, childIDs(entry)); diff != "" {
		t.Fatalf("cycle through another table mismatch (-want +got):\n%s", diff)
	}
}

func TestRollTwiceOnStarforgedFirstLook(t *testing.T) {
	ds, err := rulesets.Load(rulesets.ModeStarforged)
	if err != nil {
		t.Fatalf("load starforged: %v", err)
	}
	firstLook, ok := ds.Lookup("starforged/oracles/characters/first_look")
	if !ok {
		t.Fatal("expected first look table")
	}
	e := newEngine(t, ds, []int{95, 10, 20})

	entry, _ := e.Roll(context.Background(), "", firstLook, RollOptions{})
	var results []string
	for _, child := range entry.Children {
		results = append(results, child.Result)
	}
	if diff := cmp.Diff([]string{"Battle-scarred", "Bodyguard"}, results); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestRollTwiceIsBoundedByDepth(t *testing.T) {
	self := table("t/self", "Self", []dataset.Row{{
		Min: 1, Max: 100, Text: "Roll twice",
		OracleRolls: []dataset.OracleRoll{{Oracle: "t/self", Times: 2}},
	}})
	e := newEngine(t, mustDataset(t, self), []int{1}, WithMaxDepth(2))

	entry, _ := e.Roll(context.Background(), "", self, RollOptions{})
	if got := len(entry.Children); got != 6 {
		t.Fatalf("children = %d, want 6", got)
	}
}

func TestRollShowsSecondResultColumn(t *testing.T) {
	pair := table("t/pair", "Pair", []dataset.Row{{Min: 1, Max: 100, Text: "Ally", Text2: "Rival"}})
	e := newEngine(t, mustDataset(t, pair), []int{40})

	entry, _ := e.Roll(context.Background(), "", pair, RollOptions{})
	if entry.Result != "Ally / Rival" || entry.OriginalResult != "Ally / Rival" {
		t.Fatalf("entry = %+v, want both columns", entry.RollRecord)
	}
}

func TestRollTruncatesDeepChains(t *testing.T) {
	var roots []dataset.Node
	for i := 1; i <= 10; i++ {
		roots = append(roots, table(fmt.Sprintf("t/c%d", i), fmt.Sprintf("C%d", i), wide("step", fmt.Sprintf("t/c%d", i+1))))
	}
	var buf bytes.Buffer
	e := newEngine(t, mustDataset(t, roots...), []int{1}, WithMaxDepth(3), WithLogger(log.New(&buf, "", 0)))

	entry, _ := e.Roll(context.Background(), "", roots[0], RollOptions{})
	if diff := cmp.Diff([]string{"t/c2", "t/c3", "t/c4"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "truncating") {
		t.Fatalf("log = %q, want truncation line", buf.String())
	}
}

func TestRollSkipsMissingReferences(t *testing.T) {
	a := table("t/a", "A", wide("a", "t/missing", "t/b"))
	b := table("t/b", "B", wide("b"))
	e := newEngine(t, mustDataset(t, a, b), []int{1})

	entry, _ := e.Roll(context.Background(), "", a, RollOptions{})
	if diff := cmp.Diff([]string{"t/b"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestRollRepeatsOracleRolls(t *testing.T) {
	a := table("t/a", "A", []dataset.Row{{
		Min: 1, Max: 100, Text: "two of them",
		OracleRolls: []dataset.OracleRoll{{Oracle: "t/b", Times: 2}},
	}})
	b := table("t/b", "B", wide("b"))
	e := newEngine(t, mustDataset(t, a, b), []int{1})

	entry, _ := e.Roll(context.Background(), "", a, RollOptions{})
	if diff := cmp.Diff([]string{"t/b", "t/b"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestLogIsMostRecentFirst(t *testing.T) {
	x := table("t/x", "X", wide("x"))
	y := table("t/y", "Y", wide("y"))
	e := newEngine(t, mustDataset(t, x, y), []int{1})

	e.Roll(context.Background(), "", x, RollOptions{})
	e.Roll(context.Background(), "", y, RollOptions{})

	entries := e.Log()
	if len(entries) != 2 {
		t.Fatalf("log length = %d, want 2", len(entries))
	}
	if entries[0].OracleID != "t/y" || entries[1].OracleID != "t/x" {
		t.Fatalf("log order = [%s %s], want [t/y t/x]", entries[0].OracleID, entries[1].OracleID)
	}

	e.ClearLog()
	if got := len(e.Log()); got != 0 {
		t.Fatalf("log length after clear = %d, want 0", got)
	}
}

func TestLogReturnsCopies(t *testing.T) {
	a := table("t/a", "A", wide("a", "t/b"))
	b := table("t/b", "B", wide("b"))
	e := newEngine(t, mustDataset(t, a, b), []int{1})
	e.Roll(context.Background(), "", a, RollOptions{})

	first := e.Log()
	first[0].Children[0].Result = "changed"
	first[0].References[0] = "changed"

	second := e.Log()
	if second[0].Children[0].Result != "b" || second[0].References[0] != "t/b" {
		t.Fatalf("log entry was mutated through a snapshot: %+v", second[0])
	}
}

func regionCollection() *dataset.Collection {
	return &dataset.Collection{
		ID:   "t/mission",
		Name: "Mission",
		Children: []dataset.Child{
			{Key: "expanse", Node: table("t/mission/expanse", "Expanse", wide("far"))},
			{Key: "outlands", Node: table("t/mission/outlands", "Outlands", wide("edge"))},
			{Key: "terminus", Node: table("t/mission/terminus", "Terminus", wide("core"))},
		},
	}
}

func TestRollRedirectsRegionShards(t *testing.T) {
	mission := regionCollection()
	e := newEngine(t, mustDataset(t, mission), []int{42})

	tcs := []struct {
		name     string
		region   dataset.Region
		language string
		wantID   string
		wantName string
		result   string
	}{
		{name: "outlands", region: dataset.RegionOutlands, wantID: "t/mission/outlands", wantName: "Mission (Outlands)", result: "edge"},
		{name: "default region", wantID: "t/mission/terminus", wantName: "Mission (Terminus)", result: "core"},
		{name: "localized label", region: dataset.RegionExpanse, language: "pt-BR", wantID: "t/mission/expanse", wantName: "Mission (Vastidão)", result: "far"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := e.Roll(context.Background(), "", mission, RollOptions{Region: tc.region, Language: tc.language})
			if !ok {
				t.Fatal("expected roll")
			}
			if entry.OracleID != tc.wantID || entry.OracleName != tc.wantName || entry.Result != tc.result {
				t.Fatalf("entry = %s %q %q, want %s %q %q", entry.OracleID, entry.OracleName, entry.Result, tc.wantID, tc.wantName, tc.result)
			}
		})
	}
}

func TestReferencedShardsUseCallerRegion(t *testing.T) {
	a := table("t/a", "A", wide("a", "t/mission"))
	e := newEngine(t, mustDataset(t, a, regionCollection()), []int{1})

	entry, _ := e.Roll(context.Background(), "", a, RollOptions{Region: dataset.RegionOutlands})
	if diff := cmp.Diff([]string{"t/mission/outlands"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	if got := entry.Children[0].OracleName; got != "Mission (Outlands)" {
		t.Fatalf("child name = %q, want Mission (Outlands)", got)
	}
}

func TestRollRejectsUnrollableNodes(t *testing.T) {
	empty := table("t/empty", "Empty", nil)
	plain := &dataset.Collection{ID: "t/plain", Name: "Plain", Children: []dataset.Child{{Key: "x", Node: table("t/plain/x", "X", wide("x"))}}}
	e := newEngine(t, mustDataset(t, empty, plain), []int{1})

	if _, ok := e.Roll(context.Background(), "", empty, RollOptions{}); ok {
		t.Fatal("expected empty table to roll nothing")
	}
	if _, ok := e.Roll(context.Background(), "", plain, RollOptions{}); ok {
		t.Fatal("expected collection to roll nothing")
	}
	if _, ok := e.Roll(context.Background(), "", nil, RollOptions{}); ok {
		t.Fatal("expected nil node to roll nothing")
	}
	if got := len(e.Log()); got != 0 {
		t.Fatalf("log length = %d, want 0", got)
	}
}

func TestRollOnce(t *testing.T) {
	d6 := table("t/d6", "D6", []dataset.Row{{Min: 1, Max: 3, Text: "low"}, {Min: 4, Max: 6, Text: "high"}})
	gap := table("t/gap", "Gap", []dataset.Row{{Min: 1, Max: 3, Text: "low"}, {Min: 5, Max: 6, Text: "high"}})

	tcs := []struct {
		name   string
		table  *dataset.Table
		values []int
		roll   int
		result string
	}{
		{name: "clamped to table size", table: d6, values: []int{99}, roll: 6, result: "high"},
		{name: "low", table: d6, values: []int{2}, roll: 2, result: "low"},
		{name: "gap", table: gap, values: []int{4}, roll: 4, result: "No result found"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, mustDataset(t, tc.table), tc.values)
			record, _, ok := e.RollOnce(tc.table)
			if !ok {
				t.Fatal("expected roll")
			}
			if record.Roll != tc.roll || record.Result != tc.result {
				t.Fatalf("record = %d %q, want %d %q", record.Roll, record.Result, tc.roll, tc.result)
			}
		})
	}

	e := newEngine(t, mustDataset(t, d6), []int{1})
	if _, _, ok := e.RollOnce(table("t/none", "None", nil)); ok {
		t.Fatal("expected empty table to report false")
	}
	if _, _, ok := e.RollOnce(nil); ok {
		t.Fatal("expected nil table to report false")
	}
}

func TestRollOncePlaceholderIsLocalized(t *testing.T) {
	gap := table("t/gap", "Gap", []dataset.Row{{Min: 1, Max: 3, Text: "low"}, {Min: 5, Max: 6, Text: "high"}})
	e := newEngine(t, mustDataset(t, gap), []int{4}, WithLanguage("pt-BR"))

	record, _, _ := e.RollOnce(gap)
	if record.Result != "Nenhum resultado encontrado" {
		t.Fatalf("result = %q, want Nenhum resultado encontrado", record.Result)
	}
}

type prefixTranslator struct{}

func (prefixTranslator) Name(id string, fallback string, lang string) string {
	if lang != "xx" {
		return fallback
	}
	return "N:" + fallback
}

func (prefixTranslator) Result(id string, rowMin int, fallback string, lang string) string {
	if lang != "xx" {
		return fallback
	}
	return fmt.Sprintf("R%d:%s", rowMin, fallback)
}

func TestTranslatorKeepsOriginalResult(t *testing.T) {
	a := table("t/a", "A", []dataset.Row{{Min: 1, Max: 50, Text: "first"}, {Min: 51, Max: 100, Text: "second"}})
	e := newEngine(t, mustDataset(t, a), []int{70}, WithTranslator(prefixTranslator{}))

	entry, _ := e.Roll(context.Background(), "", a, RollOptions{Language: "xx"})
	if entry.OracleName != "N:A" || entry.Result != "R51:second" || entry.OriginalResult != "second" {
		t.Fatalf("entry = %q %q %q", entry.OracleName, entry.Result, entry.OriginalResult)
	}
	if entry.Language != "xx" {
		t.Fatalf("language = %q, want xx", entry.Language)
	}
}

func TestRollOracleAttachesOnlyToOpenEntries(t *testing.T) {
	a := table("t/a", "A", wide("a", "t/b"))
	b := table("t/b", "B", wide("b"))
	extra := table("t/extra", "Extra", wide("extra", "t/b"))
	ctx := context.Background()

	var e *Engine
	attached := false
	hook := func(parent LogEntry, child RollRecord) {
		if attached || child.OracleID != "t/b" {
			return
		}
		attached = true
		if _, ok := e.RollOracle(ctx, "", extra, parent.ID, ""); !ok {
			t.Errorf("expected roll into open entry %s", parent.ID)
		}
	}
	e = newEngine(t, mustDataset(t, a, b, extra), []int{1}, WithChildHook(hook))

	entry, _ := e.RollOracle(ctx, "", a, "", "")
	if diff := cmp.Diff([]string{"t/b", "t/extra", "t/b"}, childIDs(entry)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}

	if _, ok := e.RollOracle(ctx, "", extra, entry.ID, ""); ok {
		t.Fatal("expected frozen entry to ignore roll")
	}
	if _, ok := e.RollOracle(ctx, "", extra, "unknown", ""); ok {
		t.Fatal("expected unknown entry to ignore roll")
	}
	if got := e.Log()[0].Children; len(got) != 3 {
		t.Fatalf("frozen entry has %d children, want 3", len(got))
	}
}

func TestChildHookSeesEveryChild(t *testing.T) {
	a := table("t/a", "A", wide("a", "t/b", "t/c"))
	b := table("t/b", "B", wide("b"))
	c := table("t/c", "C", wide("c"))

	var seen []string
	var counts []int
	e := newEngine(t, mustDataset(t, a, b, c), []int{1}, WithChildHook(func(parent LogEntry, child RollRecord) {
		seen = append(seen, child.OracleID)
		counts = append(counts, len(parent.Children))
	}))
	e.Roll(context.Background(), "", a, RollOptions{})

	if diff := cmp.Diff([]string{"t/b", "t/c"}, seen); diff != "" {
		t.Fatalf("hook children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, counts); diff != "" {
		t.Fatalf("parent sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryMetadata(t *testing.T) {
	a := table("t/a", "A", wide("a"))
	e := newEngine(t, mustDataset(t, a), []int{1})

	entry, _ := e.Roll(context.Background(), "Custom", a, RollOptions{Region: dataset.RegionExpanse})
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !entry.CreatedAt.Equal(want) {
		t.Fatalf("created at = %v, want %v", entry.CreatedAt, want)
	}
	if entry.ID != "r1" || entry.OracleName != "Custom" || entry.Region != dataset.RegionExpanse {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Language != "en-US" {
		t.Fatalf("language = %q, want en-US", entry.Language)
	}
}

func TestIDGeneratorFailureFallsBack(t *testing.T) {
	a := table("t/a", "A", wide("a"))
	e := newEngine(t, mustDataset(t, a), []int{1}, WithIDGenerator(func() (string, error) {
		return "", fmt.Errorf("boom")
	}))

	entry, _ := e.Roll(context.Background(), "", a, RollOptions{})
	if entry.ID != "local-1" {
		t.Fatalf("id = %q, want local-1", entry.ID)
	}
}

func TestFindOracleByID(t *testing.T) {
	e := newEngine(t, mustDataset(t, table("t/a", "A", wide("a")), regionCollection()), []int{1})
	if _, ok := e.FindOracleByID("t/a"); !ok {
		t.Fatal("expected t/a")
	}
	if _, ok := e.FindOracleByID("t/mission"); ok {
		t.Fatal("expected collection to be excluded")
	}
}

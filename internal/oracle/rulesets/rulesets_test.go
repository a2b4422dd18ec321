package rulesets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

func TestParseMode(t *testing.T) {
	tcs := []struct {
		in   string
		want Mode
	}{
		{in: "", want: ModeStarforged},
		{in: "Starforged", want: ModeStarforged},
		{in: "classic", want: ModeClassic},
		{in: "ironsworn", want: ModeClassic},
	}
	for _, tc := range tcs {
		got, err := ParseMode(tc.in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := ParseMode("delve"); apperrors.CodeOf(err) != apperrors.CodeGameModeUnknown {
		t.Fatalf("code = %v, want %v", apperrors.CodeOf(err), apperrors.CodeGameModeUnknown)
	}
}

func TestLoadEmbeddedDatasets(t *testing.T) {
	for _, mode := range Modes() {
		ds, err := Load(mode)
		if err != nil {
			t.Fatalf("Load(%s): %v", mode, err)
		}
		if len(ds.Tables()) == 0 {
			t.Fatalf("Load(%s): no tables", mode)
		}
		if len(ds.AskTheOracle()) != 5 {
			t.Fatalf("Load(%s): ask the oracle tables = %d, want 5", mode, len(ds.AskTheOracle()))
		}
	}
}

func TestStarforgedDatasetShape(t *testing.T) {
	ds, err := Load(ModeStarforged)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	population, ok := ds.Lookup("starforged/oracles/settlements/population")
	if !ok || !dataset.IsRegionSharded(population) {
		t.Fatal("expected settlements population to be region sharded")
	}
	for _, id := range []string{
		"starforged/oracles/planets/class",
		"starforged/oracles/planets/vital/diversity",
		"starforged/oracles/planets/vital/biomes",
		"starforged/oracles/characters/name/callsign",
		"starforged/oracles/starships/initial_contact",
	} {
		if _, ok := ds.FindOracleByID(id); !ok {
			t.Fatalf("expected rollable %s", id)
		}
	}
}

func TestClassicDatasetShape(t *testing.T) {
	ds, err := Load(ModeClassic)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, id := range []string{
		"classic/oracles/settlement/name",
		"classic/oracles/settlement/name/creature",
		"classic/oracles/settlement/quick_name/prefix",
		"classic/oracles/name/troll",
		"classic/oracles/place/coastal_waters_location",
	} {
		if _, ok := ds.FindOracleByID(id); !ok {
			t.Fatalf("expected rollable %s", id)
		}
	}
}

func TestOpenPrefersDataDir(t *testing.T) {
	dir := t.TempDir()
	content := `{"_id": "homebrew", "oracles": {"omens": {"name": "Omens", "rows": [{"min": 1, "max": 6, "text": "A red moon"}]}}}`
	if err := os.WriteFile(filepath.Join(dir, "omens.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	ds, err := Open(ModeStarforged, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := ds.FindOracleByID("homebrew/oracles/omens"); !ok {
		t.Fatal("expected homebrew table")
	}
	if _, ok := ds.FindOracleByID("starforged/oracles/core/action"); ok {
		t.Fatal("expected data dir to replace the embedded dataset")
	}
}

func TestLoadDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadDir(file, ""); apperrors.CodeOf(err) != apperrors.CodeDatasetInvalid {
		t.Fatalf("code = %v, want %v", apperrors.CodeOf(err), apperrors.CodeDatasetInvalid)
	}
}

package shortcut

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

func TestLoadLuaStringBuildsDefinition(t *testing.T) {
	defs, err := LoadLuaString(`
local s = Shortcut.new("derelict", "Derelict")
s:default_category("desert")
s:category("starforged/oracles/planets/class")
s:roll("starforged/oracles/planets/{category}/name")
s:roll({"starforged/oracles/core/descriptor", "starforged/oracles/core/focus"}, { count = 2 })
s:roll("starforged/oracles/starships/mission", { regions = {"outlands", "expanse"} })
s:roll("starforged/oracles/characters/name/given", { role = "character_name", pool = { prefixes = {"starforged/oracles/characters/name/"} } })
s:follow_up("vital", {"starforged/oracles/planets/vital/diversity", "starforged/oracles/planets/vital/biomes"})
return s
`)
	if err != nil {
		t.Fatalf("LoadLuaString: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("defs = %d, want 1", len(defs))
	}
	def := defs[0]
	if def.Key != "derelict" || def.Name != "Derelict" || def.DefaultCategory != "desert" {
		t.Fatalf("definition = %+v", def)
	}
	if len(def.Directives) != 5 {
		t.Fatalf("directives = %d, want 5", len(def.Directives))
	}
	if def.Directives[0].Role != RoleCategory {
		t.Fatalf("first role = %q, want category", def.Directives[0].Role)
	}
	if got := def.Directives[2]; got.Count != 2 || len(got.Targets) != 2 {
		t.Fatalf("pick directive = %+v", got)
	}
	if got := def.Directives[3].Regions; len(got) != 2 || got[0] != dataset.RegionOutlands {
		t.Fatalf("regions = %v", got)
	}
	pool := def.Directives[4].Pool
	if def.Directives[4].Role != RoleCharacterName || pool == nil || len(pool.Prefixes) != 1 {
		t.Fatalf("pool directive = %+v", def.Directives[4])
	}
	if got := len(def.FollowUpsFor("vital")); got != 2 {
		t.Fatalf("follow-ups = %d, want 2", got)
	}
}

func TestLoadLuaStringWhenPredicate(t *testing.T) {
	defs, err := LoadLuaString(`
local s = Shortcut.new("frontier")
s:roll("starforged/oracles/core/action", { when = "region ~= 'terminus' and category ~= 'ice'" })
return { s }
`)
	if err != nil {
		t.Fatalf("LoadLuaString: %v", err)
	}
	directive := defs[0].Directives[0]
	if directive.When == nil {
		t.Fatal("expected compiled predicate")
	}
	tcs := []struct {
		ctx  Context
		want bool
	}{
		{ctx: Context{}, want: false},
		{ctx: Context{Region: dataset.RegionOutlands}, want: true},
		{ctx: Context{Region: dataset.RegionExpanse, Category: "ice"}, want: false},
	}
	for _, tc := range tcs {
		if got := directive.Applies(tc.ctx); got != tc.want {
			t.Fatalf("Applies(%+v) = %v, want %v", tc.ctx, got, tc.want)
		}
	}
}

func TestLoadLuaStringErrors(t *testing.T) {
	tcs := []struct {
		name   string
		source string
	}{
		{name: "syntax", source: `local s = `},
		{name: "wrong return", source: `return 42`},
		{name: "bad role", source: `local s = Shortcut.new("x"); s:roll("a", { role = "villain" }); return s`},
		{name: "bad region", source: `local s = Shortcut.new("x"); s:roll("a", { regions = {"void"} }); return s`},
		{name: "bad when", source: `local s = Shortcut.new("x"); s:roll("a", { when = "region ==" }); return s`},
		{name: "no directives", source: `return Shortcut.new("x")`},
		{name: "list with junk", source: `return { Shortcut.new("x"), 7 }`},
	}
	for _, tc := range tcs {
		_, err := LoadLuaString(tc.source)
		if apperrors.CodeOf(err) != apperrors.CodeShortcutScriptInvalid {
			t.Fatalf("%s: code = %v (%v), want %v", tc.name, apperrors.CodeOf(err), err, apperrors.CodeShortcutScriptInvalid)
		}
	}
}

func TestLoadLuaFileDefaultsKeyToFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outpost.lua")
	source := `local s = Shortcut.new(""); s:roll("starforged/oracles/settlements/name"); return s`
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	defs, err := LoadLua(path)
	if err != nil {
		t.Fatalf("LoadLua: %v", err)
	}
	if defs[0].Key != "outpost" {
		t.Fatalf("key = %q, want outpost", defs[0].Key)
	}
}

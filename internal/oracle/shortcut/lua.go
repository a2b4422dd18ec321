package shortcut

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/oracles/internal/oracle/dataset"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

const shortcutTypeName = "shortcut"

// script owns the Lua state that scripted predicates evaluate in.
type script struct {
	mu    sync.Mutex
	state *lua.State
}

type luaShortcut struct {
	def    Definition
	script *script
}

// LoadLua runs a shortcut script file. The script returns one Shortcut or a
// list of them:
//
//	local s = Shortcut.new("derelict", "Derelict")
//	s:roll("starforged/oracles/core/descriptor", { count = 2 })
//	s:roll("starforged/oracles/core/focus", { when = "region ~= 'terminus'" })
//	return s
func LoadLua(path string) ([]Definition, error) {
	sc := newScript()
	if err := lua.LoadFile(sc.state, path, ""); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeShortcutScriptInvalid, "load lua", err)
	}
	defs, err := sc.run()
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range defs {
		if defs[i].Key == "" {
			defs[i].Key = base
		}
	}
	return defs, validateAll(defs)
}

// LoadLuaString runs a shortcut script held in memory.
func LoadLuaString(source string) ([]Definition, error) {
	sc := newScript()
	if err := lua.LoadString(sc.state, source); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeShortcutScriptInvalid, "load lua", err)
	}
	defs, err := sc.run()
	if err != nil {
		return nil, err
	}
	return defs, validateAll(defs)
}

func newScript() *script {
	state := lua.NewState()
	lua.OpenLibraries(state)
	sc := &script{state: state}
	sc.register()
	return sc
}

func (sc *script) run() ([]Definition, error) {
	state := sc.state
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeShortcutScriptInvalid, "run lua", err)
	}
	defer state.Pop(1)

	switch state.TypeOf(-1) {
	case lua.TypeUserData:
		s, ok := state.ToUserData(-1).(*luaShortcut)
		if !ok || s == nil {
			return nil, apperrors.New(apperrors.CodeShortcutScriptInvalid, "script returned an invalid Shortcut")
		}
		return []Definition{s.def}, nil
	case lua.TypeTable:
		var defs []Definition
		count := state.RawLength(-1)
		for i := 1; i <= count; i++ {
			state.RawGetInt(-1, i)
			s, ok := state.ToUserData(-1).(*luaShortcut)
			state.Pop(1)
			if !ok || s == nil {
				return nil, apperrors.New(apperrors.CodeShortcutScriptInvalid, fmt.Sprintf("entry %d is not a Shortcut", i))
			}
			defs = append(defs, s.def)
		}
		return defs, nil
	default:
		return nil, apperrors.New(apperrors.CodeShortcutScriptInvalid, "shortcut script must return a Shortcut or a list of them")
	}
}

func validateAll(defs []Definition) error {
	if len(defs) == 0 {
		return apperrors.New(apperrors.CodeShortcutScriptInvalid, "shortcut script returned no shortcuts")
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (sc *script) register() {
	state := sc.state

	lua.NewMetaTable(state, shortcutTypeName)
	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "roll", Function: sc.shortcutRoll},
		{Name: "category", Function: sc.shortcutCategory},
		{Name: "default_category", Function: shortcutDefaultCategory},
		{Name: "follow_up", Function: sc.shortcutFollowUp},
	}, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "new", Function: sc.shortcutNew},
	}, 0)
	state.SetGlobal("Shortcut")
}

func (sc *script) shortcutNew(state *lua.State) int {
	key := lua.CheckString(state, 1)
	name := lua.OptString(state, 2, key)
	state.PushUserData(&luaShortcut{def: Definition{Key: key, Name: name}, script: sc})
	lua.SetMetaTableNamed(state, shortcutTypeName)
	return 1
}

func (sc *script) shortcutRoll(state *lua.State) int {
	s := checkShortcut(state)
	directive := Directive{Targets: checkTargets(state, 2)}
	sc.applyOptions(state, 3, &directive)
	s.def.Directives = append(s.def.Directives, directive)
	state.PushValue(1)
	return 1
}

func (sc *script) shortcutCategory(state *lua.State) int {
	s := checkShortcut(state)
	directive := Directive{Targets: checkTargets(state, 2)}
	sc.applyOptions(state, 3, &directive)
	directive.Role = RoleCategory
	s.def.Directives = append(s.def.Directives, directive)
	state.PushValue(1)
	return 1
}

func shortcutDefaultCategory(state *lua.State) int {
	s := checkShortcut(state)
	s.def.DefaultCategory = lua.CheckString(state, 2)
	state.PushValue(1)
	return 1
}

func (sc *script) shortcutFollowUp(state *lua.State) int {
	s := checkShortcut(state)
	category := lua.CheckString(state, 2)
	followUp := FollowUp{Category: category}
	for _, target := range checkTargets(state, 3) {
		followUp.Directives = append(followUp.Directives, Directive{Targets: []string{target}})
	}
	s.def.FollowUps = append(s.def.FollowUps, followUp)
	state.PushValue(1)
	return 1
}

func checkShortcut(state *lua.State) *luaShortcut {
	ud := lua.CheckUserData(state, 1, shortcutTypeName)
	if s, ok := ud.(*luaShortcut); ok && s != nil {
		return s
	}
	lua.ArgumentError(state, 1, "shortcut expected")
	return nil
}

func checkTargets(state *lua.State, index int) []string {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return []string{value}
	case lua.TypeTable:
		targets := stringList(state, index)
		if len(targets) == 0 {
			lua.ArgumentError(state, index, "at least one target expected")
		}
		return targets
	default:
		lua.ArgumentError(state, index, "target string or list expected")
		return nil
	}
}

func stringList(state *lua.State, index int) []string {
	index = state.AbsIndex(index)
	count := state.RawLength(index)
	out := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		state.RawGetInt(index, i)
		if value, ok := state.ToString(-1); ok && strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
		state.Pop(1)
	}
	return out
}

// applyOptions reads { count, role, regions, when, pool } from the table at
// index into directive.
func (sc *script) applyOptions(state *lua.State, index int, directive *Directive) {
	if state.IsNoneOrNil(index) {
		return
	}
	lua.CheckType(state, index, lua.TypeTable)
	index = state.AbsIndex(index)

	state.Field(index, "count")
	if count, ok := state.ToInteger(-1); ok {
		directive.Count = count
	}
	state.Pop(1)

	state.Field(index, "role")
	if value, ok := state.ToString(-1); ok {
		role, err := ParseRole(value)
		if err != nil {
			lua.Errorf(state, "%s", err.Error())
		}
		directive.Role = role
	}
	state.Pop(1)

	state.Field(index, "regions")
	if state.TypeOf(-1) == lua.TypeTable {
		for _, value := range stringList(state, -1) {
			region, err := dataset.ParseRegion(value)
			if err != nil {
				lua.Errorf(state, "%s", err.Error())
			}
			directive.Regions = append(directive.Regions, region)
		}
	}
	state.Pop(1)

	state.Field(index, "when")
	if expr, ok := state.ToString(-1); ok && strings.TrimSpace(expr) != "" {
		directive.When = sc.compilePredicate(state, expr)
	}
	state.Pop(1)

	state.Field(index, "pool")
	if state.TypeOf(-1) == lua.TypeTable {
		directive.Pool = readPool(state, -1)
	}
	state.Pop(1)
}

func readPool(state *lua.State, index int) *Pool {
	index = state.AbsIndex(index)
	pool := &Pool{}
	for _, field := range []struct {
		name string
		dest *[]string
	}{
		{name: "prefixes", dest: &pool.Prefixes},
		{name: "exact", dest: &pool.Exact},
		{name: "exclude", dest: &pool.Exclude},
	} {
		state.Field(index, field.name)
		if state.TypeOf(-1) == lua.TypeTable {
			*field.dest = stringList(state, -1)
		}
		state.Pop(1)
	}
	return pool
}

// compilePredicate checks expr parses now and evaluates it per call with the
// region and category globals set.
func (sc *script) compilePredicate(state *lua.State, expr string) Predicate {
	chunk := "return (" + expr + ")"
	if err := lua.LoadString(state, chunk); err != nil {
		lua.Errorf(state, "invalid when expression %q: %s", expr, err.Error())
	}
	state.Pop(1)

	return func(ctx Context) bool {
		sc.mu.Lock()
		defer sc.mu.Unlock()

		l := sc.state
		l.PushString(string(ctx.Region.OrDefault()))
		l.SetGlobal("region")
		l.PushString(ctx.Category)
		l.SetGlobal("category")

		if err := lua.LoadString(l, chunk); err != nil {
			l.Pop(1)
			return false
		}
		if err := l.ProtectedCall(0, 1, 0); err != nil {
			l.Pop(1)
			return false
		}
		result := l.ToBoolean(-1)
		l.Pop(1)
		return result
	}
}

package engine

import (
	"context"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/shortcut"
	platformotel "github.com/louisbranch/oracles/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
)

// RollShortcut runs def and collects every roll under one synthetic entry
// with no roll or result of its own. The category directive, if any, rolls
// first; its declared position is skipped. Follow-ups registered for the
// derived category run last. Shortcut rolls do not cascade.
func (e *Engine) RollShortcut(ctx context.Context, def shortcut.Definition, opts RollOptions) LogEntry {
	_, span := platformotel.Tracer().Start(ctx, "oracle.shortcut")
	defer span.End()

	lang := e.lang(opts.Language)
	name := def.Name
	if name == "" {
		name = def.Key
	}

	e.mu.Lock()
	entry := &LogEntry{
		RollRecord: RollRecord{ID: e.nextID(), OracleID: def.Key, OracleName: name},
		Shortcut:   def.Key,
		Region:     opts.Region,
		Language:   lang,
		CreatedAt:  e.now(),
	}
	e.prepend(entry)
	e.mu.Unlock()

	sctx := shortcut.Context{Region: opts.Region}
	if directive, ok := def.CategoryDirective(); ok && directive.Applies(sctx) {
		if s, ok := e.attachDirective(entry, def, directive, sctx, lang); ok {
			sctx.Category = deriveCategory(def, s)
		}
	}
	if sctx.Category == "" {
		sctx.Category = def.DefaultCategory
	}

	for _, directive := range def.Directives {
		if directive.Role == shortcut.RoleCategory {
			continue
		}
		e.runDirective(entry, def, directive, sctx, lang)
	}
	for _, directive := range def.FollowUpsFor(sctx.Category) {
		e.runDirective(entry, def, directive, sctx, lang)
	}

	snapshot := e.finish(entry)
	span.SetAttributes(
		attribute.String("oracle.shortcut", def.Key),
		attribute.String("oracle.category", sctx.Category),
		attribute.Int("oracle.children", len(snapshot.Children)),
	)
	return snapshot
}

func (e *Engine) runDirective(entry *LogEntry, def shortcut.Definition, directive shortcut.Directive, sctx shortcut.Context, lang string) {
	if !directive.Applies(sctx) {
		return
	}
	for range directive.Times() {
		e.attachDirective(entry, def, directive, sctx, lang)
	}
}

// attachDirective rolls one repetition of directive and attaches it.
func (e *Engine) attachDirective(entry *LogEntry, def shortcut.Definition, directive shortcut.Directive, sctx shortcut.Context, lang string) (sample, bool) {
	e.mu.Lock()
	node, table, shard, ok := e.chooseTarget(def, directive, sctx)
	if !ok {
		e.mu.Unlock()
		e.logger.Printf("shortcut %s: no target of %v found", def.Key, directive.Targets)
		return sample{}, false
	}
	s, ok := e.rollOnce(table, e.displayName(node, "", shard, lang), lang)
	if !ok {
		e.mu.Unlock()
		return sample{}, false
	}
	entry.Children = append(entry.Children, s.record)
	parent := entry.clone()
	e.mu.Unlock()

	e.notify(parent, s.record.clone())
	return s, true
}

// chooseTarget picks the table for one repetition: a random pool member
// when the pool matches anything, otherwise a random resolvable target.
// Must be called with e.mu held.
func (e *Engine) chooseTarget(def shortcut.Definition, directive shortcut.Directive, sctx shortcut.Context) (dataset.Node, *dataset.Table, dataset.Region, bool) {
	if directive.Pool != nil && e.ds != nil {
		if tables := e.ds.TablesWhere(directive.Pool.Match); len(tables) > 0 {
			table := tables[e.pick(len(tables))]
			return table, table, "", true
		}
	}

	type candidate struct {
		node  dataset.Node
		table *dataset.Table
		shard dataset.Region
	}
	var candidates []candidate
	for _, target := range directive.Targets {
		if node, table, shard, ok := e.resolveTarget(def, target, sctx); ok {
			candidates = append(candidates, candidate{node: node, table: table, shard: shard})
		}
	}
	if len(candidates) == 0 {
		return nil, nil, "", false
	}
	chosen := candidates[e.pick(len(candidates))]
	return chosen.node, chosen.table, chosen.shard, true
}

// pick returns a uniform index below n without drawing when there is a
// single choice.
func (e *Engine) pick(n int) int {
	if n <= 1 {
		return 0
	}
	return e.roller.Intn(n)
}

package engine

import (
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/reference"
	"github.com/louisbranch/oracles/internal/oracle/shortcut"
)

// effectiveTable returns the table a top-level roll of node samples and the
// region it was redirected through, if any.
func effectiveTable(node dataset.Node, region dataset.Region) (*dataset.Table, dataset.Region, bool) {
	switch n := node.(type) {
	case *dataset.Table:
		if n.Rollable() {
			return n, "", true
		}
	case *dataset.Collection:
		if n == nil {
			return nil, "", false
		}
		shard := region.OrDefault()
		if table, ok := dataset.RegionTable(n, shard); ok {
			return table, shard, true
		}
	}
	return nil, "", false
}

// resolveReference looks up a referenced identifier. Referenced
// region-sharded collections roll the shard of region.
func (e *Engine) resolveReference(oracleID string, region dataset.Region) (dataset.Node, *dataset.Table, dataset.Region, bool) {
	if e.ds == nil {
		return nil, nil, "", false
	}
	node, ok := e.ds.Lookup(oracleID)
	if !ok {
		return nil, nil, "", false
	}
	table, shard, ok := effectiveTable(node, region)
	if !ok {
		return nil, nil, "", false
	}
	return node, table, shard, true
}

// displayName translates the name of node and annotates it with the region
// label when the roll was redirected to a shard.
func (e *Engine) displayName(node dataset.Node, name string, shard dataset.Region, lang string) string {
	if name == "" && node != nil {
		name = node.OracleName()
	}
	if e.translator != nil && node != nil {
		name = e.translator.Name(node.OracleID(), name, lang)
	}
	if shard == "" {
		return name
	}
	return name + " (" + e.regionLabel(shard, lang) + ")"
}

func (e *Engine) regionLabel(region dataset.Region, lang string) string {
	if label, ok := e.messages.Message(lang, "region."+string(region)); ok && label != "" {
		return label
	}
	return region.Label()
}

// resolveTarget finds the table a shortcut target names. The target with
// the context substituted is tried first, then the target with the shortcut
// defaults, then a partial identifier match.
func (e *Engine) resolveTarget(def shortcut.Definition, target string, ctx shortcut.Context) (dataset.Node, *dataset.Table, dataset.Region, bool) {
	if e.ds == nil {
		return nil, nil, "", false
	}
	substituted := shortcut.Substitute(target, ctx)
	if node, table, shard, ok := e.resolveReference(substituted, ctx.Region); ok {
		return node, table, shard, true
	}
	literal := def.Literal(target)
	if literal != substituted {
		if node, table, shard, ok := e.resolveReference(literal, ctx.Region); ok {
			e.logger.Printf("target %s not found, using %s", substituted, literal)
			return node, table, shard, true
		}
	}
	partial := substituted
	if strings.Contains(partial, "{") {
		partial = literal
	}
	if table, ok := e.ds.FindPartial(partial); ok {
		e.logger.Printf("target %s not found, using partial match %s", substituted, table.ID)
		return table, table, "", true
	}
	return nil, nil, "", false
}

// deriveCategory reads the category a category roll selected. A reference
// below the category prefix names it directly; otherwise the first word of
// the result is used.
func deriveCategory(def shortcut.Definition, s sample) string {
	if !s.matched {
		return ""
	}
	if prefix := def.CategoryPrefix(); prefix != "" {
		for _, ref := range s.record.References {
			rest, ok := strings.CutPrefix(ref, prefix)
			if !ok {
				continue
			}
			if segment, _, _ := strings.Cut(rest, "/"); segment != "" {
				return segment
			}
		}
	}
	fields := strings.Fields(reference.Strip(s.row.Text))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(fields[0], ".,;:!?\"'"))
}

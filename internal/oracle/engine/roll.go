package engine

import (
	"context"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/dice"
	"github.com/louisbranch/oracles/internal/oracle/reference"
	platformotel "github.com/louisbranch/oracles/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
)

type sample struct {
	record  RollRecord
	row     dataset.Row
	matched bool
}

// step is a pending reference in a cascade. path holds the table IDs from
// the top-level roll down to the row that referenced oracleID. reroll marks
// an oracle_rolls entry naming the table its row came from, as in "Roll
// twice"; only the depth limit bounds those.
type step struct {
	oracleID string
	path     []string
	reroll   bool
}

// RollOnce samples table once in the engine language. It reports false when
// the table has no rows.
func (e *Engine) RollOnce(table *dataset.Table) (RollRecord, dataset.Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if table == nil {
		return RollRecord{}, dataset.Row{}, false
	}
	s, ok := e.rollOnce(table, e.displayName(table, "", "", e.language), e.language)
	if !ok {
		return RollRecord{}, dataset.Row{}, false
	}
	return s.record, s.row, true
}

// rollOnce must be called with e.mu held.
func (e *Engine) rollOnce(table *dataset.Table, name string, lang string) (sample, bool) {
	if !table.Rollable() {
		return sample{}, false
	}
	roll := dice.Roll(e.roller, dice.MaxRoll(table.Rows))
	row, matched := dice.Resolve(roll, table.Rows)

	s := sample{row: row, matched: matched}
	s.record = RollRecord{
		ID:         e.nextID(),
		OracleID:   table.ID,
		OracleName: name,
		Roll:       roll,
	}
	if !matched {
		e.logger.Printf("no row of %s matches roll %d", table.ID, roll)
		s.row = dataset.Row{}
		s.record.OriginalResult = e.messages.Text(lang, "result.not_found")
		s.record.Result = s.record.OriginalResult
		return s, true
	}
	s.record.OriginalResult = row.Display()
	s.record.Result = s.record.OriginalResult
	if e.translator != nil {
		s.record.Result = e.translator.Result(table.ID, row.Min, s.record.OriginalResult, lang)
	}
	s.record.References = reference.Extract(row)
	return s, true
}

// Roll resolves node as a new top-level entry and cascades through the
// references of the rolled row. Region-sharded collections roll the shard of
// opts.Region, or of the default region when none is given. It reports false
// when nothing could be rolled.
func (e *Engine) Roll(ctx context.Context, name string, node dataset.Node, opts RollOptions) (LogEntry, bool) {
	ctx, span := platformotel.Tracer().Start(ctx, "oracle.roll")
	defer span.End()

	lang := e.lang(opts.Language)

	e.mu.Lock()
	table, shard, ok := effectiveTable(node, opts.Region)
	if !ok {
		e.mu.Unlock()
		e.logger.Printf("oracle %s has nothing to roll", nodeID(node))
		return LogEntry{}, false
	}
	s, ok := e.rollOnce(table, e.displayName(node, name, shard, lang), lang)
	if !ok {
		e.mu.Unlock()
		return LogEntry{}, false
	}
	entry := &LogEntry{
		RollRecord: s.record,
		Region:     opts.Region,
		Language:   lang,
		CreatedAt:  e.now(),
	}
	e.prepend(entry)
	e.mu.Unlock()

	e.cascade(ctx, entry, e.steps(s.row, []string{table.ID}), opts.Region, lang)
	snapshot := e.finish(entry)

	span.SetAttributes(
		attribute.String("oracle.id", snapshot.OracleID),
		attribute.Int("oracle.roll", snapshot.Roll),
		attribute.Int("oracle.children", len(snapshot.Children)),
	)
	return snapshot, true
}

// RollOracle rolls node as a top-level entry when parentID is empty.
// Otherwise the roll is attached as a child of the open entry parentID and
// its references cascade into that entry. Frozen or unknown parents make it
// a no-op that reports false.
func (e *Engine) RollOracle(ctx context.Context, name string, node dataset.Node, parentID string, region dataset.Region) (LogEntry, bool) {
	if parentID == "" {
		return e.Roll(ctx, name, node, RollOptions{Region: region})
	}

	e.mu.Lock()
	entry, ok := e.open[parentID]
	if !ok {
		e.mu.Unlock()
		e.logger.Printf("entry %s is not open, ignoring roll of %s", parentID, nodeID(node))
		return LogEntry{}, false
	}
	if region == "" {
		region = entry.Region
	}
	lang := entry.Language
	table, shard, ok := effectiveTable(node, region)
	if !ok {
		e.mu.Unlock()
		return LogEntry{}, false
	}
	s, ok := e.rollOnce(table, e.displayName(node, name, shard, lang), lang)
	if !ok {
		e.mu.Unlock()
		return LogEntry{}, false
	}
	entry.Children = append(entry.Children, s.record)
	parent := entry.clone()
	e.mu.Unlock()
	e.notify(parent, s.record.clone())

	e.cascade(ctx, entry, e.steps(s.row, []string{table.ID}), region, lang)

	e.mu.Lock()
	defer e.mu.Unlock()
	return entry.clone(), true
}

// cascade rolls every pending reference breadth-first and attaches each
// record directly under entry, so the tree stays two levels deep.
func (e *Engine) cascade(ctx context.Context, entry *LogEntry, queue []step, region dataset.Region, lang string) {
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if !next.reroll && onPath(next.path, next.oracleID) {
			e.logger.Printf("reference cycle at %s, skipping", next.oracleID)
			continue
		}
		if len(next.path) > e.maxDepth {
			e.logger.Printf("reference chain deeper than %d at %s, truncating", e.maxDepth, next.oracleID)
			continue
		}

		e.mu.Lock()
		node, table, shard, ok := e.resolveReference(next.oracleID, region)
		if !ok {
			e.mu.Unlock()
			e.logger.Printf("reference %s not found, skipping", next.oracleID)
			continue
		}
		if table.ID != next.oracleID && onPath(next.path, table.ID) {
			e.mu.Unlock()
			e.logger.Printf("reference cycle at %s, skipping", table.ID)
			continue
		}
		s, ok := e.rollOnce(table, e.displayName(node, "", shard, lang), lang)
		if !ok {
			e.mu.Unlock()
			continue
		}
		entry.Children = append(entry.Children, s.record)
		parent := entry.clone()
		e.mu.Unlock()

		e.notify(parent, s.record.clone())
		queue = append(queue, e.steps(s.row, extendPath(next.path, table.ID))...)
	}
}

// steps expands the references of row, repeating oracle_roll targets by
// their declared count.
func (e *Engine) steps(row dataset.Row, path []string) []step {
	var out []step
	for _, ref := range reference.Extract(row) {
		reroll := len(path) > 0 && path[len(path)-1] == ref && rolledBy(row, ref)
		for range timesFor(row, ref) {
			out = append(out, step{oracleID: ref, path: path, reroll: reroll})
		}
	}
	return out
}

// finish freezes entry and returns its final state.
func (e *Engine) finish(entry *LogEntry) LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.open, entry.ID)
	return entry.clone()
}

func timesFor(row dataset.Row, ref string) int {
	times := 1
	for _, oracleRoll := range row.OracleRolls {
		if oracleRoll.Oracle == ref && oracleRoll.Times > times {
			times = oracleRoll.Times
		}
	}
	return times
}

func rolledBy(row dataset.Row, ref string) bool {
	for _, oracleRoll := range row.OracleRolls {
		if oracleRoll.Oracle == ref {
			return true
		}
	}
	return false
}

func onPath(path []string, oracleID string) bool {
	for _, visited := range path {
		if visited == oracleID {
			return true
		}
	}
	return false
}

func extendPath(path []string, oracleID string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, oracleID)
}

func nodeID(node dataset.Node) string {
	if node == nil {
		return "<nil>"
	}
	return node.OracleID()
}

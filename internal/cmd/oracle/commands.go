package oracle

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/engine"
	"github.com/louisbranch/oracles/internal/oracle/history"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

func (a *app) roll(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("roll needs at least one oracle id")
	}
	ds := a.Engine.Dataset()
	for _, query := range args {
		node, ok := ds.Resolve(query)
		if !ok {
			return a.notFound(query)
		}
		entry, ok := a.Engine.Roll(ctx, "", node, a.Options())
		if !ok {
			return fmt.Errorf("oracle %q has nothing to roll", query)
		}
		a.Record(ctx, entry)
		if err := a.printEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) shortcut(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("shortcut needs a key, see %q", CommandShortcuts)
	}
	for _, key := range args {
		def, err := a.Shortcuts.Get(key)
		if err != nil {
			return fmt.Errorf("%s", apperrors.UserMessage(err, a.cfg.Language))
		}
		entry := a.Engine.RollShortcut(ctx, def, a.Options())
		a.Record(ctx, entry)
		if err := a.printEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) find(args []string) error {
	query := strings.ToLower(strings.TrimSpace(strings.Join(args, " ")))
	if query == "" {
		return fmt.Errorf("find needs a query")
	}
	ds := a.Engine.Dataset()
	matches := ds.TablesWhere(func(table *dataset.Table) bool {
		return strings.Contains(strings.ToLower(table.ID), query) ||
			strings.Contains(strings.ToLower(a.Translations.Name(table.ID, table.Name, a.cfg.Language)), query)
	})
	if len(matches) == 0 {
		fmt.Fprintln(a.out, a.sprintf("find.no_match", query))
		a.printSuggestions(ds.Suggest(query, 5))
		return nil
	}
	for _, table := range matches {
		fmt.Fprintf(a.out, "%s\t%s\n", table.ID, a.Translations.Name(table.ID, table.Name, a.cfg.Language))
	}
	return nil
}

func (a *app) list() error {
	ds := a.Engine.Dataset()
	for _, root := range ds.Browsable() {
		a.printNode(root, 0, map[string]bool{})
	}
	if ask := ds.AskTheOracle(); len(ask) > 0 {
		fmt.Fprintln(a.out, a.sprintf("list.ask_the_oracle"))
		for _, table := range ask {
			a.printNode(table, 1, nil)
		}
	}
	return nil
}

// printNode lists node and its members. Collections already expanded on the
// current path are not expanded again.
func (a *app) printNode(node dataset.Node, depth int, expanded map[string]bool) {
	indent := strings.Repeat("  ", depth)
	name := a.Translations.Name(node.OracleID(), node.OracleName(), a.cfg.Language)
	switch n := node.(type) {
	case *dataset.Table:
		if n.Rollable() {
			fmt.Fprintf(a.out, "%s%s\t%s\n", indent, name, n.ID)
		}
	case *dataset.Collection:
		if dataset.IsRegionSharded(n) {
			fmt.Fprintf(a.out, "%s%s\t%s\n", indent, name, n.ID)
			return
		}
		if expanded[n.ID] {
			return
		}
		fmt.Fprintf(a.out, "%s%s\n", indent, name)
		expanded[n.ID] = true
		for _, member := range a.Engine.Dataset().Members(n) {
			a.printNode(member, depth+1, expanded)
		}
		delete(expanded, n.ID)
	}
}

func (a *app) shortcuts() error {
	mode := a.messages.Text(a.cfg.Language, "game_mode."+string(a.Mode))
	fmt.Fprintln(a.out, a.sprintf("shortcuts.heading", mode))
	for _, key := range a.Shortcuts.Keys() {
		def, err := a.Shortcuts.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "  %s\t%s\n", def.Key, def.Name)
	}
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	if a.History == nil {
		return errNoHistory
	}
	fs := flag.NewFlagSet(CommandHistory, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var opts history.ListOptions
	fs.StringVar(&opts.Filter, "filter", "", "AIP-160 filter, e.g. roll > 50 AND shortcut = \"planet\"")
	fs.IntVar(&opts.PageSize, "page-size", 0, "entries per page")
	fs.StringVar(&opts.PageToken, "page-token", "", "token from a previous page")
	fs.StringVar(&opts.OrderBy, "order-by", "", "created_at desc or created_at")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := a.History.ListEntries(ctx, opts)
	if err != nil {
		return fmt.Errorf("%s", apperrors.UserMessage(err, a.cfg.Language))
	}
	if a.cfg.JSON {
		return a.writeJSON(page)
	}
	if len(page.Entries) == 0 {
		fmt.Fprintln(a.out, a.sprintf("log.empty"))
		return nil
	}
	for _, entry := range page.Entries {
		a.printRecord(entry.Record, entry.Shortcut != "", entry.Children)
	}
	if page.NextPageToken != "" {
		fmt.Fprintln(a.out, a.sprintf("history.next_page", page.NextPageToken))
	}
	return nil
}

func (a *app) clearHistory(ctx context.Context) error {
	if a.History == nil {
		return errNoHistory
	}
	removed, err := a.History.Clear(ctx)
	if err != nil {
		return err
	}
	a.Logger.Printf("removed %d history entries", removed)
	fmt.Fprintln(a.out, a.sprintf("log.cleared"))
	return nil
}

func (a *app) notFound(query string) error {
	err := apperrors.WithMetadata(
		apperrors.CodeOracleNotFound,
		fmt.Sprintf("oracle %q not found", query),
		map[string]string{"ID": query},
	)
	message := apperrors.UserMessage(err, a.cfg.Language)
	if suggestions := a.Engine.Dataset().Suggest(query, 3); len(suggestions) > 0 {
		message += " " + a.messages.Text(a.cfg.Language, "find.suggestions") + " " + strings.Join(suggestions, ", ")
	}
	return fmt.Errorf("%s", message)
}

func (a *app) printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(a.out, a.messages.Text(a.cfg.Language, "find.suggestions"))
	for _, id := range suggestions {
		fmt.Fprintf(a.out, "  %s\n", id)
	}
}

func (a *app) printEntry(entry engine.LogEntry) error {
	if a.cfg.JSON {
		return a.writeJSON(history.FromLogEntry(entry))
	}
	persisted := history.FromLogEntry(entry)
	a.printRecord(persisted.Record, entry.Shortcut != "", persisted.Children)
	return nil
}

// printRecord writes one entry: the top-level line, then one indented line
// per child. Shortcut entries have no roll of their own.
func (a *app) printRecord(record history.Record, fromShortcut bool, children []history.Record) {
	if fromShortcut {
		fmt.Fprintln(a.out, record.OracleName)
	} else {
		fmt.Fprintf(a.out, "%s [%d]: %s\n", record.OracleName, record.Roll, record.Result)
	}
	for _, child := range children {
		fmt.Fprintf(a.out, "  %s [%d]: %s\n", child.OracleName, child.Roll, child.Result)
	}
}

func (a *app) writeJSON(value any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/engine"
	"github.com/louisbranch/oracles/internal/oracle/history"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
	"github.com/louisbranch/oracles/internal/platform/i18n/catalog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultFindLimit = 10
	maxFindLimit     = 50
)

// RecordResult is one roll record.
type RecordResult struct {
	OracleID       string   `json:"oracle_id" jsonschema:"identifier of the rolled table"`
	OracleName     string   `json:"oracle_name" jsonschema:"display name of the rolled table"`
	Roll           int      `json:"roll" jsonschema:"die value, zero for shortcut entries"`
	Result         string   `json:"result" jsonschema:"resolved text in the requested language"`
	OriginalResult string   `json:"original_result,omitempty" jsonschema:"resolved text before translation"`
	References     []string `json:"references,omitempty" jsonschema:"tables referenced by the resolved row"`
}

// EntryResult is one log entry with its flat child list.
type EntryResult struct {
	ID             string         `json:"id" jsonschema:"log entry identifier"`
	OracleID       string         `json:"oracle_id" jsonschema:"identifier of the rolled table or shortcut"`
	OracleName     string         `json:"oracle_name" jsonschema:"display name"`
	Roll           int            `json:"roll" jsonschema:"die value, zero for shortcut entries"`
	Result         string         `json:"result" jsonschema:"resolved text in the requested language"`
	OriginalResult string         `json:"original_result,omitempty" jsonschema:"resolved text before translation"`
	References     []string       `json:"references,omitempty" jsonschema:"tables referenced by the resolved row"`
	Shortcut       string         `json:"shortcut,omitempty" jsonschema:"shortcut key when produced by a shortcut"`
	Region         string         `json:"region,omitempty" jsonschema:"region used for the roll"`
	Language       string         `json:"language,omitempty" jsonschema:"language used for display text"`
	CreatedAt      string         `json:"created_at" jsonschema:"RFC3339 creation time"`
	Children       []RecordResult `json:"children,omitempty" jsonschema:"rolls cascaded from or composed into this entry"`
}

// RollInput is the oracle_roll input.
type RollInput struct {
	OracleID string `json:"oracle_id" jsonschema:"oracle identifier, exact or partial"`
	Region   string `json:"region,omitempty" jsonschema:"terminus, outlands or expanse"`
	Language string `json:"language,omitempty" jsonschema:"display language tag such as pt-BR"`
}

// RollResult is the oracle_roll output.
type RollResult struct {
	Entry EntryResult `json:"entry" jsonschema:"the new log entry"`
}

// ShortcutInput is the oracle_shortcut input.
type ShortcutInput struct {
	Key      string `json:"key" jsonschema:"shortcut key, see oracle_shortcuts"`
	Region   string `json:"region,omitempty" jsonschema:"terminus, outlands or expanse"`
	Language string `json:"language,omitempty" jsonschema:"display language tag such as pt-BR"`
}

// FindInput is the oracle_find input.
type FindInput struct {
	Query string `json:"query" jsonschema:"identifier fragment to search for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of matches"`
}

// OracleSummary describes one rollable oracle.
type OracleSummary struct {
	ID            string `json:"id" jsonschema:"oracle identifier"`
	Name          string `json:"name" jsonschema:"display name"`
	Rows          int    `json:"rows,omitempty" jsonschema:"number of rows"`
	RegionSharded bool   `json:"region_sharded,omitempty" jsonschema:"whether the region selects the table"`
}

// FindResult is the oracle_find output.
type FindResult struct {
	Matches     []OracleSummary `json:"matches" jsonschema:"oracles whose identifier contains the query"`
	Suggestions []string        `json:"suggestions,omitempty" jsonschema:"close identifiers when nothing matched"`
}

// ShortcutsInput is the oracle_shortcuts input.
type ShortcutsInput struct{}

// ShortcutSummary describes one shortcut.
type ShortcutSummary struct {
	Key        string `json:"key" jsonschema:"shortcut key"`
	Name       string `json:"name" jsonschema:"display name"`
	Directives int    `json:"directives" jsonschema:"number of roll directives"`
}

// ShortcutsResult is the oracle_shortcuts output.
type ShortcutsResult struct {
	Shortcuts []ShortcutSummary `json:"shortcuts" jsonschema:"available shortcuts"`
}

// LogInput is the oracle_log input.
type LogInput struct {
	Filter    string `json:"filter,omitempty" jsonschema:"AIP-160 filter over oracle_id, oracle_name, roll, shortcut, region, language and created_at"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum number of entries"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// LogResult is the oracle_log output.
type LogResult struct {
	Entries       []EntryResult `json:"entries" jsonschema:"entries, most recent first"`
	NextPageToken string        `json:"next_page_token,omitempty" jsonschema:"token for the next page"`
}

// RollTool defines the oracle_roll tool.
func RollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "oracle_roll",
		Description: "Rolls an oracle table and every table its result references",
	}
}

// ShortcutTool defines the oracle_shortcut tool.
func ShortcutTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "oracle_shortcut",
		Description: "Runs a shortcut that rolls several related oracles at once",
	}
}

// FindTool defines the oracle_find tool.
func FindTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "oracle_find",
		Description: "Searches oracle identifiers",
	}
}

// ShortcutsTool defines the oracle_shortcuts tool.
func ShortcutsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "oracle_shortcuts",
		Description: "Lists the shortcuts of the current game mode",
	}
}

// LogTool defines the oracle_log tool.
func LogTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "oracle_log",
		Description: "Lists previous rolls, most recent first",
	}
}

func (s *Server) rollHandler() mcp.ToolHandlerFor[RollInput, RollResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollInput) (*mcp.CallToolResult, RollResult, error) {
		lang := s.language(input.Language)
		region, err := s.region(input.Region)
		if err != nil {
			return nil, RollResult{}, userError(err, lang)
		}
		node, err := s.lookup(input.OracleID)
		if err != nil {
			return nil, RollResult{}, s.notFound(err, input.OracleID, lang)
		}
		entry, ok := s.cfg.Engine.Roll(ctx, "", node, engine.RollOptions{Region: region, Language: lang})
		if !ok {
			return nil, RollResult{}, userError(apperrors.WithMetadata(
				apperrors.CodeOracleNotFound,
				fmt.Sprintf("oracle %q has nothing to roll", input.OracleID),
				map[string]string{"ID": input.OracleID},
			), lang)
		}
		s.record(ctx, entry)
		return nil, RollResult{Entry: entryFromLog(entry)}, nil
	}
}

func (s *Server) shortcutHandler() mcp.ToolHandlerFor[ShortcutInput, RollResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ShortcutInput) (*mcp.CallToolResult, RollResult, error) {
		lang := s.language(input.Language)
		region, err := s.region(input.Region)
		if err != nil {
			return nil, RollResult{}, userError(err, lang)
		}
		def, err := s.cfg.Shortcuts.Get(input.Key)
		if err != nil {
			return nil, RollResult{}, userError(err, lang)
		}
		entry := s.cfg.Engine.RollShortcut(ctx, def, engine.RollOptions{Region: region, Language: lang})
		s.record(ctx, entry)
		return nil, RollResult{Entry: entryFromLog(entry)}, nil
	}
}

func (s *Server) findHandler() mcp.ToolHandlerFor[FindInput, FindResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input FindInput) (*mcp.CallToolResult, FindResult, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, FindResult{}, fmt.Errorf("query is required")
		}
		limit := input.Limit
		if limit <= 0 {
			limit = defaultFindLimit
		}
		if limit > maxFindLimit {
			limit = maxFindLimit
		}

		matches := findOracles(s.cfg.Engine.Dataset(), query, limit)
		result := FindResult{Matches: matches}
		if len(matches) == 0 {
			result.Matches = []OracleSummary{}
			result.Suggestions = s.cfg.Engine.Dataset().Suggest(query, 5)
		}
		return nil, result, nil
	}
}

func (s *Server) shortcutsHandler() mcp.ToolHandlerFor[ShortcutsInput, ShortcutsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ ShortcutsInput) (*mcp.CallToolResult, ShortcutsResult, error) {
		defs := s.cfg.Shortcuts.List()
		result := ShortcutsResult{Shortcuts: make([]ShortcutSummary, 0, len(defs))}
		for _, def := range defs {
			result.Shortcuts = append(result.Shortcuts, ShortcutSummary{
				Key:        def.Key,
				Name:       def.Name,
				Directives: len(def.Directives),
			})
		}
		return nil, result, nil
	}
}

func (s *Server) logHandler() mcp.ToolHandlerFor[LogInput, LogResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LogInput) (*mcp.CallToolResult, LogResult, error) {
		if s.cfg.History != nil {
			page, err := s.cfg.History.ListEntries(ctx, history.ListOptions{
				Filter:    input.Filter,
				PageSize:  input.PageSize,
				PageToken: input.PageToken,
			})
			if err != nil {
				return nil, LogResult{}, userError(err, s.cfg.Language)
			}
			result := LogResult{Entries: make([]EntryResult, 0, len(page.Entries)), NextPageToken: page.NextPageToken}
			for _, entry := range page.Entries {
				result.Entries = append(result.Entries, entryFromHistory(entry))
			}
			return nil, result, nil
		}

		if input.Filter != "" || input.PageToken != "" {
			return nil, LogResult{}, fmt.Errorf("filters and page tokens need a history database")
		}
		entries := s.cfg.Engine.Log()
		limit := input.PageSize
		if limit <= 0 {
			limit = history.PageSizes.Default
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}
		result := LogResult{Entries: make([]EntryResult, 0, len(entries))}
		for _, entry := range entries {
			result.Entries = append(result.Entries, entryFromLog(entry))
		}
		return nil, result, nil
	}
}

func (s *Server) language(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	if s.cfg.Language != "" {
		return s.cfg.Language
	}
	return catalog.BaseLocale
}

func (s *Server) region(requested string) (dataset.Region, error) {
	region, err := dataset.ParseRegion(requested)
	if err != nil {
		return "", err
	}
	if region == "" {
		return s.cfg.Region, nil
	}
	return region, nil
}

func (s *Server) lookup(query string) (dataset.Node, error) {
	if node, ok := s.cfg.Engine.Dataset().Resolve(query); ok {
		return node, nil
	}
	return nil, apperrors.WithMetadata(
		apperrors.CodeOracleNotFound,
		fmt.Sprintf("oracle %q not found", query),
		map[string]string{"ID": query},
	)
}

func (s *Server) notFound(err error, query string, lang string) error {
	message := apperrors.UserMessage(err, lang)
	suggestions := s.cfg.Engine.Dataset().Suggest(query, 3)
	if len(suggestions) == 0 {
		return errors.New(message)
	}
	heading := catalog.Default().Text(lang, "find.suggestions")
	return fmt.Errorf("%s %s %s", message, heading, strings.Join(suggestions, ", "))
}

func userError(err error, lang string) error {
	return errors.New(apperrors.UserMessage(err, lang))
}

// findOracles lists rollable oracles whose identifier contains query.
// Region shards are reported once, as their parent collection.
func findOracles(ds *dataset.Dataset, query string, limit int) []OracleSummary {
	needle := strings.ToLower(query)
	seen := map[string]bool{}
	var out []OracleSummary
	for _, table := range ds.Tables() {
		if len(out) >= limit {
			break
		}
		summary := OracleSummary{ID: table.ID, Name: table.Name, Rows: len(table.Rows)}
		if parent, ok := ds.Lookup(path.Dir(table.ID)); ok && dataset.IsRegionSharded(parent) {
			summary = OracleSummary{ID: parent.OracleID(), Name: parent.OracleName(), RegionSharded: true}
		}
		if seen[summary.ID] || !strings.Contains(strings.ToLower(summary.ID), needle) {
			continue
		}
		seen[summary.ID] = true
		out = append(out, summary)
	}
	return out
}

func recordResult(record engine.RollRecord) RecordResult {
	return RecordResult{
		OracleID:       record.OracleID,
		OracleName:     record.OracleName,
		Roll:           record.Roll,
		Result:         record.Result,
		OriginalResult: record.OriginalResult,
		References:     record.References,
	}
}

func entryFromLog(entry engine.LogEntry) EntryResult {
	out := EntryResult{
		ID:             entry.ID,
		OracleID:       entry.OracleID,
		OracleName:     entry.OracleName,
		Roll:           entry.Roll,
		Result:         entry.Result,
		OriginalResult: entry.OriginalResult,
		References:     entry.References,
		Shortcut:       entry.Shortcut,
		Region:         string(entry.Region),
		Language:       entry.Language,
		CreatedAt:      entry.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, child := range entry.Children {
		out.Children = append(out.Children, recordResult(child))
	}
	return out
}

func entryFromHistory(entry history.Entry) EntryResult {
	out := EntryResult{
		ID:             entry.ID,
		OracleID:       entry.OracleID,
		OracleName:     entry.OracleName,
		Roll:           entry.Roll,
		Result:         entry.Result,
		OriginalResult: entry.OriginalResult,
		Shortcut:       entry.Shortcut,
		Region:         entry.Region,
		Language:       entry.Language,
		CreatedAt:      entry.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, child := range entry.Children {
		out.Children = append(out.Children, RecordResult{
			OracleID:       child.OracleID,
			OracleName:     child.OracleName,
			Roll:           child.Roll,
			Result:         child.Result,
			OriginalResult: child.OriginalResult,
		})
	}
	return out
}

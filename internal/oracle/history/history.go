// Package history defines the persisted roll log used by the commands. The
// engine keeps its own session log; history outlives the session.
package history

import (
	"context"
	"time"

	"github.com/louisbranch/oracles/internal/oracle/engine"
	"github.com/louisbranch/oracles/internal/platform/pagination"
)

// Page size and order defaults for ListEntries.
var (
	PageSizes = pagination.PageSizeConfig{Default: 20, Max: 200}
	OrderBys  = pagination.OrderByConfig{
		Default: OrderNewestFirst,
		Allowed: []string{OrderNewestFirst, OrderOldestFirst},
	}
)

const (
	OrderNewestFirst = "created_at desc"
	OrderOldestFirst = "created_at"
)

// Record is one persisted roll record.
type Record struct {
	OracleID       string `json:"oracle_id"`
	OracleName     string `json:"oracle_name"`
	Roll           int    `json:"roll"`
	Result         string `json:"result"`
	OriginalResult string `json:"original_result,omitempty"`
}

// Entry is one persisted top-level log entry with its flat child list.
type Entry struct {
	// Seq is assigned by the store.
	Seq      int64  `json:"seq,omitempty"`
	ID       string `json:"id"`
	Shortcut string `json:"shortcut,omitempty"`
	Region   string `json:"region,omitempty"`
	Language string `json:"language,omitempty"`
	Record
	Children  []Record  `json:"children,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions selects a page of entries.
type ListOptions struct {
	// Filter is an AIP-160 expression over oracle_id, oracle_name, roll,
	// shortcut, region and created_at.
	Filter    string
	PageSize  int
	OrderBy   string
	PageToken string
}

// Page is one page of entries.
type Page struct {
	Entries       []Entry
	NextPageToken string
}

// Store persists entries.
type Store interface {
	SaveEntry(ctx context.Context, entry Entry) error
	ListEntries(ctx context.Context, opts ListOptions) (Page, error)
	// Clear deletes every entry and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// FromLogEntry converts an engine entry. Nested children, if any, are
// flattened in order.
func FromLogEntry(entry engine.LogEntry) Entry {
	out := Entry{
		ID:        entry.ID,
		Shortcut:  entry.Shortcut,
		Region:    string(entry.Region),
		Language:  entry.Language,
		Record:    fromRecord(entry.RollRecord),
		CreatedAt: entry.CreatedAt,
	}
	var walk func(records []engine.RollRecord)
	walk = func(records []engine.RollRecord) {
		for _, record := range records {
			out.Children = append(out.Children, fromRecord(record))
			walk(record.Children)
		}
	}
	walk(entry.Children)
	return out
}

func fromRecord(record engine.RollRecord) Record {
	return Record{
		OracleID:       record.OracleID,
		OracleName:     record.OracleName,
		Roll:           record.Roll,
		Result:         record.Result,
		OriginalResult: record.OriginalResult,
	}
}

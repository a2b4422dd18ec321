package history

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/engine"
)

func TestFromLogEntry(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	entry := engine.LogEntry{
		RollRecord: engine.RollRecord{
			ID:             "e1",
			OracleID:       "t/a",
			OracleName:     "A",
			Roll:           12,
			Result:         "Ação",
			OriginalResult: "Action",
			References:     []string{"t/b"},
			Children: []engine.RollRecord{
				{OracleID: "t/b", OracleName: "B", Roll: 3, Result: "b", OriginalResult: "b",
					Children: []engine.RollRecord{{OracleID: "t/c", Roll: 4, Result: "c"}}},
			},
		},
		Shortcut:  "",
		Region:    dataset.RegionOutlands,
		Language:  "pt-BR",
		CreatedAt: created,
	}

	want := Entry{
		ID:       "e1",
		Region:   "outlands",
		Language: "pt-BR",
		Record:   Record{OracleID: "t/a", OracleName: "A", Roll: 12, Result: "Ação", OriginalResult: "Action"},
		Children: []Record{
			{OracleID: "t/b", OracleName: "B", Roll: 3, Result: "b", OriginalResult: "b"},
			{OracleID: "t/c", Roll: 4, Result: "c"},
		},
		CreatedAt: created,
	}
	if diff := cmp.Diff(want, FromLogEntry(entry)); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

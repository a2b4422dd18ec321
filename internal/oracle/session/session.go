// Package session assembles the dataset, engine, shortcuts and optional
// history a command works with.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/engine"
	"github.com/louisbranch/oracles/internal/oracle/history"
	"github.com/louisbranch/oracles/internal/oracle/history/sqlite"
	"github.com/louisbranch/oracles/internal/oracle/rulesets"
	"github.com/louisbranch/oracles/internal/oracle/shortcut"
	"github.com/louisbranch/oracles/internal/oracle/translation"
	"github.com/louisbranch/oracles/internal/platform/random"
)

// Options selects what Open loads.
type Options struct {
	GameMode      string
	Region        string
	Language      string
	DataDir       string
	ShortcutsFile string
	HistoryDB     string
	// Seed pins the dice. Nil draws a fresh seed.
	Seed     *int64
	MaxDepth int
	Logger   *log.Logger
}

// Session holds everything a command needs to roll.
type Session struct {
	Mode         rulesets.Mode
	Region       dataset.Region
	Language     string
	Seed         int64
	Engine       *engine.Engine
	Shortcuts    *shortcut.Registry
	Translations *translation.Catalog
	// History is nil unless a database was configured.
	History history.Store
	Logger  *log.Logger
}

// Open loads the configured dataset and wires the engine around it.
func Open(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	mode, err := rulesets.ParseMode(opts.GameMode)
	if err != nil {
		return nil, err
	}
	region, err := dataset.ParseRegion(opts.Region)
	if err != nil {
		return nil, err
	}
	ds, err := rulesets.Open(mode, opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load oracles: %w", err)
	}
	translations, err := translation.Embedded()
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	seed, source, err := random.ResolveSeed(opts.Seed, nil)
	if err != nil {
		return nil, err
	}
	logger.Printf("dice seed %d (%s)", seed, source)

	registry, err := shortcut.NewRegistry(shortcut.Builtins(mode)...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.ShortcutsFile) != "" {
		defs, err := shortcut.LoadLua(opts.ShortcutsFile)
		if err != nil {
			return nil, err
		}
		if err := registry.Add(defs...); err != nil {
			return nil, err
		}
	}

	s := &Session{
		Mode:         mode,
		Region:       region,
		Language:     opts.Language,
		Seed:         seed,
		Shortcuts:    registry,
		Translations: translations,
		Logger:       logger,
	}
	s.Engine = engine.New(ds,
		engine.WithSeed(seed),
		engine.WithMaxDepth(opts.MaxDepth),
		engine.WithTranslator(translations),
		engine.WithLanguage(opts.Language),
		engine.WithLogger(logger),
	)

	if strings.TrimSpace(opts.HistoryDB) != "" {
		store, err := openStore(opts.HistoryDB)
		if err != nil {
			return nil, err
		}
		s.History = store
	}
	return s, nil
}

func openStore(path string) (history.Store, error) {
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	store, err := sqlite.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// Options returns the per-roll options for this session.
func (s *Session) Options() engine.RollOptions {
	return engine.RollOptions{Region: s.Region, Language: s.Language}
}

// Record saves entry when history is enabled. A failed save is logged; the
// roll already happened.
func (s *Session) Record(ctx context.Context, entry engine.LogEntry) {
	if s.History == nil {
		return
	}
	if err := s.History.SaveEntry(ctx, history.FromLogEntry(entry)); err != nil {
		s.Logger.Printf("save history entry %s: %v", entry.ID, err)
	}
}

// Close releases the history database.
func (s *Session) Close() error {
	if s == nil || s.History == nil {
		return nil
	}
	return s.History.Close()
}

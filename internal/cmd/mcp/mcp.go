// Package mcp parses the MCP command configuration and serves the oracle
// tools over stdio.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"

	oraclemcp "github.com/louisbranch/oracles/internal/oracle/mcp"
	"github.com/louisbranch/oracles/internal/oracle/session"
	"github.com/louisbranch/oracles/internal/platform/config"
)

// Config holds MCP command configuration.
type Config struct {
	GameMode      string `env:"ORACLES_GAME_MODE"      envDefault:"starforged"`
	Region        string `env:"ORACLES_REGION"`
	Language      string `env:"ORACLES_LANGUAGE"       envDefault:"en-US"`
	DataDir       string `env:"ORACLES_DATA_DIR"`
	ShortcutsFile string `env:"ORACLES_SHORTCUTS_FILE"`
	HistoryDB     string `env:"ORACLES_HISTORY_DB"`
	Seed          *int64 `env:"ORACLES_SEED"`
	MaxDepth      int    `env:"ORACLES_MAX_DEPTH"      envDefault:"8"`
}

// ParseConfig parses environment and flags into a Config. A nil environ
// reads the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvFrom(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.GameMode, "mode", cfg.GameMode, "game mode: starforged or classic")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "default region for rolls")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "default display language")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory of dataset files replacing the embedded oracles")
	fs.StringVar(&cfg.ShortcutsFile, "shortcuts", cfg.ShortcutsFile, "Lua script with extra shortcuts")
	fs.StringVar(&cfg.HistoryDB, "history-db", cfg.HistoryDB, "sqlite database for roll history")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum reference chain depth")
	fs.Func("seed", "dice seed for reproducible rolls", func(value string) error {
		seed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed %q", value)
		}
		cfg.Seed = &seed
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewServer opens a session and registers the oracle tools. The caller
// closes the returned session.
func NewServer(cfg Config, logger *log.Logger) (*oraclemcp.Server, *session.Session, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s, err := session.Open(session.Options{
		GameMode:      cfg.GameMode,
		Region:        cfg.Region,
		Language:      cfg.Language,
		DataDir:       cfg.DataDir,
		ShortcutsFile: cfg.ShortcutsFile,
		HistoryDB:     cfg.HistoryDB,
		Seed:          cfg.Seed,
		MaxDepth:      cfg.MaxDepth,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}
	server, err := oraclemcp.New(oraclemcp.Config{
		Engine:    s.Engine,
		Shortcuts: s.Shortcuts,
		History:   s.History,
		Region:    s.Region,
		Language:  s.Language,
		Logger:    logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return server, s, nil
}

// Run serves the oracle tools on stdio until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	server, s, err := NewServer(cfg, log.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("close history: %v", err)
		}
	}()
	return server.Run(ctx)
}

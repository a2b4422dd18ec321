// Package oracle parses the oracle command configuration and runs its
// subcommands.
package oracle

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/session"
	"github.com/louisbranch/oracles/internal/platform/config"
	"github.com/louisbranch/oracles/internal/platform/i18n/catalog"
)

// Subcommand names.
const (
	CommandRoll         = "roll"
	CommandShortcut     = "shortcut"
	CommandFind         = "find"
	CommandList         = "list"
	CommandShortcuts    = "shortcuts"
	CommandHistory      = "history"
	CommandClearHistory = "clear-history"
)

var commands = []string{
	CommandRoll,
	CommandShortcut,
	CommandFind,
	CommandList,
	CommandShortcuts,
	CommandHistory,
	CommandClearHistory,
}

// Config holds the oracle command configuration.
type Config struct {
	GameMode      string `env:"ORACLES_GAME_MODE"      envDefault:"starforged"`
	Region        string `env:"ORACLES_REGION"`
	Language      string `env:"ORACLES_LANGUAGE"       envDefault:"en-US"`
	DataDir       string `env:"ORACLES_DATA_DIR"`
	ShortcutsFile string `env:"ORACLES_SHORTCUTS_FILE"`
	HistoryDB     string `env:"ORACLES_HISTORY_DB"`
	Seed          *int64 `env:"ORACLES_SEED"`
	MaxDepth      int    `env:"ORACLES_MAX_DEPTH"      envDefault:"8"`

	JSON    bool
	Command string
	Args    []string
}

// ParseConfig loads environment defaults and then flags. A nil environ
// reads the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvFrom(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.GameMode, "mode", cfg.GameMode, "game mode: starforged or classic")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "region: terminus, outlands or expanse")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "display language")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory of dataset files replacing the embedded oracles")
	fs.StringVar(&cfg.ShortcutsFile, "shortcuts", cfg.ShortcutsFile, "Lua script with extra shortcuts")
	fs.StringVar(&cfg.HistoryDB, "history-db", cfg.HistoryDB, "sqlite database for roll history")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum reference chain depth")
	fs.BoolVar(&cfg.JSON, "json", false, "print JSON")
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

	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, fmt.Errorf("command is required (%s)", strings.Join(commands, ", "))
	}
	cfg.Command = rest[0]
	cfg.Args = rest[1:]
	return cfg, nil
}

// Run executes the configured subcommand.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	a, err := open(cfg, out, errOut)
	if err != nil {
		return err
	}
	defer a.close()

	switch cfg.Command {
	case CommandRoll:
		return a.roll(ctx, cfg.Args)
	case CommandShortcut:
		return a.shortcut(ctx, cfg.Args)
	case CommandFind:
		return a.find(cfg.Args)
	case CommandList:
		return a.list()
	case CommandShortcuts:
		return a.shortcuts()
	case CommandHistory:
		return a.history(ctx, cfg.Args)
	case CommandClearHistory:
		return a.clearHistory(ctx)
	default:
		return fmt.Errorf("unknown command %q (%s)", cfg.Command, strings.Join(commands, ", "))
	}
}

type app struct {
	*session.Session
	cfg      Config
	messages *catalog.Bundle
	out      io.Writer
}

func open(cfg Config, out io.Writer, errOut io.Writer) (*app, error) {
	logger := log.New(errOut, "[ORACLE] ", log.LstdFlags)
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
		return nil, err
	}
	return &app{Session: s, cfg: cfg, messages: catalog.Default(), out: out}, nil
}

func (a *app) close() {
	if err := a.Close(); err != nil {
		a.Logger.Printf("close history: %v", err)
	}
}

func (a *app) sprintf(key string, args ...any) string {
	return a.messages.Printer(a.cfg.Language).Sprintf(key, args...)
}

var errNoHistory = errors.New("history needs -history-db or ORACLES_HISTORY_DB")

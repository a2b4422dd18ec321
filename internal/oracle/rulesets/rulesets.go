// Package rulesets embeds the oracle datasets for each supported game.
package rulesets

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

// Mode selects a ruleset.
type Mode string

const (
	ModeStarforged Mode = "starforged"
	// ModeClassic is Ironsworn, whose oracle IDs start with "classic/".
	ModeClassic Mode = "classic"
)

// DefaultMode is used when no game mode is configured.
const DefaultMode = ModeStarforged

//go:embed data/*.json
var embedded embed.FS

// Modes lists the supported game modes.
func Modes() []Mode {
	return []Mode{ModeStarforged, ModeClassic}
}

// ParseMode validates a game mode name. "ironsworn" is accepted for classic.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return DefaultMode, nil
	case string(ModeStarforged):
		return ModeStarforged, nil
	case string(ModeClassic), "ironsworn":
		return ModeClassic, nil
	default:
		return "", apperrors.WithMetadata(
			apperrors.CodeGameModeUnknown,
			fmt.Sprintf("unknown game mode %q", value),
			map[string]string{"Mode": value},
		)
	}
}

// Load returns the embedded dataset for mode.
func Load(mode Mode) (*dataset.Dataset, error) {
	data, err := embedded.ReadFile("data/" + string(mode) + ".json")
	if err != nil {
		return nil, apperrors.WithMetadata(
			apperrors.CodeGameModeUnknown,
			fmt.Sprintf("no dataset for game mode %q", mode),
			map[string]string{"Mode": string(mode)},
		)
	}
	return dataset.Parse(bytes.NewReader(data), dataset.FormatJSON)
}

// LoadDir reads every dataset file under dir. It replaces the embedded data
// so homebrew packs can ship complete oracle trees.
func LoadDir(dir string, pattern string) (*dataset.Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeDatasetInvalid, "open data dir", map[string]string{"Path": dir}, err)
	}
	if !info.IsDir() {
		return nil, apperrors.WithMetadata(apperrors.CodeDatasetInvalid, fmt.Sprintf("%s is not a directory", dir), map[string]string{"Path": dir})
	}
	return dataset.LoadFS(os.DirFS(dir), pattern)
}

// Open picks LoadDir when dir is set and the embedded dataset otherwise.
func Open(mode Mode, dir string) (*dataset.Dataset, error) {
	if strings.TrimSpace(dir) != "" {
		return LoadDir(dir, "")
	}
	return Load(mode)
}

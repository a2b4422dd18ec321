package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Format selects the decoder for a dataset file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultPattern matches every dataset file below a directory.
const DefaultPattern = "**/*.{json,yaml,yml}"

type rawFile struct {
	ID      string             `json:"_id" yaml:"_id"`
	Name    string             `json:"name" yaml:"name"`
	Oracles map[string]rawNode `json:"oracles" yaml:"oracles"`
}

type rawNode struct {
	ID          string             `json:"_id" yaml:"_id"`
	Name        string             `json:"name" yaml:"name"`
	Rows        []rawRow           `json:"rows" yaml:"rows"`
	Oracles     []string           `json:"oracles" yaml:"oracles"`
	Contents    map[string]rawNode `json:"contents" yaml:"contents"`
	Collections map[string]rawNode `json:"collections" yaml:"collections"`
}

type rawRow struct {
	Min         *int            `json:"min" yaml:"min"`
	Max         *int            `json:"max" yaml:"max"`
	Text        string          `json:"text" yaml:"text"`
	Text2       string          `json:"text2" yaml:"text2"`
	Oracles     []string        `json:"oracles" yaml:"oracles"`
	OracleRolls []rawOracleRoll `json:"oracle_rolls" yaml:"oracle_rolls"`
}

type rawOracleRoll struct {
	Oracle string `json:"oracle" yaml:"oracle"`
	Times  int    `json:"times" yaml:"times"`
}

// Decode reads one dataset file and returns its root nodes, ordered by key.
func Decode(r io.Reader, format Format) ([]Node, error) {
	var file rawFile
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode json dataset: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode yaml dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}

	prefix := strings.TrimSpace(file.ID)
	if prefix != "" {
		prefix += "/oracles"
	}
	roots := make([]Node, 0, len(file.Oracles))
	for _, key := range sortedKeys(file.Oracles) {
		roots = append(roots, convert(file.Oracles[key], key, prefix))
	}
	return roots, nil
}

// Parse decodes one dataset and indexes it.
func Parse(r io.Reader, format Format) (*Dataset, error) {
	roots, err := Decode(r, format)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatasetInvalid, "decode dataset", err)
	}
	return New(roots...)
}

// LoadFS merges every file in fsys matching a doublestar pattern, in path
// order, into one dataset. DefaultPattern is used when pattern is empty.
func LoadFS(fsys fs.FS, pattern string) (*Dataset, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatasetInvalid, "glob dataset files", err)
	}
	sort.Strings(matches)

	var roots []Node
	for _, match := range matches {
		format, ok := formatFor(match)
		if !ok {
			continue
		}
		fileRoots, err := decodeFile(fsys, match, format)
		if err != nil {
			return nil, apperrors.WrapWithMetadata(
				apperrors.CodeDatasetInvalid,
				fmt.Sprintf("load dataset %s", match),
				map[string]string{"Path": match},
				err,
			)
		}
		roots = append(roots, fileRoots...)
	}
	if len(roots) == 0 {
		return nil, apperrors.New(apperrors.CodeDatasetEmpty, fmt.Sprintf("no oracles match %q", pattern))
	}
	return New(roots...)
}

func decodeFile(fsys fs.FS, name string, format Format) ([]Node, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

func formatFor(name string) (Format, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// convert builds a node; IDs missing from the source are derived from the
// parent ID and the key.
func convert(raw rawNode, key string, parentID string) Node {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = key
		if parentID != "" {
			id = parentID + "/" + key
		}
	}
	name := raw.Name
	if name == "" {
		name = key
	}

	if len(raw.Rows) == 0 && (len(raw.Contents) > 0 || len(raw.Collections) > 0) {
		collection := &Collection{ID: id, Name: name, References: raw.Oracles}
		for _, childKey := range sortedKeys(raw.Contents) {
			collection.Children = append(collection.Children, Child{
				Key:  childKey,
				Node: convert(raw.Contents[childKey], childKey, id),
			})
		}
		for _, childKey := range sortedKeys(raw.Collections) {
			collection.Children = append(collection.Children, Child{
				Key:  childKey,
				Node: convert(raw.Collections[childKey], childKey, id),
			})
		}
		return collection
	}

	table := &Table{ID: id, Name: name, Rows: make([]Row, 0, len(raw.Rows))}
	for _, rawRow := range raw.Rows {
		row := Row{
			Text:    rawRow.Text,
			Text2:   rawRow.Text2,
			Oracles: rawRow.Oracles,
		}
		if rawRow.Min != nil {
			row.Min = *rawRow.Min
		}
		if rawRow.Max != nil {
			row.Max = *rawRow.Max
		}
		for _, roll := range rawRow.OracleRolls {
			row.OracleRolls = append(row.OracleRolls, OracleRoll{Oracle: roll.Oracle, Times: roll.Times})
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func sortedKeys(nodes map[string]rawNode) []string {
	keys := make([]string, 0, len(nodes))
	for key := range nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

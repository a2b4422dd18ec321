// Package reference finds the other oracles a resolved row points at.
package reference

import (
	"regexp"
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
)

// linkPattern matches the inline markup [label](id:identifier).
var linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(id:([^)]+)\)`)

// Link is one inline reference found in result text.
type Link struct {
	Label string
	ID    string
}

// Links returns the inline links in text, in order of appearance.
func Links(text string) []Link {
	matches := linkPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	links := make([]Link, 0, len(matches))
	for _, match := range matches {
		links = append(links, Link{Label: match[1], ID: strings.TrimSpace(match[2])})
	}
	return links
}

// Extract unions a row's explicit oracle list, its inline links and its
// oracle_roll directives. Each identifier appears once, in first-seen order.
func Extract(row dataset.Row) []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range row.Oracles {
		add(id)
	}
	for _, link := range Links(row.Text) {
		add(link.ID)
	}
	for _, roll := range row.OracleRolls {
		add(roll.Oracle)
	}
	return ids
}

// Strip renders every inline link as its label.
func Strip(text string) string {
	return linkPattern.ReplaceAllString(text, "$1")
}

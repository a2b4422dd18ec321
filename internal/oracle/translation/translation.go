// Package translation overlays localized oracle names and results on top of
// the English dataset. It only affects display text.
package translation

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// SourceLocale is the language of the datasets themselves.
const SourceLocale = "en-US"

//go:embed overlays/*.yaml
var embeddedOverlays embed.FS

type overlayFile struct {
	Locale  string           `yaml:"locale"`
	Oracles map[string]entry `yaml:"oracles"`
}

type entry struct {
	Name string         `yaml:"name"`
	Rows map[int]string `yaml:"rows"`
}

// Catalog holds overlays per locale.
type Catalog struct {
	overlays map[string]map[string]entry
	tags     []language.Tag
	matcher  language.Matcher
}

// Embedded loads the overlays shipped with the binary.
func Embedded() (*Catalog, error) {
	return LoadFS(embeddedOverlays, "overlays")
}

// LoadFS reads every *.yaml overlay in dir.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob overlays: %w", err)
	}
	sort.Strings(paths)

	catalog := &Catalog{overlays: map[string]map[string]entry{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read overlay %s: %w", p, err)
		}
		var file overlayFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse overlay %s: %w", p, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			return nil, fmt.Errorf("overlay %s: locale is required", p)
		}
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("overlay %s: %w", p, err)
		}
		if _, exists := catalog.overlays[locale]; exists {
			return nil, fmt.Errorf("overlay %s: locale %q already loaded", p, locale)
		}
		catalog.overlays[locale] = file.Oracles
	}

	catalog.tags = []language.Tag{language.MustParse(SourceLocale)}
	for _, locale := range catalog.Locales() {
		if locale != SourceLocale {
			catalog.tags = append(catalog.tags, language.MustParse(locale))
		}
	}
	catalog.matcher = language.NewMatcher(catalog.tags)
	return catalog, nil
}

// Locales lists the locales with an overlay.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.overlays))
	for locale := range c.overlays {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Match negotiates the overlay locale for a requested language tag.
func (c *Catalog) Match(requested string) string {
	requested = strings.TrimSpace(requested)
	if c == nil || c.matcher == nil || requested == "" {
		return SourceLocale
	}
	desired, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(desired) == 0 {
		return SourceLocale
	}
	_, index, confidence := c.matcher.Match(desired...)
	if confidence == language.No {
		return SourceLocale
	}
	return c.tags[index].String()
}

func (c *Catalog) lookup(id string, lang string) (entry, bool) {
	if c == nil {
		return entry{}, false
	}
	overlay, ok := c.overlays[c.Match(lang)]
	if !ok {
		return entry{}, false
	}
	e, ok := overlay[id]
	return e, ok
}

// Name returns the localized oracle name, or fallback.
func (c *Catalog) Name(id string, fallback string, lang string) string {
	if e, ok := c.lookup(id, lang); ok && e.Name != "" {
		return e.Name
	}
	return fallback
}

// Result returns the localized text of the row starting at rowMin, or
// fallback. Rows are keyed by their minimum, not by the rolled value.
func (c *Catalog) Result(id string, rowMin int, fallback string, lang string) string {
	if e, ok := c.lookup(id, lang); ok {
		if text, ok := e.Rows[rowMin]; ok && text != "" {
			return text
		}
	}
	return fallback
}

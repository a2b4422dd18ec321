// Package shortcut defines composite roll macros: ordered directives that
// share a region and a category rolled earlier in the same macro.
package shortcut

import (
	"fmt"
	"strings"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

// Placeholders substituted into directive targets before lookup.
const (
	CategoryPlaceholder = "{category}"
	RegionPlaceholder   = "{region}"
)

// Role tags a directive that needs special handling by the composer.
type Role string

const (
	RoleNone Role = ""
	// RoleCategory rolls first and seeds the derived category.
	RoleCategory Role = "category"
	// RoleCharacterName picks its table from a pool of character name tables.
	RoleCharacterName Role = "character_name"
	// RoleSettlementName picks its table from a pool of settlement name tables.
	RoleSettlementName Role = "settlement_name"
)

// ParseRole validates a role name.
func ParseRole(value string) (Role, error) {
	switch role := Role(strings.TrimSpace(value)); role {
	case RoleNone, RoleCategory, RoleCharacterName, RoleSettlementName:
		return role, nil
	default:
		return "", fmt.Errorf("unknown directive role %q", value)
	}
}

// Context is what directives can depend on.
type Context struct {
	Region   dataset.Region
	Category string
}

// Predicate decides whether a directive runs.
type Predicate func(Context) bool

// Pool selects candidate tables by scanning the dataset instead of using a
// fixed target list.
type Pool struct {
	Prefixes []string
	Exact    []string
	Exclude  []string
}

// Match reports whether table belongs to the pool.
func (p Pool) Match(table *dataset.Table) bool {
	if table == nil {
		return false
	}
	for _, fragment := range p.Exclude {
		if strings.Contains(table.ID, fragment) {
			return false
		}
	}
	for _, exact := range p.Exact {
		if table.ID == exact {
			return true
		}
	}
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(table.ID, prefix) {
			return true
		}
	}
	return false
}

// Directive is one step of a shortcut.
type Directive struct {
	// Targets are candidate table IDs; one is chosen at random per roll.
	Targets []string
	// Count repeats the directive; zero means once.
	Count int
	Role  Role
	// Pool replaces Targets when it matches at least one table.
	Pool *Pool
	// Regions restricts the directive to these regions when non-empty.
	Regions []dataset.Region
	When    Predicate
}

// Times returns the repeat count.
func (d Directive) Times() int {
	if d.Count < 1 {
		return 1
	}
	return d.Count
}

// Applies evaluates the region filter and the predicate.
func (d Directive) Applies(ctx Context) bool {
	if len(d.Regions) > 0 {
		region := ctx.Region.OrDefault()
		matched := false
		for _, allowed := range d.Regions {
			if allowed == region {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if d.When != nil && !d.When(ctx) {
		return false
	}
	return true
}

// FollowUp runs extra directives when the derived category equals Category.
type FollowUp struct {
	Category   string
	Directives []Directive
}

// Definition is a named shortcut.
type Definition struct {
	Key  string
	Name string
	// DefaultCategory fills {category} when no category could be derived.
	DefaultCategory string
	Directives      []Directive
	FollowUps       []FollowUp
}

// Validate checks the definition can be executed.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Key) == "" {
		return apperrors.New(apperrors.CodeShortcutScriptInvalid, "shortcut key is required")
	}
	if len(d.Directives) == 0 {
		return apperrors.New(apperrors.CodeShortcutScriptInvalid, fmt.Sprintf("shortcut %q has no directives", d.Key))
	}
	categories := 0
	for i, directive := range d.Directives {
		if len(directive.Targets) == 0 && directive.Pool == nil {
			return apperrors.New(apperrors.CodeShortcutScriptInvalid, fmt.Sprintf("shortcut %q directive %d has no targets", d.Key, i+1))
		}
		if directive.Role == RoleCategory {
			categories++
		}
	}
	if categories > 1 {
		return apperrors.New(apperrors.CodeShortcutScriptInvalid, fmt.Sprintf("shortcut %q has %d category directives", d.Key, categories))
	}
	return nil
}

// CategoryDirective returns the first category-role directive.
func (d Definition) CategoryDirective() (Directive, bool) {
	for _, directive := range d.Directives {
		if directive.Role == RoleCategory {
			return directive, true
		}
	}
	return Directive{}, false
}

// CategoryPrefix returns the path before {category} in the first dependent
// target, e.g. "starforged/oracles/planets/". Row references under this
// prefix name the category directly.
func (d Definition) CategoryPrefix() string {
	for _, directive := range d.allDirectives() {
		for _, target := range directive.Targets {
			if idx := strings.Index(target, CategoryPlaceholder); idx > 0 {
				return target[:idx]
			}
		}
	}
	return ""
}

// FollowUpsFor returns the follow-up directives registered for category.
func (d Definition) FollowUpsFor(category string) []Directive {
	var out []Directive
	for _, followUp := range d.FollowUps {
		if followUp.Category != "" && strings.EqualFold(followUp.Category, category) {
			out = append(out, followUp.Directives...)
		}
	}
	return out
}

func (d Definition) allDirectives() []Directive {
	out := append([]Directive{}, d.Directives...)
	for _, followUp := range d.FollowUps {
		out = append(out, followUp.Directives...)
	}
	return out
}

// Substitute fills the placeholders in target from ctx. Empty context values
// leave the placeholder in place.
func Substitute(target string, ctx Context) string {
	if ctx.Category != "" {
		target = strings.ReplaceAll(target, CategoryPlaceholder, ctx.Category)
	}
	if ctx.Region != "" {
		target = strings.ReplaceAll(target, RegionPlaceholder, string(ctx.Region))
	}
	return target
}

// Literal fills the placeholders with the shortcut defaults: the default
// category and the default region.
func (d Definition) Literal(target string) string {
	return Substitute(target, Context{Region: dataset.DefaultRegion, Category: d.DefaultCategory})
}

// Package pagination normalizes history list requests and encodes the
// opaque page tokens that resume them.
package pagination

import "fmt"

// PageSizeConfig bounds how many history entries one page returns. Default
// applies when the caller asks for zero or fewer; Max caps larger requests.
type PageSizeConfig struct {
	Default int
	Max     int
}

// OrderByConfig lists the accepted history orderings, such as
// "created_at desc". Default applies when the caller names none.
type OrderByConfig struct {
	Default string
	Allowed []string
}

// ClampPageSize returns the entry count for a page. The result is never
// below one, so a misconfigured Default still makes progress.
func ClampPageSize(requested int, cfg PageSizeConfig) int {
	size := requested
	if size <= 0 {
		size = cfg.Default
	}
	if cfg.Max > 0 && size > cfg.Max {
		size = cfg.Max
	}
	return max(size, 1)
}

// NormalizeOrderBy returns the ordering to list history with, rejecting
// anything outside cfg.Allowed.
func NormalizeOrderBy(orderBy string, cfg OrderByConfig) (string, error) {
	if orderBy == "" {
		return cfg.Default, nil
	}
	for _, allowed := range cfg.Allowed {
		if orderBy == allowed {
			return orderBy, nil
		}
	}
	return "", fmt.Errorf("unsupported order %q, want one of %v", orderBy, cfg.Allowed)
}

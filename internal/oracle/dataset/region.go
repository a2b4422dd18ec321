package dataset

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Region selects one shard of a region-sharded collection.
type Region string

const (
	RegionTerminus Region = "terminus"
	RegionOutlands Region = "outlands"
	RegionExpanse  Region = "expanse"
)

// DefaultRegion is used to fill region templates when the caller gave none.
const DefaultRegion = RegionTerminus

// Regions lists the shard keys in display order.
func Regions() []Region {
	return []Region{RegionTerminus, RegionOutlands, RegionExpanse}
}

// ParseRegion validates a region name. The empty string means "no region".
func ParseRegion(value string) (Region, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	for _, region := range Regions() {
		if string(region) == value {
			return region, nil
		}
	}
	return "", apperrors.WithMetadata(
		apperrors.CodeRegionUnknown,
		fmt.Sprintf("unknown region %q", value),
		map[string]string{"Region": value},
	)
}

// Label returns the region name title-cased for display.
func (r Region) Label() string {
	return cases.Title(language.English).String(string(r))
}

// OrDefault returns r, or DefaultRegion when r is empty.
func (r Region) OrDefault() Region {
	if r == "" {
		return DefaultRegion
	}
	return r
}

// IsRegionSharded reports whether node is a collection holding one child per
// region. Such a collection is offered as a single rollable unit.
func IsRegionSharded(node Node) bool {
	collection, ok := node.(*Collection)
	if !ok || collection == nil {
		return false
	}
	for _, region := range Regions() {
		if _, ok := collection.Child(string(region)); !ok {
			return false
		}
	}
	return true
}

// RegionTable returns the shard of node for region when it has rows.
func RegionTable(node Node, region Region) (*Table, bool) {
	if region == "" || !IsRegionSharded(node) {
		return nil, false
	}
	child, _ := node.(*Collection).Child(string(region))
	table, ok := child.(*Table)
	if !ok || !table.Rollable() {
		return nil, false
	}
	return table, true
}

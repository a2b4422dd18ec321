package dataset

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

// Dataset is an immutable, indexed oracle tree. It is safe for concurrent
// readers because nothing mutates it after New returns.
type Dataset struct {
	roots []Node
	index map[string]Node
	walk  []Node
}

// New indexes roots. Every node ID must be unique across the tree.
func New(roots ...Node) (*Dataset, error) {
	ds := &Dataset{index: map[string]Node{}}
	for _, root := range roots {
		if root == nil {
			continue
		}
		if err := ds.add(root); err != nil {
			return nil, err
		}
		ds.roots = append(ds.roots, root)
	}
	return ds, nil
}

func (ds *Dataset) add(node Node) error {
	id := node.OracleID()
	if strings.TrimSpace(id) == "" {
		return apperrors.New(apperrors.CodeDatasetInvalid, fmt.Sprintf("oracle %q has no id", node.OracleName()))
	}
	if _, exists := ds.index[id]; exists {
		return apperrors.WithMetadata(
			apperrors.CodeDatasetDuplicateID,
			fmt.Sprintf("duplicate oracle id %q", id),
			map[string]string{"ID": id},
		)
	}
	ds.index[id] = node
	ds.walk = append(ds.walk, node)
	if collection, ok := node.(*Collection); ok {
		for _, child := range collection.Children {
			if child.Node == nil {
				continue
			}
			if err := ds.add(child.Node); err != nil {
				return err
			}
		}
	}
	return nil
}

// Roots returns the top-level nodes in load order.
func (ds *Dataset) Roots() []Node {
	out := make([]Node, len(ds.roots))
	copy(out, ds.roots)
	return out
}

// Lookup returns any node, table or collection, by exact ID.
func (ds *Dataset) Lookup(id string) (Node, bool) {
	node, ok := ds.index[id]
	return node, ok
}

// FindOracleByID returns the rollable table with exactly this ID.
func (ds *Dataset) FindOracleByID(id string) (*Table, bool) {
	table, ok := ds.index[id].(*Table)
	if !ok || !table.Rollable() {
		return nil, false
	}
	return table, true
}

// FindPartial tries an exact match first, then the first rollable table in
// walk order whose ID contains id or is contained in it.
func (ds *Dataset) FindPartial(id string) (*Table, bool) {
	if table, ok := ds.FindOracleByID(id); ok {
		return table, true
	}
	if strings.TrimSpace(id) == "" {
		return nil, false
	}
	for _, node := range ds.walk {
		table, ok := node.(*Table)
		if !ok || !table.Rollable() {
			continue
		}
		if strings.Contains(table.ID, id) || strings.Contains(id, table.ID) {
			return table, true
		}
	}
	return nil, false
}

// Resolve finds something a roll can start from: an exact rollable table, an
// exact region-sharded collection, or a partial table match.
func (ds *Dataset) Resolve(query string) (Node, bool) {
	query = strings.TrimSpace(query)
	if node, ok := ds.index[query]; ok {
		if table, isTable := node.(*Table); (isTable && table.Rollable()) || IsRegionSharded(node) {
			return node, true
		}
	}
	if table, ok := ds.FindPartial(query); ok {
		return table, true
	}
	return nil, false
}

// Tables returns every rollable table in walk order.
func (ds *Dataset) Tables() []*Table {
	return ds.TablesWhere(nil)
}

// TablesWhere returns the rollable tables accepted by match, in walk order.
func (ds *Dataset) TablesWhere(match func(*Table) bool) []*Table {
	var out []*Table
	for _, node := range ds.walk {
		table, ok := node.(*Table)
		if !ok || !table.Rollable() {
			continue
		}
		if match == nil || match(table) {
			out = append(out, table)
		}
	}
	return out
}

// AskTheOracle returns the rollable yes/no tables, which live in an
// ask_the_oracle collection either under the moves root or at the top level.
func (ds *Dataset) AskTheOracle() []*Table {
	collection := ds.askTheOracleCollection()
	if collection == nil {
		return nil
	}
	var out []*Table
	for _, child := range collection.Children {
		if table, ok := child.Node.(*Table); ok && table.Rollable() {
			out = append(out, table)
		}
	}
	return out
}

// Browsable returns the roots a navigator should list, leaving out the
// ask-the-oracle collection and the moves root that holds it.
func (ds *Dataset) Browsable() []Node {
	ask := ds.askTheOracleCollection()
	var out []Node
	for _, root := range ds.roots {
		if ask != nil && root == Node(ask) {
			continue
		}
		if collection, ok := root.(*Collection); ok && isMovesRoot(collection) && ask != nil {
			if child, ok := collection.Child("ask_the_oracle"); ok && child == Node(ask) {
				continue
			}
		}
		out = append(out, root)
	}
	return out
}

// Members returns the children of c followed by the nodes its references
// name. Unknown references and nodes already listed are skipped.
func (ds *Dataset) Members(c *Collection) []Node {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.Children)+len(c.References))
	out := make([]Node, 0, len(c.Children)+len(c.References))
	for _, child := range c.Children {
		seen[child.Node.OracleID()] = struct{}{}
		out = append(out, child.Node)
	}
	for _, id := range c.References {
		if _, ok := seen[id]; ok {
			continue
		}
		node, ok := ds.Lookup(id)
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, node)
	}
	return out
}

func (ds *Dataset) askTheOracleCollection() *Collection {
	for _, root := range ds.roots {
		collection, ok := root.(*Collection)
		if !ok || !isMovesRoot(collection) {
			continue
		}
		if child, ok := collection.Child("ask_the_oracle"); ok {
			if ask, ok := child.(*Collection); ok {
				return ask
			}
		}
	}
	for _, root := range ds.roots {
		collection, ok := root.(*Collection)
		if ok && (strings.Contains(collection.ID, "ask_the_oracle") || collection.Name == "Ask the Oracle") {
			return collection
		}
	}
	return nil
}

func isMovesRoot(collection *Collection) bool {
	return strings.Contains(collection.ID, "moves") || collection.Name == "Moves"
}

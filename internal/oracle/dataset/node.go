// Package dataset is the typed, read-only view over a Datasworn-style oracle
// tree: tables with rows, collections of tables, and the region shards that
// Starforged uses for location-dependent oracles.
package dataset

// OracleRoll is a structured "roll this other table" directive on a row.
type OracleRoll struct {
	Oracle string
	Times  int
}

// Row is one outcome of a table. Max is zero when the row is a singleton.
type Row struct {
	Min         int
	Max         int
	Text        string
	Text2       string
	Oracles     []string
	OracleRolls []OracleRoll
}

// Display joins the second result column to the text when present.
func (r Row) Display() string {
	if r.Text2 == "" {
		return r.Text
	}
	if r.Text == "" {
		return r.Text2
	}
	return r.Text + " / " + r.Text2
}

// Singleton reports whether the row covers exactly one value.
func (r Row) Singleton() bool {
	return r.Max == 0 || r.Max == r.Min
}

// Node is either a *Table or a *Collection.
type Node interface {
	OracleID() string
	OracleName() string
}

// Table is a rollable oracle.
type Table struct {
	ID   string
	Name string
	Rows []Row
}

// OracleID returns the table identifier.
func (t *Table) OracleID() string { return t.ID }

// OracleName returns the display name.
func (t *Table) OracleName() string { return t.Name }

// Rollable reports whether the table has rows to sample.
func (t *Table) Rollable() bool {
	return t != nil && len(t.Rows) > 0
}

// Child is a keyed entry of a collection.
type Child struct {
	Key  string
	Node Node
}

// Collection groups tables and sub-collections. It is never rolled itself.
type Collection struct {
	ID         string
	Name       string
	Children   []Child
	References []string
}

// OracleID returns the collection identifier.
func (c *Collection) OracleID() string { return c.ID }

// OracleName returns the display name.
func (c *Collection) OracleName() string { return c.Name }

// Child returns the direct child stored under key.
func (c *Collection) Child(key string) (Node, bool) {
	if c == nil {
		return nil, false
	}
	for _, child := range c.Children {
		if child.Key == key {
			return child.Node, true
		}
	}
	return nil, false
}

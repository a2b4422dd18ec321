// Package dice maps die rolls onto oracle rows.
package dice

import (
	"math/rand"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
)

// DefaultSides is the die used when a table declares no bound under 100.
const DefaultSides = 100

// Roller draws integers in [0, n).
type Roller interface {
	Intn(n int) int
}

// NewRoller returns a seeded math/rand source. The same seed replays the same
// sequence of rolls.
func NewRoller(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Roll returns a uniform value in [1, sides]. Sides below 1 are treated as 1.
func Roll(roller Roller, sides int) int {
	if sides < 1 {
		sides = 1
	}
	return roller.Intn(sides) + 1
}

// Resolve returns the first row, in declaration order, matching roll. A
// singleton row matches only its minimum; any other row matches the
// inclusive range [Min, Max].
func Resolve(roll int, rows []dataset.Row) (dataset.Row, bool) {
	for _, row := range rows {
		if row.Singleton() {
			if roll == row.Min {
				return row, true
			}
			continue
		}
		if roll >= row.Min && roll <= row.Max {
			return row, true
		}
	}
	return dataset.Row{}, false
}

// MaxRoll sizes the die for rows: the largest declared bound (Max, else Min)
// when it is below 100, otherwise 100. Empty tables roll a d100.
func MaxRoll(rows []dataset.Row) int {
	if len(rows) == 0 {
		return DefaultSides
	}
	largest := 0
	for _, row := range rows {
		bound := row.Max
		if bound == 0 {
			bound = row.Min
		}
		if bound > largest {
			largest = bound
		}
	}
	if largest >= DefaultSides {
		return DefaultSides
	}
	if largest < 1 {
		return 1
	}
	return largest
}

// Sequence replays fixed die values, cycling when exhausted. Values are
// the rolled faces, so Sequence{3} makes Roll return 3 for any die of at
// least three sides.
type Sequence struct {
	Values []int
	next   int
}

// Intn implements Roller.
func (s *Sequence) Intn(n int) int {
	if len(s.Values) == 0 || n <= 0 {
		return 0
	}
	value := s.Values[s.next%len(s.Values)] - 1
	s.next++
	if value < 0 {
		value = 0
	}
	if value >= n {
		value = n - 1
	}
	return value
}

package grid

import "sort"

// Direction is the tri-state sort direction. The zero value means unsorted.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// SortState is the single active sort of a grid.
type SortState struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// Active reports whether the state sorts anything.
func (s SortState) Active() bool {
	return s.Key != "" && s.Direction != DirectionNone
}

// NextSort returns the state after activating the sort of key. Repeated
// activation of one key cycles unset, asc, desc, unset. Activating another
// key starts over at asc.
func NextSort(current SortState, key string) SortState {
	if current.Key != key {
		return SortState{Key: key, Direction: DirectionAsc}
	}
	switch current.Direction {
	case DirectionNone:
		return SortState{Key: key, Direction: DirectionAsc}
	case DirectionAsc:
		return SortState{Key: key, Direction: DirectionDesc}
	default:
		return SortState{}
	}
}

// SortRows returns a stably sorted copy of rows. An inactive state returns
// rows unchanged. Nil values stay last in both directions.
func SortRows(rows []Row, state SortState) []Row {
	if !state.Active() {
		return rows
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i][state.Key], sorted[j][state.Key]
		nilA, nilB := kindOf(a) == kindNil, kindOf(b) == kindNil
		if nilA || nilB {
			return !nilA && nilB
		}
		c := compareValues(a, b)
		if state.Direction == DirectionDesc {
			c = -c
		}
		return c < 0
	})
	return sorted
}

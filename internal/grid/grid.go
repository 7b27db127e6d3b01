package grid

import (
	"fmt"
	"strings"
)

// Card geometry, matching the fixed card widget size plus its margins.
const (
	CardWidth         = 340
	CardHeight        = 240
	HorizontalSpacing = 10
	VerticalSpacing   = 10
	LeftMargin        = 10
	RightMargin       = 10

	// DefaultColumns is the column count used when the caller has no
	// better idea.
	DefaultColumns = 4
)

// Item is the slice of card state the presenter needs. The presenter never
// sees or mutates live pipeline state.
type Item struct {
	Identity string
	Title    string
	Channel  string
	Pinned   bool
}

// Placement assigns one item a cell in the grid, 0-indexed, row-major.
type Placement struct {
	Item Item
	Row  int
	Col  int
}

// Matches reports whether item survives filterText: a case-insensitive
// substring match against title or channel. The empty filter matches
// everything.
func Matches(item Item, filterText string) bool {
	if filterText == "" {
		return true
	}
	needle := strings.ToLower(filterText)
	return strings.Contains(strings.ToLower(item.Title), needle) ||
		strings.Contains(strings.ToLower(item.Channel), needle)
}

// Layout filters items, partitions pinned before unpinned (stable: relative
// order within each partition is the input order), and assigns row-major
// cells. It returns the placements and the overall content width in pixels.
//
// Layout is deterministic and side-effect-free; any randomization of the
// initial ordering happens once per reload in the scanner, never here.
func Layout(items []Item, filterText string, columns int) ([]Placement, int) {
	if columns < 1 {
		columns = 1
	}

	var pinned, unpinned []Item
	for _, item := range items {
		if !Matches(item, filterText) {
			continue
		}
		if item.Pinned {
			pinned = append(pinned, item)
		} else {
			unpinned = append(unpinned, item)
		}
	}

	ordered := make([]Item, 0, len(pinned)+len(unpinned))
	ordered = append(ordered, pinned...)
	ordered = append(ordered, unpinned...)

	placements := make([]Placement, len(ordered))
	for i, item := range ordered {
		placements[i] = Placement{
			Item: item,
			Row:  i / columns,
			Col:  i % columns,
		}
	}

	return placements, ContentWidth(columns)
}

// ContentWidth returns the pixel width of a grid with the given column
// count.
func ContentWidth(columns int) int {
	if columns < 1 {
		columns = 1
	}
	return columns*CardWidth + (columns-1)*HorizontalSpacing + LeftMargin + RightMargin
}

// FormatDuration renders seconds as MM:SS, or HH:MM:SS from one hour up,
// for the card's duration pill.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

package engine

import "github.com/rivo/uniseg"

// graphemeCount counts user-perceived characters rather than bytes or
// runes, so a username or message built from combining marks or emoji
// sequences is measured the way a person reading it would (spec.md §3,
// "length limits are measured in grapheme clusters").
func graphemeCount(s string) int {
	count := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		count++
	}
	return count
}

package election

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

// DistrictRef is one selectable district.
type DistrictRef struct {
	Number int    `json:"number"` // 1-based, equals the Wahlkreis number
	Name   string `json:"name"`
	Label  string `json:"label"`  // "{Number} - {Name}"
	Offset int    `json:"-"`      // region offset in the results tree
}

// Index maps district labels to region offsets. It is built once per
// snapshot and never modified.
type Index struct {
	refs    []DistrictRef
	byLabel map[string]int
	folded  []string
}

// FormatLabel renders the dropdown label of a district.
func FormatLabel(number int, name string) string {
	return fmt.Sprintf("%d - %s", number, name)
}

// BuildIndex numbers the regions from layout.FirstDistrict on, starting at 1.
func BuildIndex(tree *results.Tree, layout results.Layout) (*Index, error) {
	if tree == nil || len(tree.Regions) <= layout.FirstDistrict {
		return nil, fmt.Errorf("%w: no district regions after offset %d", results.ErrShape, layout.FirstDistrict)
	}

	idx := &Index{
		byLabel: make(map[string]int, len(tree.Regions)-layout.FirstDistrict),
	}
	for off := layout.FirstDistrict; off < len(tree.Regions); off++ {
		n := off - layout.FirstDistrict + 1
		name := strings.TrimSpace(tree.Regions[off].Name)
		ref := DistrictRef{Number: n, Name: name, Label: FormatLabel(n, name), Offset: off}

		if _, dup := idx.byLabel[ref.Label]; dup {
			return nil, fmt.Errorf("%w: duplicate district label %q", results.ErrShape, ref.Label)
		}
		idx.byLabel[ref.Label] = len(idx.refs)
		idx.refs = append(idx.refs, ref)
		idx.folded = append(idx.folded, fold(ref.Label))
	}
	return idx, nil
}

// Len is the number of districts.
func (x *Index) Len() int { return len(x.refs) }

// Refs returns all districts in document order.
func (x *Index) Refs() []DistrictRef {
	out := make([]DistrictRef, len(x.refs))
	copy(out, x.refs)
	return out
}

// Labels returns the dropdown domain in document order.
func (x *Index) Labels() []string {
	out := make([]string, len(x.refs))
	for i, r := range x.refs {
		out[i] = r.Label
	}
	return out
}

// Offset resolves a label to its region offset.
func (x *Index) Offset(label string) (int, bool) {
	i, ok := x.byLabel[label]
	if !ok {
		return 0, false
	}
	return x.refs[i].Offset, true
}

// Lookup resolves a label to its district.
func (x *Index) Lookup(label string) (DistrictRef, bool) {
	i, ok := x.byLabel[label]
	if !ok {
		return DistrictRef{}, false
	}
	return x.refs[i], true
}

// ByNumber resolves a Wahlkreis number.
func (x *Index) ByNumber(n int) (DistrictRef, bool) {
	if n < 1 || n > len(x.refs) {
		return DistrictRef{}, false
	}
	return x.refs[n-1], true
}

// Search returns districts whose label contains query, ignoring case.
// An empty query returns everything.
func (x *Index) Search(query string) []DistrictRef {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return x.Refs()
	}
	var out []DistrictRef
	for i, f := range x.folded {
		if strings.Contains(f, q) {
			out = append(out, x.refs[i])
		}
	}
	return out
}

// Suggest returns up to n labels closest to label by edit distance.
func (x *Index) Suggest(label string, n int) []string {
	if n <= 0 || len(x.refs) == 0 {
		return nil
	}
	q := fold(label)

	type scored struct {
		i    int
		dist int
	}
	all := make([]scored, len(x.refs))
	for i := range x.refs {
		all[i] = scored{i: i, dist: levenshtein.ComputeDistance(q, x.folded[i])}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })

	if n > len(all) {
		n = len(all)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = x.refs[all[i].i].Label
	}
	return out
}

// fold case-folds s. Casers are stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

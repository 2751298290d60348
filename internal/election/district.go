package election

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

var ErrUnknownDistrict = errors.New("unknown district")

// Candidate is one ranked row of a district result.
type Candidate struct {
	Name  string  `json:"name"`  // "First Last"
	Party string  `json:"party"` // display name
	Share float64 `json:"share"` // first-vote percentage, 2 decimals
}

// DistrictResult is the first-vote breakdown of one district. It is computed
// per request and never cached.
type DistrictResult struct {
	Number     int         `json:"number"`
	Name       string      `json:"name"`
	Label      string      `json:"label"`
	Candidates []Candidate `json:"candidates"`
	Turnout    float64     `json:"turnout"`
	Margin     float64     `json:"margin"`
	Tier       Tier        `json:"tier"`
	Narrative  string      `json:"narrative"`
}

// Winner is the first-ranked candidate.
func (r DistrictResult) Winner() Candidate { return r.Candidates[0] }

// RunnerUp is the second-ranked candidate.
func (r DistrictResult) RunnerUp() Candidate { return r.Candidates[1] }

// DisplayNames maps party names in the results file to the names shown in
// district breakdowns.
type DisplayNames map[string]string

// DefaultDisplayNames spells out the Greens' official name.
func DefaultDisplayNames() DisplayNames {
	return DisplayNames{"GRÜNE": "BÜNDNIS 90/DIE GRÜNEN"}
}

func (d DisplayNames) lookup(party string) string {
	if full, ok := d[party]; ok {
		return full
	}
	return party
}

// Aggregator computes district results against one tree and index.
type Aggregator struct {
	Tree     *results.Tree
	Index    *Index
	Layout   results.Layout
	Names    DisplayNames
	Narrator Narrator
}

// Aggregate resolves label and builds its ranked result with narrative.
func (a Aggregator) Aggregate(label string) (DistrictResult, error) {
	ref, ok := a.Index.Lookup(label)
	if !ok {
		return DistrictResult{}, fmt.Errorf("%w: %q", ErrUnknownDistrict, label)
	}
	return a.aggregate(ref)
}

// AggregateNumber is Aggregate keyed by Wahlkreis number.
func (a Aggregator) AggregateNumber(n int) (DistrictResult, error) {
	ref, ok := a.Index.ByNumber(n)
	if !ok {
		return DistrictResult{}, fmt.Errorf("%w: number %d", ErrUnknownDistrict, n)
	}
	return a.aggregate(ref)
}

func (a Aggregator) aggregate(ref DistrictRef) (DistrictResult, error) {
	l := a.Layout
	cands := make([]Candidate, 0, l.CandidateSlots())

	for slot := l.CandidateFirst; slot <= l.CandidateLast; slot++ {
		g, err := a.Tree.Group(ref.Offset, slot)
		if err != nil {
			return DistrictResult{}, err
		}
		name, err := reverseName(g.Candidate)
		if err != nil {
			return DistrictResult{}, &results.ShapeError{Region: ref.Offset, Slot: slot, Reason: err.Error()}
		}
		share, err := a.Tree.Share(ref.Offset, slot, l.FirstVote)
		if err != nil {
			return DistrictResult{}, err
		}
		cands = append(cands, Candidate{Name: name, Party: g.Name, Share: share})
	}
	if len(cands) < 2 {
		return DistrictResult{}, &results.ShapeError{Region: ref.Offset, Slot: l.CandidateFirst, Reason: "need at least two candidates"}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Share > cands[j].Share })
	for i := range cands {
		cands[i].Share = round2(cands[i].Share)
		cands[i].Party = a.Names.lookup(cands[i].Party)
	}

	turnout, err := a.Tree.Share(ref.Offset, l.TurnoutSlot, 0)
	if err != nil {
		return DistrictResult{}, err
	}

	res := DistrictResult{
		Number:     ref.Number,
		Name:       ref.Name,
		Label:      ref.Label,
		Candidates: cands,
		Turnout:    round2(turnout),
		Margin:     round2(cands[0].Share - cands[1].Share),
	}
	res.Tier = SelectTier(res.Margin)

	text, err := a.Narrator.Narrate(res)
	if err != nil {
		return DistrictResult{}, err
	}
	res.Narrative = text
	return res, nil
}

// reverseName turns "Last, First" into "First Last".
func reverseName(raw string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ", ", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("Direktkandidat %q is not \"Last, First\"", raw)
	}
	return parts[1] + " " + parts[0], nil
}

package results

import "fmt"

// Layout is the positional contract with the publisher: which region holds
// the federal total, which group slots hold parties and candidates, and where
// districts start. The defaults match gesamtergebnis_05.xml for 2021.
type Layout struct {
	NationalRegion int `yaml:"national_region" validate:"gte=0"`

	// Party slots for the national second-vote table, inclusive.
	PartyFirst int `yaml:"party_first" validate:"gte=0"`
	PartyLast  int `yaml:"party_last" validate:"gtefield=PartyFirst"`

	// Candidate slots inside a district, inclusive.
	CandidateFirst int `yaml:"candidate_first" validate:"gte=0"`
	CandidateLast  int `yaml:"candidate_last" validate:"gtefield=CandidateFirst"`

	TurnoutSlot int `yaml:"turnout_slot" validate:"gte=0"`

	// Regions before this offset are federal and state aggregates.
	FirstDistrict int `yaml:"first_district" validate:"gte=1"`

	FirstVote  int `yaml:"first_vote" validate:"gte=0"`
	SecondVote int `yaml:"second_vote" validate:"gte=0"`
}

// DefaultLayout is the 2021 Bundestag layout.
func DefaultLayout() Layout {
	return Layout{
		NationalRegion: 0,
		PartyFirst:     4,
		PartyLast:      10,
		CandidateFirst: 4,
		CandidateLast:  8,
		TurnoutSlot:    1,
		FirstDistrict:  17,
		FirstVote:      0,
		SecondVote:     1,
	}
}

// PartySlots is the number of party slots read for the national table.
func (l Layout) PartySlots() int { return l.PartyLast - l.PartyFirst + 1 }

// CandidateSlots is the number of candidate rows per district.
func (l Layout) CandidateSlots() int { return l.CandidateLast - l.CandidateFirst + 1 }

// Validate checks the tree against the layout once, so that later lookups
// cannot fail on structure. Candidate names are not checked here; a district
// without a Direktkandidat in a slot fails only when that district is queried.
func (l Layout) Validate(t *Tree) error {
	if t == nil {
		return fmt.Errorf("%w: nil tree", ErrShape)
	}
	if len(t.Regions) <= l.FirstDistrict {
		return fmt.Errorf("%w: %d regions, need more than %d", ErrShape, len(t.Regions), l.FirstDistrict)
	}

	for slot := l.PartyFirst; slot <= l.PartyLast; slot++ {
		g, err := t.Group(l.NationalRegion, slot)
		if err != nil {
			return err
		}
		if g.Name == "" {
			return &ShapeError{Region: l.NationalRegion, Slot: slot, Reason: "party name missing"}
		}
		if _, err := t.Share(l.NationalRegion, slot, l.SecondVote); err != nil {
			return err
		}
	}

	for off := l.FirstDistrict; off < len(t.Regions); off++ {
		if t.Regions[off].Name == "" {
			return &ShapeError{Region: off, Slot: -1, Reason: "GebietText missing"}
		}
		if _, err := t.Share(off, l.TurnoutSlot, 0); err != nil {
			return err
		}
		for slot := l.CandidateFirst; slot <= l.CandidateLast; slot++ {
			if _, err := t.Vote(off, slot, l.FirstVote); err != nil {
				return err
			}
		}
	}
	return nil
}

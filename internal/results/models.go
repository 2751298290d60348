package results

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Tree is the parsed results document. It is never mutated after Parse returns.
type Tree struct {
	XMLName xml.Name `xml:"Gesamtergebnis"`
	Regions []Region `xml:"Gebietsergebnis"`
}

// Region is one Gebietsergebnis: the federal total, a state or a district.
type Region struct {
	Number string  `xml:"Gebietsnummer,attr" json:"number"`
	Kind   string  `xml:"Gebietsart,attr" json:"kind"`   // BUND, LAND, WAHLKREIS
	Parent string  `xml:"UegGebietsnummer,attr" json:"parent"`
	Name   string  `xml:"GebietText" json:"name"`
	Groups []Group `xml:"Gruppenergebnis" json:"groups"`
}

// Group is one Gruppenergebnis: a system row (electorate, turnout) or a party.
type Group struct {
	Name      string       `xml:"Name,attr" json:"name"`
	Kind      string       `xml:"Gruppenart,attr" json:"kind"`
	Candidate string       `xml:"Direktkandidat,attr" json:"candidate,omitempty"`
	Votes     []VoteResult `xml:"Stimmergebnis" json:"votes"`
}

// VoteResult is one Stimmergebnis. Percent is kept as the raw attribute text.
type VoteResult struct {
	Kind    string `xml:"Stimmart,attr" json:"kind"`
	Count   string `xml:"Anzahl,attr" json:"count"`
	Percent string `xml:"Prozent,attr" json:"percent"`
}

// Share parses the Prozent attribute. Both "40.2" and "40,2" are accepted.
func (v VoteResult) Share() (float64, error) {
	raw := strings.TrimSpace(v.Percent)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing Prozent", ErrShape)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: Prozent %q: %v", ErrShape, raw, err)
	}
	return f, nil
}

// Region returns the region at offset, or a ShapeError when out of range.
func (t *Tree) Region(offset int) (*Region, error) {
	if t == nil || offset < 0 || offset >= len(t.Regions) {
		return nil, &ShapeError{Region: offset, Slot: -1, Reason: "region offset out of range"}
	}
	return &t.Regions[offset], nil
}

// Group returns the group at slot within the region at offset.
func (t *Tree) Group(offset, slot int) (*Group, error) {
	r, err := t.Region(offset)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= len(r.Groups) {
		return nil, &ShapeError{Region: offset, Slot: slot, Reason: "group slot out of range"}
	}
	return &r.Groups[slot], nil
}

// Vote returns the idx-th Stimmergebnis of a group.
func (t *Tree) Vote(offset, slot, idx int) (*VoteResult, error) {
	g, err := t.Group(offset, slot)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(g.Votes) {
		return nil, &ShapeError{Region: offset, Slot: slot, Reason: fmt.Sprintf("vote result %d missing", idx)}
	}
	return &g.Votes[idx], nil
}

// Share is Vote followed by VoteResult.Share, with the position in the error.
func (t *Tree) Share(offset, slot, idx int) (float64, error) {
	v, err := t.Vote(offset, slot, idx)
	if err != nil {
		return 0, err
	}
	f, err := v.Share()
	if err != nil {
		return 0, &ShapeError{Region: offset, Slot: slot, Reason: err.Error()}
	}
	return f, nil
}


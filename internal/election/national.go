package election

import (
	"fmt"
	"math"
	"sort"

	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

// PartyShare is one row of the national second-vote table.
type PartyShare struct {
	Party     string  `json:"party"`
	Share     float64 `json:"share"`
	Remainder bool    `json:"remainder,omitempty"`
}

// FixedShare is a party that the results file does not list in a party slot
// but that is shown with a published share.
type FixedShare struct {
	Party string  `yaml:"party" json:"party" validate:"required"`
	Share float64 `yaml:"share" json:"share" validate:"gte=0,lte=100"`
}

// NationalOptions controls the adjustments applied after the parsed rows.
type NationalOptions struct {
	Fixed         []FixedShare `yaml:"fixed" validate:"dive"`
	RemainderName string       `yaml:"remainder_name" validate:"required"`

	// CorrectRemainder subtracts the fixed shares from the remainder as well.
	// Off by default: the published dashboard computed the remainder from the
	// parsed rows only, so the table sums to 100 plus the fixed shares.
	CorrectRemainder bool `yaml:"correct_remainder"`
}

// DefaultNationalOptions adds SSW at 0.1 % and "Sonstige" as the remainder.
func DefaultNationalOptions() NationalOptions {
	return NationalOptions{
		Fixed:         []FixedShare{{Party: "SSW", Share: 0.1}},
		RemainderName: "Sonstige",
	}
}

// Table is the national second-vote table, sorted descending with the
// remainder row last.
type Table []PartyShare

// Parties returns the displayed party rows, i.e. everything but the remainder.
func (t Table) Parties() Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if !r.Remainder {
			out = append(out, r)
		}
	}
	return out
}

// Total sums every row including the remainder.
func (t Table) Total() float64 {
	var sum float64
	for _, r := range t {
		sum += r.Share
	}
	return sum
}

// NationalTable reads the party slots of the national region and applies the
// fixed shares and the remainder.
func NationalTable(tree *results.Tree, layout results.Layout, opts NationalOptions) (Table, error) {
	rows := make(Table, 0, layout.PartySlots()+len(opts.Fixed)+1)
	var parsed float64

	for slot := layout.PartyFirst; slot <= layout.PartyLast; slot++ {
		g, err := tree.Group(layout.NationalRegion, slot)
		if err != nil {
			return nil, fmt.Errorf("national party slot %d: %w", slot, err)
		}
		share, err := tree.Share(layout.NationalRegion, slot, layout.SecondVote)
		if err != nil {
			return nil, fmt.Errorf("national party %q: %w", g.Name, err)
		}
		parsed += share
		rows = append(rows, PartyShare{Party: g.Name, Share: round2(share)})
	}

	remainder := 100 - parsed
	for _, f := range opts.Fixed {
		rows = append(rows, PartyShare{Party: f.Party, Share: round2(f.Share)})
		if opts.CorrectRemainder {
			remainder -= f.Share
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Share > rows[j].Share })

	rows = append(rows, PartyShare{Party: opts.RemainderName, Share: round2(remainder), Remainder: true})
	return rows, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

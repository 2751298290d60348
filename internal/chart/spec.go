package chart

import (
	"math"
	"strconv"

	"github.com/EmpoweredVote/wahlkreis/internal/election"
)

// Headroom is the y-axis maximum relative to the largest bar.
const Headroom = 1.15

// Row is one value to plot.
type Row struct {
	Label string
	Value float64
}

// Bar is one bar of a chart description.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
	Text  string  `json:"text"`
}

// Spec describes a bar chart independently of the renderer.
type Spec struct {
	Title  string  `json:"title"`
	Series string  `json:"series"`
	Source string  `json:"source"`
	YMax   float64 `json:"y_max"`
	Bars   []Bar   `json:"bars"`
}

// Describe colors each row by party, suffixes the value label with "%" and
// leaves 15 % headroom above the largest value.
func Describe(title, series, source string, rows []Row, palette Palette) Spec {
	s := Spec{Title: title, Series: series, Source: source, Bars: make([]Bar, len(rows))}
	var max float64
	for i, r := range rows {
		s.Bars[i] = Bar{
			Label: r.Label,
			Value: r.Value,
			Color: palette.Color(r.Label),
			Text:  strconv.FormatFloat(r.Value, 'f', -1, 64) + " %",
		}
		max = math.Max(max, r.Value)
	}
	s.YMax = math.Round(max*Headroom*100) / 100
	return s
}

// NationalRows plots every row of the national table, remainder included.
func NationalRows(t election.Table) []Row {
	rows := make([]Row, len(t))
	for i, r := range t {
		rows[i] = Row{Label: r.Party, Value: r.Share}
	}
	return rows
}

// DistrictRows plots the ranked candidates by party.
func DistrictRows(r election.DistrictResult) []Row {
	rows := make([]Row, len(r.Candidates))
	for i, c := range r.Candidates {
		rows[i] = Row{Label: c.Party, Value: c.Share}
	}
	return rows
}

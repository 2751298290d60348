// Package resultstest builds synthetic Gesamtergebnis documents for tests.
package resultstest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"testing"

	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

type Party struct {
	Name  string
	Share float64
}

type Candidate struct {
	Name  string // "Last, First"
	Party string
	Share float64
}

type District struct {
	Name       string
	Turnout    float64
	Candidates []Candidate
}

// Fixture describes a document laid out like gesamtergebnis_05.xml:
// region 0 is the federal total, then States state regions, then districts.
type Fixture struct {
	National  []Party
	States    int
	Districts []District
}

// Default returns a fixture with the 2021 national shares and three districts
// covering the large-lead, clear-lead and narrow-margin phrasings in that order.
func Default() Fixture {
	return Fixture{
		National: []Party{
			{"CDU", 18.9}, {"SPD", 25.7}, {"AfD", 10.3}, {"FDP", 11.5},
			{"DIE LINKE", 4.9}, {"GRÜNE", 14.8}, {"CSU", 5.2},
		},
		States: 16,
		Districts: []District{
			{
				Name:    "Musterstadt",
				Turnout: 70.33,
				Candidates: []Candidate{
					{"Musterfrau, Erika", "SPD", 31.5},
					{"Mustermann, Max", "CDU", 40.2},
					{"Beispiel, Bernd", "AfD", 10.1},
					{"Probe, Paula", "FDP", 9.4},
					{"Test, Tina", "GRÜNE", 6.3},
				},
			},
			{
				Name:    "Berlin-Mitte",
				Turnout: 75.1,
				Candidates: []Candidate{
					{"Weiß, Anna", "SPD", 22.0},
					{"Grün, Gustav", "GRÜNE", 27.0},
					{"Roth, Lena", "DIE LINKE", 18.5},
					{"Schwarz, Karl", "CDU", 15.2},
					{"Gelb, Fritz", "FDP", 8.1},
				},
			},
			{
				Name:    "Leipzig II",
				Turnout: 72.456,
				Candidates: []Candidate{
					{"Pellmann, Sören", "DIE LINKE", 23.5},
					{"Kasek, Jürgen", "GRÜNE", 21.5},
					{"Lehmann, Nadja", "SPD", 19.8},
					{"Feist, Thomas", "CDU", 17.3},
					{"Berger, Siegbert", "AfD", 10.2},
				},
			},
		},
	}
}

// FirstDistrict is the region offset of the first district.
func (f Fixture) FirstDistrict() int { return 1 + f.States }

// XML renders the fixture.
func (f Fixture) XML() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<Gesamtergebnis>\n")

	b.WriteString(`<Gebietsergebnis Gebietsnummer="99" Gebietsart="BUND">` + "\n")
	writeText(&b, "GebietText", "Bundesgebiet")
	writeSystemGroups(&b, 76.4)
	for _, p := range f.National {
		fmt.Fprintf(&b, `<Gruppenergebnis Gruppenart="PARTEI" Name=%q>`, esc(p.Name))
		fmt.Fprintf(&b, `<Stimmergebnis Stimmart="DIREKT" Prozent="%s"/>`, pct(p.Share))
		fmt.Fprintf(&b, `<Stimmergebnis Stimmart="LISTE" Prozent="%s"/>`, pct(p.Share))
		b.WriteString("</Gruppenergebnis>\n")
	}
	b.WriteString("</Gebietsergebnis>\n")

	for i := 1; i <= f.States; i++ {
		fmt.Fprintf(&b, `<Gebietsergebnis Gebietsnummer="%d" Gebietsart="LAND" UegGebietsnummer="99">`+"\n", i)
		writeText(&b, "GebietText", fmt.Sprintf("Land %d", i))
		writeSystemGroups(&b, 75)
		b.WriteString("</Gebietsergebnis>\n")
	}

	for i, d := range f.Districts {
		fmt.Fprintf(&b, `<Gebietsergebnis Gebietsnummer="%d" Gebietsart="WAHLKREIS" UegGebietsnummer="1">`+"\n", i+1)
		writeText(&b, "GebietText", d.Name)
		writeSystemGroups(&b, d.Turnout)
		for _, c := range d.Candidates {
			fmt.Fprintf(&b, `<Gruppenergebnis Gruppenart="PARTEI" Name=%q Direktkandidat=%q>`, esc(c.Party), esc(c.Name))
			fmt.Fprintf(&b, `<Stimmergebnis Stimmart="DIREKT" Prozent="%s"/>`, pct(c.Share))
			fmt.Fprintf(&b, `<Stimmergebnis Stimmart="LISTE" Prozent="%s"/>`, pct(c.Share))
			b.WriteString("</Gruppenergebnis>\n")
		}
		b.WriteString("</Gebietsergebnis>\n")
	}

	b.WriteString("</Gesamtergebnis>\n")
	return b.Bytes()
}

// Tree parses the rendered fixture and fails the test on error.
func (f Fixture) Tree(t testing.TB) *results.Tree {
	t.Helper()
	tree, err := results.ParseBytes(f.XML())
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return tree
}

// Layout returns the default layout adjusted to the fixture's state count.
func (f Fixture) Layout() results.Layout {
	l := results.DefaultLayout()
	l.FirstDistrict = f.FirstDistrict()
	return l
}

func writeSystemGroups(b *bytes.Buffer, turnout float64) {
	b.WriteString(`<Gruppenergebnis Gruppenart="SYSTEM" Name="Wahlberechtigte"><Stimmergebnis Stimmart="DIREKT" Anzahl="1000"/></Gruppenergebnis>` + "\n")
	fmt.Fprintf(b, `<Gruppenergebnis Gruppenart="SYSTEM" Name="Wählende"><Stimmergebnis Stimmart="DIREKT" Prozent="%s"/></Gruppenergebnis>`+"\n", pct(turnout))
	b.WriteString(`<Gruppenergebnis Gruppenart="SYSTEM" Name="Ungültige"><Stimmergebnis Stimmart="DIREKT" Prozent="1.0"/><Stimmergebnis Stimmart="LISTE" Prozent="0.9"/></Gruppenergebnis>` + "\n")
	b.WriteString(`<Gruppenergebnis Gruppenart="SYSTEM" Name="Gültige"><Stimmergebnis Stimmart="DIREKT" Prozent="99.0"/><Stimmergebnis Stimmart="LISTE" Prozent="99.1"/></Gruppenergebnis>` + "\n")
}

func writeText(b *bytes.Buffer, tag, text string) {
	fmt.Fprintf(b, "<%s>", tag)
	_ = xml.EscapeText(b, []byte(text))
	fmt.Fprintf(b, "</%s>\n", tag)
}

// esc escapes for use inside a %q-quoted attribute; %q never produces XML
// entities, so only the XML-special characters need replacing.
func esc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func pct(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

package election

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// Tier classifies the gap between the winner and the runner-up.
type Tier string

const (
	TierLargeLead Tier = "large_lead" // margin > 8
	TierClearLead Tier = "clear_lead" // 3 < margin <= 8
	TierNarrow    Tier = "narrow"     // margin <= 3
)

const (
	largeLeadAbove = 8.0
	clearLeadAbove = 3.0
)

// SelectTier picks the phrasing for a margin in percentage points.
func SelectTier(margin float64) Tier {
	switch {
	case margin > largeLeadAbove:
		return TierLargeLead
	case margin > clearLeadAbove:
		return TierClearLead
	default:
		return TierNarrow
	}
}

var narrativeFuncs = template.FuncMap{
	"pct":    formatShare,
	"margin": func(f float64) string { return fmt.Sprintf("%.2f", f) },
}

var (
	winnerTmpl = template.Must(template.New("winner").Funcs(narrativeFuncs).Parse(
		`Im Wahlkreis {{.Label}} hat {{.Winner.Name}} von der Partei „{{.Winner.Party}}“ mit {{pct .Winner.Share}} % der Stimmen gewonnen.`))

	turnoutTmpl = template.Must(template.New("turnout").Funcs(narrativeFuncs).Parse(
		` Die Wahlbeteiligung lag {{.Year}} in diesem Wahlbezirk bei {{pct .Turnout}} %.`))

	runnerUpTmpls = map[Tier]*template.Template{
		TierLargeLead: template.Must(template.New("large").Funcs(narrativeFuncs).Parse(
			` Mit einem großen Abstand von {{margin .Margin}} % auf dem zweiten Platz ist {{.RunnerUp.Name}} von der Partei „{{.RunnerUp.Party}}“ mit {{pct .RunnerUp.Share}} %.`)),
		TierClearLead: template.Must(template.New("clear").Funcs(narrativeFuncs).Parse(
			` Auf dem zweiten Platz dahinter ist {{.RunnerUp.Name}} von der Partei „{{.RunnerUp.Party}}“ mit {{pct .RunnerUp.Share}} % der Stimmen.`)),
		TierNarrow: template.Must(template.New("narrow").Funcs(narrativeFuncs).Parse(
			` Knapp dahinter mit einer Differenz von {{margin .Margin}} % auf dem zweiten Platz ist {{.RunnerUp.Name}} von der Partei „{{.RunnerUp.Party}}“ mit {{pct .RunnerUp.Share}} % der Stimmen.`)),
	}
)

// Narrator renders the summary sentence of a district result.
type Narrator struct {
	Year int
}

type narrativeData struct {
	Label    string
	Year     int
	Winner   Candidate
	RunnerUp Candidate
	Turnout  float64
	Margin   float64
}

// Narrate concatenates the winner, turnout and runner-up sentences.
func (n Narrator) Narrate(r DistrictResult) (string, error) {
	if len(r.Candidates) < 2 {
		return "", fmt.Errorf("narrate %q: need two candidates, have %d", r.Label, len(r.Candidates))
	}
	tier := r.Tier
	if tier == "" {
		tier = SelectTier(r.Margin)
	}

	data := narrativeData{
		Label:    r.Label,
		Year:     n.Year,
		Winner:   r.Winner(),
		RunnerUp: r.RunnerUp(),
		Turnout:  r.Turnout,
		Margin:   r.Margin,
	}

	var b strings.Builder
	for _, t := range []*template.Template{winnerTmpl, turnoutTmpl, runnerUpTmpls[tier]} {
		if t == nil {
			return "", fmt.Errorf("narrate %q: no phrasing for tier %q", r.Label, tier)
		}
		if err := t.Execute(&b, data); err != nil {
			return "", fmt.Errorf("narrate %q: %w", r.Label, err)
		}
	}
	return b.String(), nil
}

// formatShare prints the shortest representation with at least one decimal,
// so 40.2 stays "40.2" and 40 becomes "40.0".
func formatShare(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

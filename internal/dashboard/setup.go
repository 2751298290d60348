// Package dashboard serves the results page, its charts and the JSON API.
package dashboard

import (
	"github.com/EmpoweredVote/wahlkreis/internal/archive"
	"github.com/EmpoweredVote/wahlkreis/internal/chart"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/geo"
	"github.com/EmpoweredVote/wahlkreis/internal/metrics"
)

// Deps are the collaborators of the dashboard. Map, Archive and Metrics are
// optional.
type Deps struct {
	Store   *election.Store
	Map     *geo.Map
	Archive *archive.Recorder
	Metrics *metrics.Metrics

	Palette       chart.Palette
	SourceText    string
	MapSourceText string
	// Summary is shown below the national chart; empty hides it.
	Summary string

	// ReloadTokenHash guards POST /api/admin/reload; empty disables it.
	ReloadTokenHash string
}

// Dashboard holds the handlers.
type Dashboard struct {
	Deps
}

func New(d Deps) *Dashboard {
	if d.Palette == nil {
		d.Palette = chart.DefaultPalette()
	}
	return &Dashboard{Deps: d}
}

func (d *Dashboard) served(outcome string) {
	if d.Metrics != nil {
		d.Metrics.DistrictServed(outcome)
	}
}

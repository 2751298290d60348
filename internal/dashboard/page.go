package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/logging"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Year          int
	Districts     []election.DistrictRef
	Selected      election.DistrictResult
	HasSelected   bool
	MapEnabled    bool
	SourceText    string
	MapSourceText string
	Summary       string
	Digest        string
}

// Page renders the dashboard with the first district preselected.
func (d *Dashboard) Page(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeHTMLError(w, err)
		return
	}

	data := pageData{
		Year:          snap.Settings.Year,
		Districts:     snap.Index.Refs(),
		MapEnabled:    d.Map != nil,
		SourceText:    d.SourceText,
		MapSourceText: d.MapSourceText,
		Summary:       d.Summary,
		Digest:        snap.ShortDigest(),
	}
	// The first district that aggregates cleanly is preselected.
	for _, ref := range data.Districts {
		res, err := snap.DistrictNumber(ref.Number)
		if err == nil {
			data.Selected, data.HasSelected = res, true
			break
		}
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		logging.LogError("dashboard", "render page", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	setSnapshotHeaders(w, snap)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

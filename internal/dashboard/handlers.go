package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/wahlkreis/internal/chart"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/geo"
	"github.com/EmpoweredVote/wahlkreis/internal/logging"
	"github.com/EmpoweredVote/wahlkreis/internal/metrics"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

const suggestionCount = 3

func (d *Dashboard) nationalSpec(snap *election.Snapshot) chart.Spec {
	title := fmt.Sprintf("Zweitstimmenergebnis der Bundestagswahl %d", snap.Settings.Year)
	return chart.Describe(title, "Prozent", d.SourceText, chart.NationalRows(snap.National), d.Palette)
}

func (d *Dashboard) districtSpec(res election.DistrictResult) chart.Spec {
	title := "Erststimmen im Wahlkreis " + res.Label
	return chart.Describe(title, "Prozent", d.SourceText, chart.DistrictRows(res), d.Palette)
}

// lookup resolves a district by number or by label.
func (d *Dashboard) lookup(snap *election.Snapshot, key string) (election.DistrictResult, []string, error) {
	if n, err := strconv.Atoi(key); err == nil {
		res, err := snap.DistrictNumber(n)
		return res, nil, err
	}
	label, err := url.PathUnescape(key)
	if err != nil {
		label = key
	}
	res, err := snap.District(label)
	if errors.Is(err, election.ErrUnknownDistrict) {
		return res, snap.Index.Suggest(label, suggestionCount), err
	}
	return res, nil, err
}

func (d *Dashboard) outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, election.ErrUnknownDistrict):
		return metrics.OutcomeUnknown
	default:
		return metrics.OutcomeShape
	}
}

func (d *Dashboard) NationalChart(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeHTMLError(w, err)
		return
	}
	d.renderChart(w, snap, d.nationalSpec(snap))
}

func (d *Dashboard) DistrictChart(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeHTMLError(w, err)
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "Invalid district number", http.StatusBadRequest)
		return
	}
	// Counted once per selection, by GetDistrict.
	res, err := snap.DistrictNumber(n)
	if err != nil {
		writeHTMLError(w, err)
		return
	}
	d.renderChart(w, snap, d.districtSpec(res))
}

func (d *Dashboard) renderChart(w http.ResponseWriter, snap *election.Snapshot, spec chart.Spec) {
	var buf bytes.Buffer
	if err := chart.RenderBar(&buf, spec); err != nil {
		logging.LogError("dashboard", "render chart", err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}
	setSnapshotHeaders(w, snap)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

type nationalResponse struct {
	Year    int            `json:"year"`
	Rows    election.Table `json:"rows"`
	Total   float64        `json:"total"`
	Chart   chart.Spec     `json:"chart"`
	Updated time.Time      `json:"updated"`
}

func (d *Dashboard) GetNational(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, nationalResponse{
		Year:    snap.Settings.Year,
		Rows:    snap.National,
		Total:   snap.National.Total(),
		Chart:   d.nationalSpec(snap),
		Updated: snap.FetchedAt,
	})
}

func (d *Dashboard) ListDistricts(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	refs := snap.Index.Search(strings.TrimSpace(r.URL.Query().Get("q")))
	if refs == nil {
		refs = []election.DistrictRef{}
	}
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, refs)
}

type districtResponse struct {
	election.DistrictResult
	Chart chart.Spec `json:"chart"`
}

func (d *Dashboard) GetDistrict(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, suggestions, err := d.lookup(snap, chi.URLParam(r, "key"))
	d.served(d.outcome(err))
	if err != nil {
		writeError(w, err, suggestions...)
		return
	}
	addServerTiming(w, "aggregate", time.Since(start))
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, districtResponse{DistrictResult: res, Chart: d.districtSpec(res)})
}

func (d *Dashboard) GetMap(w http.ResponseWriter, r *http.Request) {
	if d.Map == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "district map is disabled"})
		return
	}
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, geo.FeatureCollection(d.Map, snap, d.Palette))
}

func (d *Dashboard) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, snap.Info())
}

func (d *Dashboard) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	rows, err := d.Archive.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (d *Dashboard) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := d.Store.Reload(r.Context())
	if err != nil {
		if errors.Is(err, election.ErrReloadThrottled) {
			w.Header().Set("Retry-After", retryAfter(d.Store.ReloadWait()))
		}
		if !errors.Is(err, election.ErrReloadThrottled) && statusFor(err) == http.StatusInternalServerError {
			// Anything the source returns unclassified is still an upstream failure.
			err = fmt.Errorf("%w: %v", results.ErrDataFetch, err)
		}
		writeError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, snap.Info())
}

// retryAfter formats a wait as whole seconds, at least one.
func retryAfter(wait time.Duration) string {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

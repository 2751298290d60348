package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/EmpoweredVote/wahlkreis/internal/archive"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/logging"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

type errorBody struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, election.ErrNoSnapshot):
		return http.StatusServiceUnavailable
	case errors.Is(err, election.ErrUnknownDistrict), errors.Is(err, archive.ErrDisabled):
		return http.StatusNotFound
	case errors.Is(err, election.ErrReloadThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, results.ErrShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, results.ErrDataFetch), errors.Is(err, results.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError("dashboard", "encode response", err)
	}
}

func writeError(w http.ResponseWriter, err error, suggestions ...string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.LogError("dashboard", "request", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Suggestions: suggestions})
}

func writeHTMLError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func setSnapshotHeaders(w http.ResponseWriter, snap *election.Snapshot) {
	w.Header().Set("X-Snapshot-Digest", snap.ShortDigest())
	w.Header().Set("Last-Modified", snap.FetchedAt.UTC().Format(http.TimeFormat))
}

func addServerTiming(w http.ResponseWriter, name string, d time.Duration) {
	w.Header().Add("Server-Timing", fmt.Sprintf("%s;dur=%.1f", name, float64(d.Microseconds())/1000))
}

package results_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/wahlkreis/internal/results"
	"github.com/EmpoweredVote/wahlkreis/internal/results/resultstest"
)

func TestParse_Fixture(t *testing.T) {
	fx := resultstest.Default()
	tree := fx.Tree(t)

	require.Len(t, tree.Regions, 1+fx.States+len(fx.Districts))
	assert.Equal(t, "Bundesgebiet", tree.Regions[0].Name)
	assert.Equal(t, "Musterstadt", tree.Regions[fx.FirstDistrict()].Name)

	g, err := tree.Group(fx.FirstDistrict(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Mustermann, Max", g.Candidate)
	assert.Equal(t, "CDU", g.Name)

	share, err := tree.Share(fx.FirstDistrict(), 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 70.33, share, 1e-9)
}

func TestParse_Latin1(t *testing.T) {
	// "Wählende" with ä as the single byte 0xE4.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<Gesamtergebnis><Gebietsergebnis><GebietText>K\xf6ln I</GebietText>" +
		"<Gruppenergebnis Name=\"W\xe4hlende\"><Stimmergebnis Prozent=\"80,5\"/></Gruppenergebnis>" +
		"</Gebietsergebnis></Gesamtergebnis>"

	tree, err := results.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Köln I", tree.Regions[0].Name)
	assert.Equal(t, "Wählende", tree.Regions[0].Groups[0].Name)

	share, err := tree.Regions[0].Groups[0].Votes[0].Share()
	require.NoError(t, err)
	assert.InDelta(t, 80.5, share, 1e-9)
}

func TestParse_Errors(t *testing.T) {
	_, err := results.Parse(strings.NewReader("<Gesamtergebnis>"))
	assert.ErrorIs(t, err, results.ErrParse)

	_, err = results.Parse(strings.NewReader("<Gesamtergebnis></Gesamtergebnis>"))
	assert.ErrorIs(t, err, results.ErrParse)
}

func TestTree_OutOfRange(t *testing.T) {
	tree := resultstest.Default().Tree(t)

	_, err := tree.Region(len(tree.Regions))
	require.ErrorIs(t, err, results.ErrShape)

	_, err = tree.Group(0, 99)
	var se *results.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Region)
	assert.Equal(t, 99, se.Slot)

	// Wahlberechtigte carries an Anzahl but no Prozent.
	_, err = tree.Share(0, 0, 0)
	assert.ErrorIs(t, err, results.ErrShape)
}

func TestLayout_Validate(t *testing.T) {
	fx := resultstest.Default()
	require.NoError(t, fx.Layout().Validate(fx.Tree(t)))

	short := fx
	short.National = short.National[:5]
	err := short.Layout().Validate(short.Tree(t))
	var se *results.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Region)
	assert.Equal(t, 9, se.Slot)

	fewCandidates := resultstest.Default()
	fewCandidates.Districts[2].Candidates = fewCandidates.Districts[2].Candidates[:3]
	err = fewCandidates.Layout().Validate(fewCandidates.Tree(t))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, fewCandidates.FirstDistrict()+2, se.Region)

	noDistricts := resultstest.Default()
	noDistricts.Districts = nil
	assert.ErrorIs(t, noDistricts.Layout().Validate(noDistricts.Tree(t)), results.ErrShape)
}

func TestClient_Fetch(t *testing.T) {
	body := resultstest.Default().XML()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gesamtergebnis.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := results.NewClient(5 * time.Second)

	tree, raw, err := c.Fetch(context.Background(), srv.URL+"/gesamtergebnis.xml")
	require.NoError(t, err)
	assert.Equal(t, body, raw)
	assert.Len(t, tree.Regions, 20)

	_, _, err = c.Fetch(context.Background(), srv.URL+"/missing.xml")
	assert.ErrorIs(t, err, results.ErrDataFetch)
}

func TestClient_FetchTooLarge(t *testing.T) {
	body := resultstest.Default().XML()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := results.NewClient(5 * time.Second)

	results.SetMaxSize(c, int64(len(body)))
	_, raw, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err, "a body of exactly the limit is accepted")
	assert.Len(t, raw, len(body))

	results.SetMaxSize(c, int64(len(body)-1))
	_, _, err = c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, results.ErrDataFetch)
	assert.NotErrorIs(t, err, results.ErrParse)
	assert.Contains(t, err.Error(), "document too large")
}

func TestClient_FetchRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := results.NewClient(time.Minute).Fetch(ctx, srv.URL)
	assert.True(t, errors.Is(err, results.ErrDataFetch))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gesamtergebnis.xml")
	require.NoError(t, os.WriteFile(path, resultstest.Default().XML(), 0o644))

	src := results.FileSource{Path: path}
	tree, raw, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "Leipzig II", tree.Regions[len(tree.Regions)-1].Name)
	assert.Equal(t, "file://"+path, src.Name())

	_, _, err = results.FileSource{Path: path + ".missing"}.Load(context.Background())
	assert.ErrorIs(t, err, results.ErrDataFetch)
}

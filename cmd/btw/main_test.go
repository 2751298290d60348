package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/wahlkreis/internal/chart"
	"github.com/EmpoweredVote/wahlkreis/internal/results/resultstest"
)

func fixtureFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gesamtergebnis_05.xml")
	require.NoError(t, os.WriteFile(path, resultstest.Default().XML(), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--file", fixtureFile(t)))
	err := cmd.Execute()
	return out.String(), err
}

func TestNationalCommand(t *testing.T) {
	out, err := run(t, "national")
	require.NoError(t, err)

	assert.Contains(t, out, "Zweitstimmen 2021")
	assert.Contains(t, out, "25.70 %")
	assert.Contains(t, out, "Summe: 100.10 %")
	assert.Less(t, strings.Index(out, "SPD"), strings.Index(out, "Sonstige"))
}

func TestNationalCommand_CorrectRemainder(t *testing.T) {
	out, err := run(t, "national", "--correct-remainder")
	require.NoError(t, err)
	assert.Contains(t, out, "Summe: 100.00 %")
}

func TestDistrictsCommand(t *testing.T) {
	out, err := run(t, "districts")
	require.NoError(t, err)
	assert.Equal(t, "1 - Musterstadt\n2 - Berlin-Mitte\n3 - Leipzig II\n", out)

	out, err = run(t, "districts", "mitte")
	require.NoError(t, err)
	assert.Equal(t, "2 - Berlin-Mitte\n", out)
}

func TestDistrictCommand(t *testing.T) {
	out, err := run(t, "district", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 - Musterstadt")
	assert.Contains(t, out, "40.20 %")
	assert.Contains(t, out, "Max Mustermann")

	out, err = run(t, "district", "3", "-", "Leipzig", "II")
	require.NoError(t, err)
	assert.Contains(t, out, "Knapp dahinter")

	_, err = run(t, "district", "1 - Musterstad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 - Musterstadt")
}

func TestRenderBars(t *testing.T) {
	var buf bytes.Buffer
	renderBars(&buf, []chart.Row{{Label: "CDU", Value: 40}, {Label: "SPD", Value: 20}}, chart.DefaultPalette(), 10)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 10, strings.Count(lines[0], "█"))
	assert.Equal(t, 5, strings.Count(lines[1], "█"))
}

func TestWrap(t *testing.T) {
	got := wrap("eins zwei drei vier", 9)
	assert.Equal(t, "eins zwei\ndrei vier", got)
	assert.Equal(t, "x", truncate("x", 3))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
}

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPrintSnapshots(t *testing.T) {
	var buf bytes.Buffer
	printSnapshots(&buf, nil)
	if got := buf.String(); got != "No snapshots archived.\n" {
		t.Errorf("unexpected empty output %q", got)
	}

	buf.Reset()
	printSnapshots(&buf, []snapshotRow{{
		Digest:    strings.Repeat("ab", 32),
		Source:    "file:///data/gesamtergebnis_05.xml",
		FetchedAt: time.Date(2021, 9, 27, 6, 0, 0, 0, time.UTC),
		Districts: 299,
		Parties:   []string{"SPD", "CDU"},
	}})
	out := buf.String()
	for _, want := range []string{"DIGEST", "abababababab", "299", "SPD, CDU", "gesamtergebnis_05.xml"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("ab", 32)) {
		t.Errorf("expected digest to be shortened, got:\n%s", out)
	}
}

func TestPrintShares(t *testing.T) {
	var buf bytes.Buffer
	printShares(&buf, snapshotRow{Digest: "0123456789abcdef", Source: "test"}, []shareRow{
		{Position: 1, Party: "SPD", Share: 25.7},
		{Position: 2, Party: "Sonstige", Share: 74.3, Remainder: true},
	})
	out := buf.String()
	if !strings.Contains(out, "Sonstige (Rest)") {
		t.Errorf("expected remainder marker, got:\n%s", out)
	}
	if !strings.Contains(out, "100.00 %") {
		t.Errorf("expected total, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "0123456789ab ") {
		t.Errorf("expected short digest header, got:\n%s", out)
	}
}

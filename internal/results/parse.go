package results

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Parse decodes a Gesamtergebnis document. Documents declaring a non-UTF-8
// encoding (the archive files use ISO-8859-1) are transcoded on the fly.
func Parse(r io.Reader) (*Tree, error) {
	dec := xml.NewDecoder(bufio.NewReader(r))
	dec.CharsetReader = charset.NewReaderLabel

	var t Tree
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(t.Regions) == 0 {
		return nil, fmt.Errorf("%w: no Gebietsergebnis elements", ErrParse)
	}
	normalize(&t)
	return &t, nil
}

// ParseBytes parses an in-memory document.
func ParseBytes(b []byte) (*Tree, error) {
	return Parse(bytes.NewReader(b))
}

// ParseFile parses a local copy of the results document.
func ParseFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	defer f.Close()
	return Parse(f)
}

// normalize brings every user-visible string to NFC so umlauts compare equal
// regardless of how the publisher encoded them.
func normalize(t *Tree) {
	for i := range t.Regions {
		r := &t.Regions[i]
		r.Name = norm.NFC.String(r.Name)
		for j := range r.Groups {
			g := &r.Groups[j]
			g.Name = norm.NFC.String(g.Name)
			g.Candidate = norm.NFC.String(g.Candidate)
		}
	}
}

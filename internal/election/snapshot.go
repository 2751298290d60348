package election

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/EmpoweredVote/wahlkreis/internal/logging"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

// Settings are the fixed contract and presentation choices a snapshot is
// built with.
type Settings struct {
	Layout   results.Layout
	National NationalOptions
	Names    DisplayNames
	Year     int
}

// DefaultSettings match the 2021 Bundestag election.
func DefaultSettings() Settings {
	return Settings{
		Layout:   results.DefaultLayout(),
		National: DefaultNationalOptions(),
		Names:    DefaultDisplayNames(),
		Year:     2021,
	}
}

// Snapshot is everything derived from one fetched document. Nothing in it is
// mutated after BuildSnapshot returns, so it can be shared between requests.
type Snapshot struct {
	Tree      *results.Tree
	Index     *Index
	National  Table
	Winners   map[int]Candidate // by district number
	Source    string
	Digest    string
	FetchedAt time.Time
	Settings  Settings

	agg Aggregator
}

// Info is the public metadata of a snapshot.
type Info struct {
	Source    string    `json:"source"`
	Digest    string    `json:"digest"`
	FetchedAt time.Time `json:"fetched_at"`
	Districts int       `json:"districts"`
	Year      int       `json:"year"`
}

// BuildSnapshot validates tree against the layout and derives the national
// table, the district index and the winner of every district.
func BuildSnapshot(tree *results.Tree, raw []byte, source string, fetchedAt time.Time, s Settings) (*Snapshot, error) {
	if err := s.Layout.Validate(tree); err != nil {
		return nil, fmt.Errorf("validate layout: %w", err)
	}

	national, err := NationalTable(tree, s.Layout, s.National)
	if err != nil {
		return nil, err
	}

	idx, err := BuildIndex(tree, s.Layout)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	snap := &Snapshot{
		Tree:      tree,
		Index:     idx,
		National:  national,
		Winners:   make(map[int]Candidate, idx.Len()),
		Source:    source,
		Digest:    hex.EncodeToString(sum[:]),
		FetchedAt: fetchedAt,
		Settings:  s,
		agg: Aggregator{
			Tree:     tree,
			Index:    idx,
			Layout:   s.Layout,
			Names:    s.Names,
			Narrator: Narrator{Year: s.Year},
		},
	}

	// A district with a malformed candidate slot only loses its map color;
	// querying it still reports the error.
	for _, ref := range idx.refs {
		res, err := snap.agg.aggregate(ref)
		if err != nil {
			logging.L().Warnf("[election] district %q has no winner: %v", ref.Label, err)
			continue
		}
		snap.Winners[ref.Number] = res.Winner()
	}

	return snap, nil
}

// District aggregates the district with the given label.
func (s *Snapshot) District(label string) (DistrictResult, error) {
	return s.agg.Aggregate(label)
}

// DistrictNumber aggregates the district with the given Wahlkreis number.
func (s *Snapshot) DistrictNumber(n int) (DistrictResult, error) {
	return s.agg.AggregateNumber(n)
}

// Info returns the snapshot metadata.
func (s *Snapshot) Info() Info {
	return Info{
		Source:    s.Source,
		Digest:    s.Digest,
		FetchedAt: s.FetchedAt,
		Districts: s.Index.Len(),
		Year:      s.Settings.Year,
	}
}

// ShortDigest is the first 12 hex characters of the digest.
func (s *Snapshot) ShortDigest() string {
	if len(s.Digest) < 12 {
		return s.Digest
	}
	return s.Digest[:12]
}

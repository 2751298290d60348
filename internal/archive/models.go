package archive

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/EmpoweredVote/wahlkreis/internal/election"
)

// Schema holds the archive tables.
const Schema = "results"

// namespace derives snapshot ids from document digests.
var namespace = uuid.MustParse("5d0c4b8e-6a31-4f4e-9d0a-2f61c1b7e0a9")

// Snapshot is one archived document load.
type Snapshot struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source    string         `gorm:"not null" json:"source"`
	Digest    string         `gorm:"size:64;not null;uniqueIndex" json:"digest"`
	FetchedAt time.Time      `gorm:"not null;index" json:"fetched_at"`
	Year      int            `json:"year"`
	Districts int            `json:"districts"`
	Parties   pq.StringArray `gorm:"type:text[]" json:"parties"`

	Shares []NationalShare `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE" json:"national,omitempty"`
}

func (Snapshot) TableName() string { return Schema + ".snapshots" }

// NationalShare is one row of the archived national table.
type NationalShare struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	SnapshotID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Position   int       `gorm:"not null" json:"position"`
	Party      string    `gorm:"not null" json:"party"`
	Share      float64   `gorm:"not null" json:"share"`
	Remainder  bool      `json:"remainder,omitempty"`
}

func (NationalShare) TableName() string { return Schema + ".national_shares" }

// SnapshotID is the deterministic id of the document with the given digest.
func SnapshotID(digest string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("snapshot:"+digest))
}

// FromSnapshot converts a loaded snapshot into archive rows.
func FromSnapshot(snap *election.Snapshot) Snapshot {
	id := SnapshotID(snap.Digest)
	row := Snapshot{
		ID:        id,
		Source:    snap.Source,
		Digest:    snap.Digest,
		FetchedAt: snap.FetchedAt.UTC(),
		Year:      snap.Settings.Year,
		Districts: snap.Index.Len(),
		Parties:   pq.StringArray{},
		Shares:    make([]NationalShare, 0, len(snap.National)),
	}
	for _, p := range snap.National.Parties() {
		row.Parties = append(row.Parties, p.Party)
	}
	for i, p := range snap.National {
		row.Shares = append(row.Shares, NationalShare{
			SnapshotID: id,
			Position:   i + 1,
			Party:      p.Party,
			Share:      p.Share,
			Remainder:  p.Remainder,
		})
	}
	return row
}

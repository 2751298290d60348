// Package archive persists every distinct results document that was loaded.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/wahlkreis/internal/db"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/logging"
)

// ErrDisabled is returned by a nil Recorder.
var ErrDisabled = errors.New("snapshot archive is disabled")

const maxListLimit = 500

// Recorder writes snapshots to the archive tables. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	db *gorm.DB
}

func New(d *gorm.DB) *Recorder {
	return &Recorder{db: d}
}

// Migrate creates the schema and tables.
func (r *Recorder) Migrate() error {
	if r == nil {
		return ErrDisabled
	}
	if err := db.EnsureSchema(r.db, Schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", Schema, err)
	}
	if err := r.db.AutoMigrate(&Snapshot{}, &NationalShare{}); err != nil {
		return fmt.Errorf("auto-migrate archive: %w", err)
	}
	return nil
}

// Record stores snap unless a snapshot with the same digest exists. It
// reports whether a new row was written.
func (r *Recorder) Record(ctx context.Context, snap *election.Snapshot) (bool, error) {
	if r == nil {
		return false, ErrDisabled
	}
	start := time.Now()
	row := FromSnapshot(snap)

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit("Shares").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "digest"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert snapshot: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if len(row.Shares) > 0 {
			if err := tx.Create(&row.Shares).Error; err != nil {
				return fmt.Errorf("insert national shares: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		logging.LogUpsert("archive", 1+len(row.Shares), time.Since(start))
	} else {
		logging.L().Debugf("[archive] snapshot %s already archived", snap.ShortDigest())
	}
	return created, nil
}

// List returns the most recent snapshots with their national tables.
func (r *Recorder) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if r == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var rows []Snapshot
	err := r.db.WithContext(ctx).
		Preload("Shares", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Order("fetched_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return rows, nil
}

func (r *Recorder) SnapshotLoaded(ctx context.Context, snap *election.Snapshot, _ time.Duration) {
	if r == nil {
		return
	}
	if _, err := r.Record(ctx, snap); err != nil {
		logging.LogError("archive", "record snapshot", err)
	}
}

func (r *Recorder) SnapshotFailed(context.Context, error) {}

var _ election.Observer = (*Recorder)(nil)

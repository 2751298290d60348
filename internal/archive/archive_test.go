package archive_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/wahlkreis/internal/archive"
	"github.com/EmpoweredVote/wahlkreis/internal/db"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/results/resultstest"
)

func snapshot(t *testing.T, fx resultstest.Fixture) *election.Snapshot {
	t.Helper()
	s := election.DefaultSettings()
	s.Layout = fx.Layout()
	snap, err := election.BuildSnapshot(fx.Tree(t), fx.XML(), "fixture", time.Now(), s)
	require.NoError(t, err)
	return snap
}

func TestFromSnapshot(t *testing.T) {
	snap := snapshot(t, resultstest.Default())
	row := archive.FromSnapshot(snap)

	assert.Equal(t, archive.SnapshotID(snap.Digest), row.ID)
	assert.Equal(t, snap.Digest, row.Digest)
	assert.Equal(t, 3, row.Districts)
	assert.Equal(t, 2021, row.Year)
	assert.Len(t, row.Parties, 8)
	assert.NotContains(t, []string(row.Parties), "Sonstige")

	require.Len(t, row.Shares, 9)
	assert.Equal(t, "SPD", row.Shares[0].Party)
	assert.Equal(t, 1, row.Shares[0].Position)
	last := row.Shares[8]
	assert.True(t, last.Remainder)
	assert.Equal(t, 9, last.Position)
	for _, s := range row.Shares {
		assert.Equal(t, row.ID, s.SnapshotID)
	}
}

func TestSnapshotID_Deterministic(t *testing.T) {
	a := archive.SnapshotID("abc")
	assert.Equal(t, a, archive.SnapshotID("abc"))
	assert.NotEqual(t, a, archive.SnapshotID("abd"))
}

func TestNilRecorder(t *testing.T) {
	var r *archive.Recorder
	snap := snapshot(t, resultstest.Default())

	_, err := r.Record(context.Background(), snap)
	assert.ErrorIs(t, err, archive.ErrDisabled)
	_, err = r.List(context.Background(), 10)
	assert.ErrorIs(t, err, archive.ErrDisabled)
	assert.ErrorIs(t, r.Migrate(), archive.ErrDisabled)

	// Observers must tolerate the disabled archive.
	r.SnapshotLoaded(context.Background(), snap, time.Second)
}

func TestRecorder_Integration(t *testing.T) {
	_ = godotenv.Load("../../.env.local")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	d, err := db.Connect(dsn)
	require.NoError(t, err)
	r := archive.New(d)
	require.NoError(t, r.Migrate())

	// A fixture variant gives a digest no other run has archived.
	fx := resultstest.Default()
	fx.Districts[0].Name = "Musterstadt " + time.Now().Format(time.RFC3339Nano)
	snap := snapshot(t, fx)
	t.Cleanup(func() {
		d.Where("id = ?", archive.SnapshotID(snap.Digest)).Delete(&archive.Snapshot{})
	})

	created, err := r.Record(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.Record(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, created, "same digest is recorded once")

	rows, err := r.List(context.Background(), 50)
	require.NoError(t, err)
	var found *archive.Snapshot
	for i := range rows {
		if rows[i].Digest == snap.Digest {
			found = &rows[i]
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Shares, 9)
	assert.Equal(t, "SPD", found.Shares[0].Party)
}

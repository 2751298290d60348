// Command snapshots lists and prunes the archived results documents.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

var (
	dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	limit   = flag.Int("limit", 20, "Number of snapshots to list")
	digest  = flag.String("digest", "", "Show the national table of the snapshot with this digest prefix")
	keep    = flag.Int("keep", 0, "Delete all but the newest N snapshots (requires --confirm)")
	confirm = flag.Bool("confirm", false, "Required to delete snapshots")
)

type snapshotRow struct {
	ID        string
	Digest    string
	Source    string
	FetchedAt time.Time
	Districts int
	Parties   []string
}

type shareRow struct {
	Position  int
	Party     string
	Share     float64
	Remainder bool
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	switch {
	case *keep > 0:
		if !*confirm {
			fatalf("Refusing to delete without --confirm.")
		}
		n, err := prune(ctx, db, *keep)
		if err != nil {
			fatalf("prune: %v", err)
		}
		fmt.Printf("Deleted %d snapshots, kept the newest %d.\n", n, *keep)
	case *digest != "":
		snap, shares, err := loadSnapshot(ctx, db, *digest)
		if err != nil {
			fatalf("%v", err)
		}
		printShares(os.Stdout, snap, shares)
	default:
		rows, err := listSnapshots(ctx, db, *limit)
		if err != nil {
			fatalf("list: %v", err)
		}
		printSnapshots(os.Stdout, rows)
	}
}

func listSnapshots(ctx context.Context, db *sql.DB, limit int) ([]snapshotRow, error) {
	rs, err := db.QueryContext(ctx, `
		SELECT id, digest, source, fetched_at, districts, parties
		FROM results.snapshots
		ORDER BY fetched_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []snapshotRow
	for rs.Next() {
		var r snapshotRow
		var parties pq.StringArray
		if err := rs.Scan(&r.ID, &r.Digest, &r.Source, &r.FetchedAt, &r.Districts, &parties); err != nil {
			return nil, err
		}
		r.Parties = parties
		out = append(out, r)
	}
	return out, rs.Err()
}

func loadSnapshot(ctx context.Context, db *sql.DB, prefix string) (snapshotRow, []shareRow, error) {
	var r snapshotRow
	var parties pq.StringArray
	err := db.QueryRowContext(ctx, `
		SELECT id, digest, source, fetched_at, districts, parties
		FROM results.snapshots
		WHERE digest LIKE $1 || '%'
		ORDER BY fetched_at DESC
		LIMIT 1`, prefix).Scan(&r.ID, &r.Digest, &r.Source, &r.FetchedAt, &r.Districts, &parties)
	if err == sql.ErrNoRows {
		return r, nil, fmt.Errorf("no snapshot with digest %s…", prefix)
	}
	if err != nil {
		return r, nil, err
	}
	r.Parties = parties

	rs, err := db.QueryContext(ctx, `
		SELECT position, party, share, COALESCE(remainder, false)
		FROM results.national_shares
		WHERE snapshot_id = $1
		ORDER BY position`, r.ID)
	if err != nil {
		return r, nil, err
	}
	defer rs.Close()

	var shares []shareRow
	for rs.Next() {
		var s shareRow
		if err := rs.Scan(&s.Position, &s.Party, &s.Share, &s.Remainder); err != nil {
			return r, nil, err
		}
		shares = append(shares, s)
	}
	return r, shares, rs.Err()
}

// prune deletes everything but the newest keep snapshots in one transaction.
func prune(ctx context.Context, db *sql.DB, keep int) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM results.snapshots
		WHERE id NOT IN (
			SELECT id FROM results.snapshots ORDER BY fetched_at DESC LIMIT $1
		)`, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func printSnapshots(w io.Writer, rows []snapshotRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No snapshots archived.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FETCHED\tDIGEST\tDISTRICTS\tPARTIES\tSOURCE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			r.FetchedAt.Local().Format("2006-01-02 15:04"), short(r.Digest), r.Districts,
			strings.Join(r.Parties, ", "), r.Source)
	}
	_ = tw.Flush()
}

func printShares(w io.Writer, snap snapshotRow, shares []shareRow) {
	fmt.Fprintf(w, "%s  %s  %s\n\n", short(snap.Digest), snap.FetchedAt.Local().Format(time.RFC3339), snap.Source)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	var total float64
	for _, s := range shares {
		name := s.Party
		if s.Remainder {
			name += " (Rest)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f %%\t\n", s.Position, name, s.Share)
		total += s.Share
	}
	fmt.Fprintf(tw, "\tSumme\t%.2f %%\t\n", total)
	_ = tw.Flush()
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "snapshots: "+format+"\n", args...)
	os.Exit(1)
}

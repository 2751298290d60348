// Command btw answers dashboard queries from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/EmpoweredVote/wahlkreis/internal/chart"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/geo"
	"github.com/EmpoweredVote/wahlkreis/internal/logging"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

type options struct {
	file    string
	url     string
	timeout time.Duration
	correct bool
	width   int
}

func (o *options) source() results.Source {
	if o.file != "" {
		return results.FileSource{Path: o.file}
	}
	return results.URLSource{Client: results.NewClient(o.timeout), URL: o.url}
}

func (o *options) snapshot(ctx context.Context) (*election.Snapshot, error) {
	src := o.source()
	tree, raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	s := election.DefaultSettings()
	s.National.CorrectRemainder = o.correct
	return election.BuildSnapshot(tree, raw, src.Name(), time.Now(), s)
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "btw",
		Short:         "Bundestag election results in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.file, "file", os.Getenv("RESULTS_FILE"), "local results document (default: env RESULTS_FILE)")
	root.PersistentFlags().StringVar(&o.url, "url", results.DefaultURL, "results document URL")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 30*time.Second, "download timeout")
	root.PersistentFlags().BoolVar(&o.correct, "correct-remainder", false, "subtract fixed shares from the remainder")
	root.PersistentFlags().IntVar(&o.width, "width", 40, "bar width in cells")

	root.AddCommand(nationalCmd(o), districtsCmd(o), districtCmd(o), geojsonCmd(o))
	return root
}

func nationalCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "national",
		Short: "Show the national second-vote table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := o.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Zweitstimmen %d\n\n", snap.Settings.Year)
			renderBars(out, chart.NationalRows(snap.National), chart.DefaultPalette(), o.width)
			fmt.Fprintf(out, "\nSumme: %.2f %%\n", snap.National.Total())
			return nil
		},
	}
}

func districtsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "districts [query]",
		Short: "List district labels, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := o.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			for _, ref := range snap.Index.Search(query) {
				fmt.Fprintln(cmd.OutOrStdout(), ref.Label)
			}
			return nil
		},
	}
}

func districtCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "district <number|label>",
		Short: "Show the first-vote result of one district",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := o.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			key := strings.Join(args, " ")

			var res election.DistrictResult
			if n, convErr := strconv.Atoi(key); convErr == nil {
				res, err = snap.DistrictNumber(n)
			} else {
				res, err = snap.District(key)
				if err != nil && len(snap.Index.Suggest(key, 3)) > 0 {
					err = fmt.Errorf("%w (meinten Sie: %s?)", err, strings.Join(snap.Index.Suggest(key, 3), "; "))
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", res.Label)
			rows := make([]chart.Row, len(res.Candidates))
			for i, c := range res.Candidates {
				rows[i] = chart.Row{Label: c.Party, Value: c.Share}
			}
			renderBars(out, rows, chart.DefaultPalette(), o.width)
			fmt.Fprintf(out, "\n%s\n", wrap(res.Narrative, 78))
			return nil
		},
	}
}

func geojsonCmd(o *options) *cobra.Command {
	var tolerance float64
	var zone int
	var noResults bool

	cmd := &cobra.Command{
		Use:   "geojson <shapefile>",
		Short: "Convert district outlines to GeoJSON colored by winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := geo.DefaultOptions()
			opts.Tolerance = tolerance
			opts.UTMZone = zone
			m, err := geo.LoadShapefile(args[0], opts)
			if err != nil {
				return err
			}

			var snap *election.Snapshot
			if !noResults {
				if snap, err = o.snapshot(cmd.Context()); err != nil {
					return err
				}
			}
			b, err := geo.FeatureCollection(m, snap, chart.DefaultPalette()).MarshalJSON()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", geo.DefaultOptions().Tolerance, "simplification threshold in degrees, 0 disables")
	cmd.Flags().IntVar(&zone, "utm-zone", geo.DefaultOptions().UTMZone, "UTM zone of the shapefile, 0 for lon/lat")
	cmd.Flags().BoolVar(&noResults, "no-results", false, "skip the results download and leave districts uncolored")
	return cmd
}

func main() {
	_ = godotenv.Load(".env.local")
	if err := logging.Setup(os.Getenv("LOG_LEVEL")); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	defer logging.Sync()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Fehler:", err)
		os.Exit(1)
	}
}

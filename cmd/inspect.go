package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/urban-sim/incident-sim/sim/snapshot"
)

// inspectCmd prints saved runs, or one run's per-day summary
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List saved runs or print a run's per-day summary",
	Run: func(cmd *cobra.Command, args []string) {
		if dbPath == "" {
			logrus.Fatalf("--db is required")
		}
		store, err := snapshot.Open(dbPath)
		if err != nil {
			logrus.Fatalf("Opening %s: %v", dbPath, err)
		}
		defer store.Close()
		if err := inspect(context.Background(), os.Stdout, store, runID); err != nil {
			logrus.Fatalf("Inspect: %v", err)
		}
	},
}

// inspect lists the stored runs when id is empty, otherwise the run's days.
func inspect(ctx context.Context, w io.Writer, store *snapshot.Store, id string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if id == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "RUN\tSEED\tDAYS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", r.RunID, r.Seed, r.LastDay)
		}
		return nil
	}

	summaries, err := store.Days(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "DAY\tINCIDENTS\tSEVERE\tEVENTS\tCASUALTIES\tCONGESTION")
	for _, d := range summaries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.3f\n",
			d.Day, humanize.Comma(int64(d.Incidents)), humanize.Comma(int64(d.Grave)),
			d.Events, d.Casualties, d.MeanCongestion)
	}
	return nil
}

func init() {
	inspectCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database holding saved runs")
	inspectCmd.Flags().StringVar(&runID, "run-id", "", "Run to print (lists runs when empty)")
}

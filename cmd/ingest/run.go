package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"njcrashes/internal/app"
	"njcrashes/internal/domain"
	"njcrashes/internal/service"
)

func newRunCmd(c *cli) *cobra.Command {
	var kindNames []string
	var years []int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest files from the configured object storage",
		Long: `run fetches <raw_prefix>/<year>/NewJersey<year><Label>.txt (or .zip) for every
requested kind and year, and writes <output_prefix>/<year>/<Label>.csv plus
<Label>_conflicts.csv when some duplicates could not be reconciled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kindNames)
			if err != nil {
				return err
			}
			if len(years) == 0 {
				years = c.cfg.Ingest.Years()
			}

			a, err := app.New(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			runs, runErr := a.Ingest.IngestAll(cmd.Context(), service.Requests(kinds, years))
			if len(runs) > 0 {
				if err := a.Notify.NotifyBatch(cmd.Context(), runs); err != nil {
					c.logger.Warn("run: failed to send batch report", zap.Error(err))
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tYEAR\tSTATUS\tRECORDS\tKEYS\tGROUPS\tUNRESOLVED\tISSUES")
			failed := 0
			for _, r := range runs {
				if r.Status == domain.IngestStatusFailed {
					failed++
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
					r.Kind, r.Year, r.Status, r.TotalRecords, r.UniqueKeys, r.DuplicateGroups, r.Unresolved, r.IssueCount)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(runs))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kindNames, "kinds", nil, "Record kinds to ingest (default: all)")
	cmd.Flags().IntSliceVar(&years, "years", nil, "Years to ingest (default: NJCRASHES_INGEST_FIRST_YEAR..LAST_YEAR)")
	return cmd
}

func parseKinds(names []string) ([]domain.RecordKind, error) {
	if len(names) == 0 {
		return domain.AllRecordKinds, nil
	}
	kinds := make([]domain.RecordKind, 0, len(names))
	for _, n := range names {
		k, err := domain.ParseRecordKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

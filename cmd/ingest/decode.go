package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"njcrashes/internal/app"
	"njcrashes/internal/csvexport"
	"njcrashes/internal/domain"
	"njcrashes/internal/service"
)

type decodeOptions struct {
	kind       string
	year       int
	maxRecords int
	dedupe     bool
	asJSON     bool
	out        string
}

func newDecodeCmd(c *cli) *cobra.Command {
	var opts decodeOptions

	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode a local file and print its diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseRecordKind(opts.kind)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			svc := app.NewDecodeService(c.cfg, c.logger)
			res, err := svc.Decode(cmd.Context(), service.DecodeInput{
				Kind:       kind,
				Year:       opts.year,
				Data:       data,
				MaxRecords: opts.maxRecords,
				Dedupe:     opts.dedupe,
			})
			if err != nil {
				return err
			}

			if opts.out != "" {
				if err := writeTable(opts.out, res); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Diagnostics)
			}
			fmt.Fprint(w, res.Diagnostics.Report())
			if res.Merge != nil {
				s := res.Merge.Stats
				fmt.Fprintf(w, "unique keys:         %d\n", s.UniqueKeys)
				fmt.Fprintf(w, "duplicate groups:    %d (%d paired, %d fallback, %d unresolved)\n",
					s.DuplicateGroups, s.Paired, s.Fallback, s.Unresolved)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Record kind (crash, driver, occupant, pedestrian, vehicle)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "Data year")
	cmd.Flags().IntVar(&opts.maxRecords, "max-records", 0, "Stop after this many records")
	cmd.Flags().BoolVar(&opts.dedupe, "dedupe", false, "Reconcile duplicate primary keys")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print diagnostics as JSON")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the decoded table to this CSV file")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func writeTable(path string, res *service.DecodeResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := csvexport.Table(f, res.Table(), res.Columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"njcrashes/internal/app"
	"njcrashes/internal/domain"
	"njcrashes/internal/schema"
)

func newSchemaCmd(c *cli) *cobra.Command {
	var kindName string
	var year int
	var listRules bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the adapted field layout for a kind and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseRecordKind(kindName)
			if err != nil {
				return err
			}
			s, err := app.NewDecodeService(c.cfg, c.logger).Schema(kind, year)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %d (era %s), %d fields, width %d\n", kind.Label(), year, s.Era(), s.NumFields(), s.Width())
			if p := s.Patches(); len(p) > 0 {
				fmt.Fprintf(w, "patches: %s\n", strings.Join(p, ", "))
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tLENGTH\tNAME\tNOTE")
			start := 0
			for _, f := range s.Fields() {
				note := ""
				switch {
				case f.Synthetic:
					note = "padding"
				case f.Slack > 0:
					note = fmt.Sprintf("%d slack", f.Slack)
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", start, f.Length, f.Name, note)
				start += f.Length
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !listRules {
				return nil
			}

			fmt.Fprintf(w, "\nrules for %s:\n", kind)
			tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tYEARS\tPATCH\tAPPLIED")
			for _, r := range schema.DefaultRegistry().Rules() {
				if r.Kind != kind {
					continue
				}
				applied := "no"
				if s.HasPatch(r.ID) {
					applied = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, yearSpan(r.Years), r.Patch, applied)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Record kind")
	cmd.Flags().IntVar(&year, "year", 0, "Data year")
	cmd.Flags().BoolVar(&listRules, "rules", false, "Also list every layout patch rule for the kind")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func yearSpan(r schema.YearRange) string {
	switch {
	case r.From == 0 && r.To == 0:
		return "all"
	case r.From == r.To:
		return fmt.Sprint(r.From)
	case r.To == 0:
		return fmt.Sprintf("%d-", r.From)
	case r.From == 0:
		return fmt.Sprintf("-%d", r.To)
	}
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

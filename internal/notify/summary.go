// Package notify renders ingest batch summaries and delivers them to operators.
package notify

import (
	"fmt"
	"html"
	"strings"

	"njcrashes/internal/domain"
)

// Summary totals a batch.
type Summary struct {
	Files      int
	Failed     int
	Records    int
	Unresolved int
	Issues     int
}

// Summarize totals runs.
func Summarize(runs []domain.IngestRun) Summary {
	s := Summary{Files: len(runs)}
	for i := range runs {
		r := &runs[i]
		if r.Status == domain.IngestStatusFailed {
			s.Failed++
		}
		s.Records += r.TotalRecords
		s.Unresolved += r.Unresolved
		s.Issues += r.IssueCount
	}
	return s
}

// Subject is the one-line headline of a batch report.
func Subject(runs []domain.IngestRun) string {
	s := Summarize(runs)
	if s.Failed > 0 {
		return fmt.Sprintf("NJ crash ingest: %d of %d files failed", s.Failed, s.Files)
	}
	return fmt.Sprintf("NJ crash ingest: %d files, %d unresolved groups", s.Files, s.Unresolved)
}

// TextBody renders one line per run.
func TextBody(runs []domain.IngestRun) string {
	var b strings.Builder
	s := Summarize(runs)
	fmt.Fprintf(&b, "%d files, %d records, %d unresolved groups, %d decode issues\n\n",
		s.Files, s.Records, s.Unresolved, s.Issues)
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(&b, "%s %d: %s", r.Kind, r.Year, r.Status)
		if r.Error != nil {
			fmt.Fprintf(&b, " (%s)", *r.Error)
		} else {
			fmt.Fprintf(&b, ", %d records, %d keys, %d groups, %d unresolved",
				r.TotalRecords, r.UniqueKeys, r.DuplicateGroups, r.Unresolved)
		}
		if r.ConflictsKey != "" {
			fmt.Fprintf(&b, ", conflicts at %s", r.ConflictsKey)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// HTMLBody renders runs as a table.
func HTMLBody(runs []domain.IngestRun) string {
	var rows strings.Builder
	for i := range runs {
		r := &runs[i]
		detail := ""
		if r.Error != nil {
			detail = html.EscapeString(*r.Error)
		} else if r.ConflictsKey != "" {
			detail = html.EscapeString(r.ConflictsKey)
		}
		fmt.Fprintf(&rows, `    <tr><td>%s</td><td>%d</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%s</td></tr>
`, html.EscapeString(r.Kind), r.Year, r.Status, r.TotalRecords, r.DuplicateGroups, r.Unresolved, detail)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s</h2>
  <table style="border-collapse: collapse; width: 100%%;">
    <tr><th>Kind</th><th>Year</th><th>Status</th><th>Records</th><th>Groups</th><th>Unresolved</th><th></th></tr>
%s  </table>
</body>
</html>`, html.EscapeString(Subject(runs)), rows.String())
}

package domain

import (
	"fmt"
	"strings"
)

// ParseIssue locates one malformed record.
type ParseIssue struct {
	RecordIndex int       `json:"record_index"`
	LineNumber  int       `json:"line_number"`
	ByteOffset  int64     `json:"byte_offset"`
	Kind        IssueKind `json:"kind"`
	Description string    `json:"description"`
}

// ParseDiagnostics summarizes one decode call. It is read-only once returned.
type ParseDiagnostics struct {
	TotalRecords                int          `json:"total_records"`
	Encoding                    string       `json:"encoding"`
	ReplacementChars            int          `json:"replacement_chars"`
	InvalidUTF8                 int          `json:"invalid_utf8"`
	LineEnding                  LineEnding   `json:"line_ending"`
	ExpectedRecordWidth         int          `json:"expected_record_width"`
	ActualRecordWidth           int          `json:"actual_record_width"`
	WidthPatched                bool         `json:"width_patched"`
	RecordsWithInternalNewlines int          `json:"records_with_internal_newlines"`
	IncompleteFinalRecordBytes  int          `json:"incomplete_final_record_bytes"`
	Truncated                   bool         `json:"truncated"`
	Issues                      []ParseIssue `json:"issues"`
}

// HasIssues reports whether any malformed record was found.
func (d *ParseDiagnostics) HasIssues() bool { return len(d.Issues) > 0 }

// IssueCounts tallies issues by kind.
func (d *ParseDiagnostics) IssueCounts() map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for i := range d.Issues {
		counts[d.Issues[i].Kind]++
	}
	return counts
}

// maxReportedIssues bounds how many issue lines Report prints.
const maxReportedIssues = 20

// Report renders a human-readable summary.
func (d *ParseDiagnostics) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "records:             %d\n", d.TotalRecords)
	fmt.Fprintf(&b, "encoding:            %s (%d replacement chars, %d invalid utf-8 bytes)\n", d.Encoding, d.ReplacementChars, d.InvalidUTF8)
	fmt.Fprintf(&b, "line ending:         %s\n", d.LineEnding)
	fmt.Fprintf(&b, "record width:        expected %d, actual %d", d.ExpectedRecordWidth, d.ActualRecordWidth)
	if d.WidthPatched {
		b.WriteString(" (width-patched)")
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "internal newlines:   %d records\n", d.RecordsWithInternalNewlines)
	fmt.Fprintf(&b, "incomplete trailing: %d bytes\n", d.IncompleteFinalRecordBytes)
	if d.Truncated {
		b.WriteString("stopped early:       max records reached\n")
	}
	fmt.Fprintf(&b, "malformed records:   %d\n", len(d.Issues))
	for i := range d.Issues {
		if i == maxReportedIssues {
			fmt.Fprintf(&b, "  ... %d more\n", len(d.Issues)-maxReportedIssues)
			break
		}
		is := &d.Issues[i]
		fmt.Fprintf(&b, "  #%d line %d @%d [%s] %s\n", is.RecordIndex, is.LineNumber, is.ByteOffset, is.Kind, is.Description)
	}
	return b.String()
}

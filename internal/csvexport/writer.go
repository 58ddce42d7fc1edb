package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"njcrashes/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// ConflictColumns is the header of the conflict side-table.
var ConflictColumns = []string{
	"primary_key",
	"group_index",
	"position",
	"source_line",
	"case_class",
	"merge_strategy",
	"resolved",
	"ll_dist",
	"provenance",
	"record",
}

// Writer wraps csv.Writer for exporting decoded tables.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes a header row.
func (w *Writer) WriteHeader(columns []string) error {
	return w.csv.Write(columns)
}

// WriteRecords writes record values in column order. All records must share
// the header's columns.
func (w *Writer) WriteRecords(records []domain.RawRecord) error {
	for i := range records {
		if err := w.csv.Write(records[i].Values); err != nil {
			return err
		}
	}
	return nil
}

// WriteConflicts writes side-table rows under ConflictColumns.
func (w *Writer) WriteConflicts(rows []domain.MergeConflictRow) error {
	for i := range rows {
		if err := w.csv.Write(conflictToRow(&rows[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// Table writes a header plus records and flushes.
func Table(out io.Writer, records []domain.RawRecord, columns []string) error {
	w := NewWriter(out)
	if err := w.WriteHeader(columns); err != nil {
		return err
	}
	if err := w.WriteRecords(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Conflicts writes the side-table with its header and flushes.
func Conflicts(out io.Writer, rows []domain.MergeConflictRow) error {
	w := NewWriter(out)
	if err := w.WriteHeader(ConflictColumns); err != nil {
		return err
	}
	if err := w.WriteConflicts(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func conflictToRow(c *domain.MergeConflictRow) []string {
	return []string{
		c.PrimaryKey,
		strconv.Itoa(c.GroupIndex),
		strconv.Itoa(c.Position),
		strconv.Itoa(c.SourceLine),
		string(c.CaseClass),
		string(c.Strategy),
		strconv.FormatBool(c.Resolved),
		formatDistance(c.LLDist),
		string(c.Provenance),
		string(c.Record),
	}
}

func formatDistance(d *float64) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(*d, 'f', 1, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns the export filename for a decoded table.
// Format: {Label}_{year}.csv, or {Label}_{year}_conflicts.csv.
func BuildFilename(kind domain.RecordKind, year int, conflicts bool) string {
	name := SanitizeFilename(fmt.Sprintf("%s_%d", kind.Label(), year))
	if conflicts {
		name += "_conflicts"
	}
	return name + ".csv"
}

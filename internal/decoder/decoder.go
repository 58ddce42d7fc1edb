// Package decoder transcribes fixed-width crash files into raw records.
//
// Records are read as consecutive windows of exactly one record width rather
// than by splitting on line breaks: free-text fields occasionally contain
// CR/LF characters, and a line-oriented scan would split those records in two.
// Malformed input is reported in ParseDiagnostics and never aborts decoding.
package decoder

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"njcrashes/internal/domain"
)

// Options tunes a Decoder.
type Options struct {
	// MaxRecords stops decoding after this many records; 0 means no limit.
	MaxRecords int
	// MaxReplacementRatio is the largest share of invalid UTF-8 sequences
	// tolerated before the input is re-decoded as Windows-1252.
	MaxReplacementRatio float64
	// ForceLegacyCharset skips UTF-8 and decodes as Windows-1252.
	ForceLegacyCharset bool
}

// Decoder decodes raw bytes against a schema. It holds no per-file state and
// is safe for concurrent use.
type Decoder struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Decoder.
func New(opts Options, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{opts: opts, logger: logger}
}

// Decode splits raw into records of schema s. The only error is a nil or empty
// schema; every data problem is reported in the returned diagnostics.
func (d *Decoder) Decode(raw []byte, s *domain.Schema) ([]domain.RawRecord, *domain.ParseDiagnostics, error) {
	if s == nil || s.NumFields() == 0 {
		return nil, nil, fmt.Errorf("%w: decoder needs a schema", domain.ErrInvalidSchema)
	}

	t := decodeText(raw, d.opts.MaxReplacementRatio, d.opts.ForceLegacyCharset)
	normalize(t.runes)

	le := detectLineEnding(t.runes)
	sentinel := []rune(le.Sentinel())
	diag := &domain.ParseDiagnostics{
		Encoding:            t.encoding,
		ReplacementChars:    t.replacements,
		InvalidUTF8:         t.invalidUTF8,
		LineEnding:          le,
		ExpectedRecordWidth: s.Width() + len(sentinel),
		ActualRecordWidth:   observedWidth(t.runes),
		Issues:              []domain.ParseIssue{},
	}
	if t.encoding != EncodingUTF8 {
		d.logger.Warn("decoder.Decode: falling back to legacy charset",
			zap.String("kind", s.Kind().String()), zap.Int("invalid_utf8", t.invalidUTF8))
	}

	width := diag.ExpectedRecordWidth
	if diag.ActualRecordWidth == width+1 {
		diag.WidthPatched = true
		width++
		d.logger.Warn("decoder.Decode: records are one character wider than the schema, stripping it",
			zap.String("kind", s.Kind().String()), zap.Int("expected", diag.ExpectedRecordWidth))
	}

	fields := s.Fields()
	cols := s.Columns()
	bodyLen := width - len(sentinel)

	var records []domain.RawRecord
	line := 1
	var byteOff int64
	off := 0
	for ; len(t.runes)-off >= width; off += width {
		if d.opts.MaxRecords > 0 && len(records) == d.opts.MaxRecords {
			diag.Truncated = true
			break
		}
		window := t.runes[off : off+width]
		rec := recordCtx{diag: diag, index: len(records), line: line, byteOff: byteOff}

		body := window[:bodyLen]
		if tail := window[bodyLen:]; !equalRunes(tail, sentinel) {
			rec.issue(domain.IssueTerminatorMismatch,
				fmt.Sprintf("record does not end with %s: found %q", le, string(tail)))
		}
		if diag.WidthPatched {
			extra := body[len(body)-1]
			body = body[:len(body)-1]
			if !unicode.IsSpace(extra) {
				rec.issue(domain.IssueWidthPatchNotBlank,
					fmt.Sprintf("width-patch character %q is not whitespace", extra))
			}
		}

		breaks := 0
		for _, r := range window {
			if r == '\n' {
				breaks++
			}
		}
		if replaceLineBreaks(body) {
			diag.RecordsWithInternalNewlines++
		}

		records = append(records, domain.NewRawRecord(cols, rec.split(body, fields, cols.Len()), rec.index, line))
		line += breaks
		byteOff += t.byteLen(off, off+width)
	}

	if !diag.Truncated && off < len(t.runes) {
		diag.IncompleteFinalRecordBytes = int(t.byteLen(off, len(t.runes)))
	}
	diag.TotalRecords = len(records)

	d.logger.Debug("decoder.Decode: done",
		zap.String("kind", s.Kind().String()),
		zap.Int("records", diag.TotalRecords),
		zap.Int("issues", len(diag.Issues)),
		zap.Int("internal_newlines", diag.RecordsWithInternalNewlines),
		zap.Int("incomplete_bytes", diag.IncompleteFinalRecordBytes))
	return records, diag, nil
}

type recordCtx struct {
	diag    *domain.ParseDiagnostics
	index   int
	line    int
	byteOff int64
}

func (c *recordCtx) issue(kind domain.IssueKind, desc string) {
	c.diag.Issues = append(c.diag.Issues, domain.ParseIssue{
		RecordIndex: c.index,
		LineNumber:  c.line,
		ByteOffset:  c.byteOff,
		Kind:        kind,
		Description: desc,
	})
}

// split cuts body into trimmed field values, checking slack and padding bytes.
// A widened field's value covers its whole span, slack included.
func (c *recordCtx) split(body []rune, fields []domain.FieldSpec, n int) []string {
	values := make([]string, 0, n)
	pos := 0
	for _, f := range fields {
		span := body[pos : pos+f.Length]
		pos += f.Length
		if f.Slack > 0 {
			if tail := span[f.Length-f.Slack:]; !blank(tail) {
				kind := domain.IssueSlackNotBlank
				if f.Synthetic {
					kind = domain.IssuePaddingNotBlank
				}
				c.issue(kind, fmt.Sprintf("field %q: expected %d blank bytes, found %q", f.Name, f.Slack, string(tail)))
			}
		}
		if f.Synthetic {
			continue
		}
		values = append(values, strings.TrimSpace(string(span)))
	}
	return values
}

// detectLineEnding inspects the first LF: CRLF if a CR precedes it, else LF.
func detectLineEnding(runes []rune) domain.LineEnding {
	for i, r := range runes {
		if r == '\n' {
			if i > 0 && runes[i-1] == '\r' {
				return domain.LineEndingCRLF
			}
			return domain.LineEndingLF
		}
	}
	return domain.LineEndingLF
}

// observedWidth is the width of the first physical line including its
// terminator, or 0 when the input has no line break.
func observedWidth(runes []rune) int {
	for i, r := range runes {
		if r == '\n' {
			return i + 1
		}
	}
	return 0
}

func replaceLineBreaks(body []rune) bool {
	found := false
	for i, r := range body {
		if r == '\n' || r == '\r' {
			body[i] = ' '
			found = true
		}
	}
	return found
}

func blank(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

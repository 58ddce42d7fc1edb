package decoder_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njcrashes/internal/decoder"
	"njcrashes/internal/domain"
	"njcrashes/internal/schema"
)

func testSchema(t *testing.T, fields ...domain.FieldSpec) *domain.Schema {
	t.Helper()
	if len(fields) == 0 {
		fields = []domain.FieldSpec{{Name: "A", Length: 3}, {Name: "B", Length: 3}}
	}
	s, err := domain.NewSchema(domain.KindCrash, domain.Era2017, fields)
	require.NoError(t, err)
	return s
}

func rows(records []domain.RawRecord) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, r := range records {
		out[i] = r.Map()
	}
	return out
}

func decode(t *testing.T, opts decoder.Options, s *domain.Schema, raw string) ([]domain.RawRecord, *domain.ParseDiagnostics) {
	t.Helper()
	records, diag, err := decoder.New(opts, nil).Decode([]byte(raw), s)
	require.NoError(t, err)
	require.NotNil(t, diag)
	return records, diag
}

func TestDecode_BasicLF(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "001002\n003004\n")

	want := []map[string]string{{"A": "001", "B": "002"}, {"A": "003", "B": "004"}}
	if diff := cmp.Diff(want, rows(records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, diag.TotalRecords)
	assert.Equal(t, domain.LineEndingLF, diag.LineEnding)
	assert.Equal(t, 7, diag.ExpectedRecordWidth)
	assert.Equal(t, 7, diag.ActualRecordWidth)
	assert.Equal(t, 0, diag.RecordsWithInternalNewlines)
	assert.Equal(t, 0, diag.IncompleteFinalRecordBytes)
	assert.False(t, diag.WidthPatched)
	assert.False(t, diag.Truncated)
	assert.False(t, diag.HasIssues())
	assert.Equal(t, decoder.EncodingUTF8, diag.Encoding)

	assert.Equal(t, 0, records[0].Index)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, 1, records[1].Index)
	assert.Equal(t, 2, records[1].Line)
}

func TestDecode_CRLF(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "001002\r\n003004\r\n")

	require.Len(t, records, 2)
	assert.Equal(t, domain.LineEndingCRLF, diag.LineEnding)
	assert.Equal(t, 8, diag.ExpectedRecordWidth)
	assert.Equal(t, []string{"003", "004"}, records[1].Values)
	assert.False(t, diag.HasIssues())
}

func TestDecode_EmbeddedNewlineStaysOneRecord(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "0\n1002\n003004\n")

	want := []map[string]string{{"A": "0 1", "B": "002"}, {"A": "003", "B": "004"}}
	if diff := cmp.Diff(want, rows(records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, diag.RecordsWithInternalNewlines)
	assert.False(t, diag.HasIssues())
	assert.False(t, diag.WidthPatched)
	// the record after the split one starts on physical line 3
	assert.Equal(t, 3, records[1].Line)
}

func TestDecode_EmbeddedCarriageReturnInCRLFFile(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "001002\r\n0\r\n004\r\n")

	require.Len(t, records, 2)
	assert.Equal(t, []string{"0", "004"}, records[1].Values)
	assert.Equal(t, 1, diag.RecordsWithInternalNewlines)
	assert.False(t, diag.HasIssues())
}

func TestDecode_WidthPatch(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "001002X\n003004 \n")

	assert.True(t, diag.WidthPatched)
	assert.Equal(t, 7, diag.ExpectedRecordWidth)
	assert.Equal(t, 8, diag.ActualRecordWidth)
	want := []map[string]string{{"A": "001", "B": "002"}, {"A": "003", "B": "004"}}
	if diff := cmp.Diff(want, rows(records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, diag.Issues, 1)
	assert.Equal(t, domain.IssueWidthPatchNotBlank, diag.Issues[0].Kind)
	assert.Equal(t, 0, diag.Issues[0].RecordIndex)
}

func TestDecode_TerminatorMismatchIsDiagnosedNotFatal(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "001002X003004\n")

	require.Len(t, records, 2)
	assert.Equal(t, []string{"001", "002"}, records[0].Values)
	require.Len(t, diag.Issues, 1)
	is := diag.Issues[0]
	assert.Equal(t, domain.IssueTerminatorMismatch, is.Kind)
	assert.Equal(t, 0, is.RecordIndex)
	assert.Equal(t, 1, is.LineNumber)
	assert.Equal(t, int64(0), is.ByteOffset)
	assert.Contains(t, is.Description, `"X"`)
}

func TestDecode_IncompleteFinalRecord(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "001002\n0030")

	require.Len(t, records, 1)
	assert.Equal(t, 4, diag.IncompleteFinalRecordBytes)
	assert.False(t, diag.Truncated)
	assert.False(t, diag.HasIssues())
}

func TestDecode_MaxRecords(t *testing.T) {
	records, diag := decode(t, decoder.Options{MaxRecords: 1}, testSchema(t), "001002\n003004\n")

	require.Len(t, records, 1)
	assert.True(t, diag.Truncated)
	assert.Equal(t, 1, diag.TotalRecords)
	assert.Equal(t, 0, diag.IncompleteFinalRecordBytes)
}

func TestDecode_EmptyInput(t *testing.T) {
	records, diag := decode(t, decoder.Options{}, testSchema(t), "")

	assert.Empty(t, records)
	assert.Equal(t, 0, diag.TotalRecords)
	assert.Equal(t, domain.LineEndingLF, diag.LineEnding)
	assert.Equal(t, 0, diag.ActualRecordWidth)
}

func TestDecode_NilSchemaIsConfigurationError(t *testing.T) {
	_, _, err := decoder.New(decoder.Options{}, nil).Decode([]byte("x\n"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestDecode_SmartPunctuationAndByteOffsets(t *testing.T) {
	s := testSchema(t, domain.FieldSpec{Name: "A", Length: 3}, domain.FieldSpec{Name: "B", Length: 1})
	// en dash is 3 bytes but one character; the second record starts at byte 7
	records, diag := decode(t, decoder.Options{}, s, "A\u2013BX\n123Y?")

	require.Len(t, records, 2)
	assert.Equal(t, "A-B", records[0].Values[0])
	assert.Equal(t, decoder.EncodingUTF8, diag.Encoding)

	require.Len(t, diag.Issues, 1)
	assert.Equal(t, domain.IssueTerminatorMismatch, diag.Issues[0].Kind)
	assert.Equal(t, int64(7), diag.Issues[0].ByteOffset)
	assert.Equal(t, 2, diag.Issues[0].LineNumber)
}

func TestDecode_NormalizesEveryPunctuationMark(t *testing.T) {
	s := testSchema(t, domain.FieldSpec{Name: "A", Length: 6})
	records, _ := decode(t, decoder.Options{}, s, "\u2013\u2014\u2019\u00a0\u00ad\ufffd\n")

	require.Len(t, records, 1)
	assert.Equal(t, "--' -?", records[0].Values[0])
}

func TestDecode_LegacyCharsetFallback(t *testing.T) {
	s := testSchema(t, domain.FieldSpec{Name: "A", Length: 4}, domain.FieldSpec{Name: "B", Length: 2})
	raw := "Caf\xe9AB\nX\x96Y CD\n"

	records, diag := decode(t, decoder.Options{}, s, raw)
	assert.Equal(t, decoder.EncodingLegacy, diag.Encoding)
	assert.Equal(t, 0, diag.ReplacementChars)
	assert.Equal(t, 2, diag.InvalidUTF8)
	assert.Contains(t, diag.Report(), "2 invalid utf-8 bytes")
	want := []map[string]string{{"A": "Café", "B": "AB"}, {"A": "X-Y", "B": "CD"}}
	if diff := cmp.Diff(want, rows(records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_ReplacementRatioTolerated(t *testing.T) {
	s := testSchema(t, domain.FieldSpec{Name: "A", Length: 4}, domain.FieldSpec{Name: "B", Length: 2})

	records, diag := decode(t, decoder.Options{MaxReplacementRatio: 0.5}, s, "Caf\xe9AB\n")
	assert.Equal(t, decoder.EncodingUTF8, diag.Encoding)
	assert.Equal(t, 1, diag.ReplacementChars)
	assert.Equal(t, 1, diag.InvalidUTF8)
	require.Len(t, records, 1)
	assert.Equal(t, "Caf?", records[0].Values[0])

	_, diag = decode(t, decoder.Options{ForceLegacyCharset: true}, s, "CafeAB\n")
	assert.Equal(t, decoder.EncodingLegacy, diag.Encoding)
}

func TestDecode_SlackAndPaddingChecks(t *testing.T) {
	s := testSchema(t,
		domain.FieldSpec{Name: "A", Length: 4, Slack: 1},
		domain.FieldSpec{Name: "_padding_after_A", Length: 2, Slack: 2, Synthetic: true},
		domain.FieldSpec{Name: "B", Length: 2},
	)
	records, diag := decode(t, decoder.Options{}, s, "001   02\n0017xx02\n")

	want := []map[string]string{{"A": "001", "B": "02"}, {"A": "0017", "B": "02"}}
	if diff := cmp.Diff(want, rows(records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"A", "B"}, records[0].Columns().Names())
	assert.Equal(t, map[domain.IssueKind]int{
		domain.IssueSlackNotBlank:   1,
		domain.IssuePaddingNotBlank: 1,
	}, diag.IssueCounts())
	for _, is := range diag.Issues {
		assert.Equal(t, 1, is.RecordIndex)
	}
}

// Every embedded layout, adapted for every year, decodes a synthesized line of
// exactly the schema's width back into the values it was built from.
func TestDecode_WidthInvariantAcrossLayouts(t *testing.T) {
	store := schema.NewStore(schema.DefaultLayouts(), nil)
	adapter := schema.NewAdapter(schema.DefaultRegistry())
	dec := decoder.New(decoder.Options{}, nil)

	for _, kind := range domain.AllRecordKinds {
		for _, year := range []int{2001, 2012, 2016, 2017, 2019, 2022} {
			base, err := store.ForYear(kind, year)
			require.NoError(t, err)
			s, err := adapter.Adapt(base, kind, year)
			require.NoError(t, err)

			var line strings.Builder
			want := map[string]string{}
			for i, f := range s.Fields() {
				v := ""
				if !f.Synthetic {
					v = fitted(fmt.Sprintf("%d", i), f.Length-f.Slack)
					want[f.Name] = v
				}
				line.WriteString(v)
				line.WriteString(strings.Repeat(" ", f.Length-len(v)))
			}
			require.Equal(t, s.Width(), line.Len())
			raw := strings.Repeat(line.String()+"\r\n", 3)

			records, diag, err := dec.Decode([]byte(raw), s)
			require.NoError(t, err)
			assert.Equal(t, 3, diag.TotalRecords, "%s/%d", kind, year)
			assert.False(t, diag.HasIssues(), "%s/%d: %s", kind, year, diag.Report())
			assert.Equal(t, 0, diag.IncompleteFinalRecordBytes)
			for _, r := range records {
				if diff := cmp.Diff(want, r.Map()); diff != "" {
					t.Errorf("%s/%d mismatch (-want +got):\n%s", kind, year, diff)
				}
			}
		}
	}
}

func fitted(v string, n int) string {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}

func TestParseDiagnostics_Report(t *testing.T) {
	_, diag := decode(t, decoder.Options{}, testSchema(t), "001002X\n003004Y\n00")
	report := diag.Report()
	assert.Contains(t, report, "records:             2")
	assert.Contains(t, report, "(width-patched)")
	assert.Contains(t, report, "incomplete trailing: 2 bytes")
	assert.Contains(t, report, "[width_patch_not_blank]")
}

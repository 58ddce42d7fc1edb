package dedupe_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"njcrashes/internal/dedupe"
	"njcrashes/internal/domain"
)

func keyed(line int, caseNo string, fields map[string]string) domain.RawRecord {
	m := map[string]string{"Department Case Number": caseNo}
	for k, v := range fields {
		m[k] = v
	}
	r := crashRecord(line, m)
	return r
}

func TestGroup(t *testing.T) {
	records := []domain.RawRecord{
		keyed(1, "A", nil),
		keyed(2, "B", nil),
		keyed(3, "A", nil),
		keyed(4, "C", nil),
		keyed(5, "B", nil),
		keyed(6, "A", nil),
	}
	part, err := dedupe.Group(records, domain.KindCrash.Spec().PrimaryKey)
	require.NoError(t, err)

	require.Len(t, part.Buckets, 3)
	require.Len(t, part.Groups, 2)
	assert.Equal(t, "07|14|A", part.Groups[0].Key.String())
	assert.Equal(t, "07|14|B", part.Groups[1].Key.String())
	assert.Equal(t, 1, part.Groups[1].Index)
	assert.Equal(t, -1, part.Buckets[2].Group)
	assert.Equal(t, 3, part.Duplicates())

	var lines []int
	for _, m := range part.Groups[0].Members {
		lines = append(lines, m.Line)
	}
	assert.Equal(t, []int{1, 3, 6}, lines)
}

func TestGroup_MissingKeyColumn(t *testing.T) {
	_, err := dedupe.Group([]domain.RawRecord{keyed(1, "A", nil)}, []string{"Vehicle Number"})
	assert.ErrorIs(t, err, domain.ErrUnknownField)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestReconcile_OneRecordPerKey(t *testing.T) {
	records := []domain.RawRecord{
		keyed(1, "A", map[string]string{"Police Department": "NEWARK PD", "Route": "21"}),
		keyed(2, "B", map[string]string{"Police Department": "NEWARK PD", "Latitude": "40.000000", "Longitude": "-74.000000"}),
		keyed(3, "C", nil),
		keyed(4, "A", map[string]string{"Police Department": "Newark PD", "Cross Street Name": "Market St"}),
		keyed(5, "B", map[string]string{"Police Department": "NEWARK PD", "Latitude": "40.001371", "Longitude": "-74.000000"}),
	}
	resolver := dedupe.NewResolver(dedupe.ResolverConfig{ConflictThresholdFeet: 400})
	rec := dedupe.NewReconciler(resolver, 4, zap.NewNop())

	res, err := rec.Reconcile(context.Background(), domain.KindCrash, records)
	require.NoError(t, err)

	var keys []string
	for _, r := range res.Records {
		k, err := domain.KeyOf(r, domain.KindCrash.Spec().PrimaryKey)
		require.NoError(t, err)
		keys = append(keys, k.String())
	}
	assert.Equal(t, []string{"07|14|A", "07|14|B", "07|14|C"}, keys)

	a := res.Records[0]
	assert.Equal(t, "Newark PD", get(t, a, "Police Department"))
	assert.Equal(t, "21", get(t, a, "Route"))

	assert.Equal(t, dedupe.Stats{
		InputRecords:    5,
		UniqueKeys:      3,
		DuplicateGroups: 2,
		Duplicates:      2,
		Paired:          1,
		Fallback:        1,
		Unresolved:      1,
	}, res.Stats)

	require.Len(t, res.Outcomes, 2)
	assert.True(t, res.Outcomes[0].Resolved)
	assert.False(t, res.Outcomes[1].Resolved)

	// two members plus the reconciled row
	require.Len(t, res.Conflicts, 3)
	assert.Equal(t, []int{0, 1, -1}, []int{res.Conflicts[0].Position, res.Conflicts[1].Position, res.Conflicts[2].Position})
	for _, c := range res.Conflicts {
		assert.Equal(t, "07|14|B", c.PrimaryKey)
		assert.Equal(t, "crash", c.Kind)
		assert.Equal(t, 1, c.GroupIndex)
		assert.Equal(t, domain.StrategyFallback, c.Strategy)
		require.NotNil(t, c.LLDist)
		assert.InDelta(t, 500, *c.LLDist, 2)
	}
	assert.Equal(t, 5, res.Conflicts[1].SourceLine)
	assert.Equal(t, domain.CaseUpper, res.Conflicts[0].CaseClass)

	var prov map[string]string
	require.NoError(t, json.Unmarshal(res.Conflicts[2].Provenance, &prov))
	assert.Equal(t, dedupe.SourceConflict, prov["Latitude"])

	var body map[string]string
	require.NoError(t, json.Unmarshal(res.Conflicts[0].Record, &body))
	assert.Equal(t, "40.000000", body["Latitude"])
}

func TestReconcile_TotalityAtScale(t *testing.T) {
	var records []domain.RawRecord
	line := 1
	for i := 0; i < 200; i++ {
		copies := 1 + i%4
		for j := 0; j < copies; j++ {
			records = append(records, keyed(line, fmt.Sprintf("case-%03d", i), map[string]string{
				"Police Department": "NEWARK PD",
				"Route":             fmt.Sprintf("%d", j),
			}))
			line++
		}
	}
	rec := dedupe.NewReconciler(dedupe.NewResolver(dedupe.ResolverConfig{}), 8, nil)
	res, err := rec.Reconcile(context.Background(), domain.KindCrash, records)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, r := range res.Records {
		k, err := domain.KeyOf(r, domain.KindCrash.Spec().PrimaryKey)
		require.NoError(t, err)
		seen[k.MapKey()]++
	}
	assert.Len(t, seen, 200)
	for k, n := range seen {
		assert.Equal(t, 1, n, k)
	}
	assert.Equal(t, 150, res.Stats.DuplicateGroups)
	assert.Equal(t, 150, res.Stats.Unresolved)
}

func TestReconcile_Errors(t *testing.T) {
	rec := dedupe.NewReconciler(dedupe.NewResolver(dedupe.ResolverConfig{}), 2, nil)

	_, err := rec.Reconcile(context.Background(), domain.RecordKind(0), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownRecordKind)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := []domain.RawRecord{keyed(1, "A", nil), keyed(2, "A", nil)}
	_, err = rec.Reconcile(ctx, domain.KindCrash, records)
	assert.ErrorIs(t, err, context.Canceled)

	res, err := rec.Reconcile(context.Background(), domain.KindCrash, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Conflicts)
}

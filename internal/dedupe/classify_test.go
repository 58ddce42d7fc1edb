package dedupe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"njcrashes/internal/dedupe"
	"njcrashes/internal/domain"
)

var crashText = domain.KindCrash.Spec().TextFields

func TestClassify(t *testing.T) {
	c := dedupe.NewClassifier(dedupe.ClassifierConfig{})

	tests := []struct {
		name   string
		fields map[string]string
		want   domain.CaseClass
	}{
		{"all upper", map[string]string{"Police Department": "NEWARK PD", "Crash Location": "BROAD ST"}, domain.CaseUpper},
		{"all mixed", map[string]string{"Police Department": "Newark PD", "Cross Street Name": "Market St"}, domain.CaseMixed},
		{"no values", map[string]string{}, domain.CaseNeither},
		{"digits do not vote", map[string]string{"Police Department": "NEWARK PD", "Crash Location": "21"}, domain.CaseUpper},
		{"tie is neither", map[string]string{"Police Department": "NEWARK PD", "Crash Location": "Broad St"}, domain.CaseNeither},
		{"lower case dilutes", map[string]string{"Police Department": "NEWARK PD", "Crash Location": "broad st"}, domain.CaseNeither},
		{"two of three upper", map[string]string{"Police Department": "NEWARK PD", "Crash Location": "BROAD ST", "Cross Street Name": "Market St"}, domain.CaseUpper},
		{"two of three mixed", map[string]string{"Police Department": "NEWARK PD", "Crash Location": "Broad St", "Cross Street Name": "Market St"}, domain.CaseMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := crashRecord(1, tt.fields)
			got := c.Classify(r, crashText)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, c.Classify(r, crashText))
		})
	}
}

func TestClassify_AbsentFieldsIgnored(t *testing.T) {
	cols := domain.NewColumns([]string{"Police Department"})
	r := recordFromMap(cols, map[string]string{"Police Department": "NEWARK PD"}, 0, 1)
	assert.Equal(t, domain.CaseUpper, dedupe.NewClassifier(dedupe.ClassifierConfig{}).Classify(r, crashText))
}

func TestClassify_ConfigurableThresholds(t *testing.T) {
	r := crashRecord(1, map[string]string{
		"Police Department": "NEWARK PD",
		"Crash Location":    "BROAD ST",
		"Cross Street Name": "Market St",
	})
	strict := dedupe.NewClassifier(dedupe.ClassifierConfig{UpperMajority: 0.9, MixedMajority: 0.2})
	assert.Equal(t, domain.CaseMixed, strict.Classify(r, crashText))
}

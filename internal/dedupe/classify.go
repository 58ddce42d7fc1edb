package dedupe

import (
	"unicode"

	"njcrashes/internal/domain"
)

const defaultMajority = 0.5

// ClassifierConfig holds the majority thresholds. Zero values select 0.5.
type ClassifierConfig struct {
	UpperMajority float64
	MixedMajority float64
}

// Classifier tags a record with the casing of its free-text fields.
type Classifier struct {
	upper float64
	mixed float64
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{upper: cfg.UpperMajority, mixed: cfg.MixedMajority}
	if c.upper <= 0 {
		c.upper = defaultMajority
	}
	if c.mixed <= 0 {
		c.mixed = defaultMajority
	}
	return c
}

// Classify votes over textFields. Empty or absent values, and values without
// letters, do not vote. A value that has letters but is all lower-case votes
// for neither class while still counting toward the total.
func (c *Classifier) Classify(r domain.RawRecord, textFields []string) domain.CaseClass {
	var votes, upper, mixed int
	for _, name := range textFields {
		v, ok := r.Get(name)
		if !ok || v == "" {
			continue
		}
		hasUpper, hasLower := casing(v)
		if !hasUpper && !hasLower {
			continue
		}
		votes++
		switch {
		case hasUpper && hasLower:
			mixed++
		case hasUpper:
			upper++
		}
	}
	if votes == 0 {
		return domain.CaseNeither
	}
	if float64(upper) > c.upper*float64(votes) {
		return domain.CaseUpper
	}
	if float64(mixed) > c.mixed*float64(votes) {
		return domain.CaseMixed
	}
	return domain.CaseNeither
}

func casing(s string) (hasUpper, hasLower bool) {
	for _, r := range s {
		if unicode.IsUpper(r) {
			hasUpper = true
		} else if unicode.IsLower(r) {
			hasLower = true
		}
		if hasUpper && hasLower {
			return
		}
	}
	return
}

package dedupe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"njcrashes/internal/domain"
)

// DefaultConflictThresholdFeet is the coordinate disagreement above which a
// fallback merge is left unresolved.
const DefaultConflictThresholdFeet = 500.0

// Provenance values recorded per field.
const (
	SourceUpper    = "upper"
	SourceConflict = "conflict"
	BaseMixed      = "mixed"
	baseKey        = "_base"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	ConflictThresholdFeet float64
	Classifier            ClassifierConfig
}

// Resolver turns a DuplicateGroup into a single reconciled record.
type Resolver struct {
	classifier *Classifier
	threshold  float64
}

func NewResolver(cfg ResolverConfig) *Resolver {
	threshold := cfg.ConflictThresholdFeet
	if threshold <= 0 {
		threshold = DefaultConflictThresholdFeet
	}
	return &Resolver{classifier: NewClassifier(cfg.Classifier), threshold: threshold}
}

// Resolve reconciles g using the text, fillable and coordinate columns of spec.
// A group that is exactly one Upper and one Mixed record merges into the Mixed
// one and is always resolved; any other shape goes through the fallback rules.
// The only error is a group with fewer than two members.
func (r *Resolver) Resolve(g domain.DuplicateGroup, spec domain.KindSpec) (domain.MergeOutcome, error) {
	if err := g.Validate(); err != nil {
		return domain.MergeOutcome{}, err
	}

	classes := make([]domain.CaseClass, len(g.Members))
	for i, m := range g.Members {
		classes[i] = r.classifier.Classify(m, spec.TextFields)
	}

	out := domain.MergeOutcome{
		Key:        g.Key,
		GroupIndex: g.Index,
		Classes:    classes,
		Provenance: make(map[string]string),
	}

	if upper, mixed, ok := pairedVersions(classes); ok {
		out.Strategy = domain.StrategyPairedVersions
		out.Resolved = true
		out.Reconciled = mergePaired(g.Members[mixed], g.Members[upper], spec.FillableFields, out.Provenance)
		return out, nil
	}

	out.Strategy = domain.StrategyFallback
	out.Reconciled, out.Resolved, out.ConflictDistance = r.mergeFallback(g.Members, spec, out.Provenance)
	return out, nil
}

// pairedVersions returns the member indices of the Upper and Mixed records when
// classes is exactly one of each.
func pairedVersions(classes []domain.CaseClass) (upper, mixed int, ok bool) {
	if len(classes) != 2 {
		return 0, 0, false
	}
	switch {
	case classes[0] == domain.CaseUpper && classes[1] == domain.CaseMixed:
		return 0, 1, true
	case classes[0] == domain.CaseMixed && classes[1] == domain.CaseUpper:
		return 1, 0, true
	}
	return 0, 0, false
}

func mergePaired(base, upper domain.RawRecord, fillable []string, prov map[string]string) domain.RawRecord {
	merged := base.Clone()
	prov[baseKey] = BaseMixed
	for _, f := range fillable {
		if merged.Present(f) || !upper.Present(f) {
			continue
		}
		v, _ := upper.Get(f)
		merged.Set(f, v)
		prov[f] = SourceUpper
	}
	return merged
}

// mergeFallback takes the earliest member as base, fills its empty tracked
// fields from the others and settles coordinates by distance and precision.
// Every decision depends only on member content and line numbers, so member
// order does not change the result.
func (r *Resolver) mergeFallback(members []domain.RawRecord, spec domain.KindSpec, prov map[string]string) (domain.RawRecord, bool, *float64) {
	ordered := append([]domain.RawRecord(nil), members...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Line < ordered[j].Line })

	merged := ordered[0].Clone()
	prov[baseKey] = lineSource(merged.Line)
	resolved := true

	for _, f := range spec.FillableFields {
		if f == spec.LatField || f == spec.LonField {
			continue
		}
		if _, ok := merged.Get(f); !ok {
			continue
		}
		var chosen string
		from := 0
		conflict := false
		for _, m := range ordered {
			v, _ := m.Get(f)
			if v == "" {
				continue
			}
			if chosen == "" {
				chosen, from = v, m.Line
				continue
			}
			if !strings.EqualFold(v, chosen) {
				conflict = true
			}
		}
		if chosen != "" && !merged.Present(f) {
			merged.Set(f, chosen)
			prov[f] = lineSource(from)
		}
		if conflict {
			prov[f] = SourceConflict
			resolved = false
		}
	}

	if !spec.HasCoordinates() {
		return merged, resolved, nil
	}
	var coords []coord
	for _, m := range ordered {
		if c, ok := coordOf(m, spec.LatField, spec.LonField); ok {
			coords = append(coords, c)
		}
	}
	if len(coords) == 0 {
		return merged, resolved, nil
	}

	best := mostPrecise(coords)
	merged.Set(spec.LatField, best.latText)
	merged.Set(spec.LonField, best.lonText)
	src := lineSource(best.line)

	var dist *float64
	if len(coords) > 1 {
		d := maxDistance(coords)
		dist = &d
		if d > r.threshold {
			resolved = false
			src = SourceConflict
		}
	}
	prov[spec.LatField] = src
	prov[spec.LonField] = src
	return merged, resolved, dist
}

func lineSource(line int) string {
	return "line " + strconv.Itoa(line)
}

// describe renders an outcome for logs.
func describe(o domain.MergeOutcome) string {
	s := fmt.Sprintf("%s %s resolved=%t", o.Key, o.Strategy, o.Resolved)
	if o.ConflictDistance != nil {
		s += fmt.Sprintf(" ll_dist=%.1fft", *o.ConflictDistance)
	}
	return s
}

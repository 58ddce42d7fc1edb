package schema

import (
	"fmt"
	"sort"

	"njcrashes/internal/domain"
)

// Patch is one structural adjustment to a field list. The set of
// implementations is closed: DropField, WidenField, RelocateField, InsertPadding.
type Patch interface {
	// Target is the field the patch touches, or "" if it touches none.
	Target() string
	String() string
	// stage orders application: drops, then widens, then relocations, then padding.
	stage() int
	// slot is the position the patch writes into ("end" or "after:<name>"),
	// or "" if it writes into none.
	slot() string
	apply(fields []domain.FieldSpec) ([]domain.FieldSpec, error)
}

// DropField removes a field and its byte span from the record.
type DropField struct {
	Name string
}

// WidenField grows a field by Extra trailing bytes that must be whitespace.
type WidenField struct {
	Name  string
	Extra int
}

// RelocateField moves a field to just after the named field, or to the end of
// the record when After is empty. The field is still read as its own column.
type RelocateField struct {
	Name  string
	After string
}

// InsertPadding adds a synthetic whitespace-only span after the named field,
// or at the end of the record when After is empty.
type InsertPadding struct {
	Length int
	After  string
}

func (p DropField) Target() string     { return p.Name }
func (p WidenField) Target() string    { return p.Name }
func (p RelocateField) Target() string { return p.Name }
func (p InsertPadding) Target() string { return "" }

func (DropField) stage() int     { return 0 }
func (WidenField) stage() int    { return 1 }
func (RelocateField) stage() int { return 2 }
func (InsertPadding) stage() int { return 3 }

func (DropField) slot() string       { return "" }
func (WidenField) slot() string      { return "" }
func (p RelocateField) slot() string { return slotAfter(p.After) }
func (p InsertPadding) slot() string { return slotAfter(p.After) }

func slotAfter(name string) string {
	if name == "" {
		return "end"
	}
	return "after:" + name
}

func (p DropField) String() string  { return fmt.Sprintf("drop %q", p.Name) }
func (p WidenField) String() string { return fmt.Sprintf("widen %q by %d", p.Name, p.Extra) }
func (p RelocateField) String() string {
	if p.After == "" {
		return fmt.Sprintf("relocate %q to end", p.Name)
	}
	return fmt.Sprintf("relocate %q after %q", p.Name, p.After)
}
func (p InsertPadding) String() string {
	if p.After == "" {
		return fmt.Sprintf("pad %d at end", p.Length)
	}
	return fmt.Sprintf("pad %d after %q", p.Length, p.After)
}

func find(fields []domain.FieldSpec, name string) (int, error) {
	for i := range fields {
		if fields[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
}

// insertAfter places f after the named field, or last when after is empty.
func insertAfter(fields []domain.FieldSpec, after string, f domain.FieldSpec) ([]domain.FieldSpec, error) {
	pos := len(fields)
	if after != "" {
		i, err := find(fields, after)
		if err != nil {
			return nil, err
		}
		pos = i + 1
	}
	out := make([]domain.FieldSpec, 0, len(fields)+1)
	out = append(out, fields[:pos]...)
	out = append(out, f)
	return append(out, fields[pos:]...), nil
}

func (p DropField) apply(fields []domain.FieldSpec) ([]domain.FieldSpec, error) {
	i, err := find(fields, p.Name)
	if err != nil {
		return nil, err
	}
	return append(fields[:i:i], fields[i+1:]...), nil
}

func (p WidenField) apply(fields []domain.FieldSpec) ([]domain.FieldSpec, error) {
	if p.Extra <= 0 {
		return nil, fmt.Errorf("%w: widen %q by %d", domain.ErrInvalidSchema, p.Name, p.Extra)
	}
	i, err := find(fields, p.Name)
	if err != nil {
		return nil, err
	}
	fields[i].Length += p.Extra
	fields[i].Slack += p.Extra
	return fields, nil
}

func (p RelocateField) apply(fields []domain.FieldSpec) ([]domain.FieldSpec, error) {
	if p.After == p.Name {
		return nil, fmt.Errorf("%w: relocate %q after itself", domain.ErrInvalidSchema, p.Name)
	}
	i, err := find(fields, p.Name)
	if err != nil {
		return nil, err
	}
	f := fields[i]
	return insertAfter(append(fields[:i:i], fields[i+1:]...), p.After, f)
}

func (p InsertPadding) apply(fields []domain.FieldSpec) ([]domain.FieldSpec, error) {
	if p.Length <= 0 {
		return nil, fmt.Errorf("%w: padding length %d", domain.ErrInvalidSchema, p.Length)
	}
	name := "_padding_end"
	if p.After != "" {
		name = "_padding_after_" + p.After
	}
	return insertAfter(fields, p.After, domain.FieldSpec{
		Name:      name,
		Length:    p.Length,
		Slack:     p.Length,
		Synthetic: true,
	})
}

// YearRange is an inclusive span of years; a zero bound is open.
type YearRange struct {
	From int
	To   int
}

// Contains reports whether year falls in the range.
func (r YearRange) Contains(year int) bool {
	if r.From != 0 && year < r.From {
		return false
	}
	if r.To != 0 && year > r.To {
		return false
	}
	return true
}

// Only is the range holding a single year.
func Only(year int) YearRange { return YearRange{From: year, To: year} }

// Rule binds a Patch to the (kind, years) it compensates for.
type Rule struct {
	ID    string
	Kind  domain.RecordKind
	Years YearRange
	Patch Patch
}

// Registry maps (kind, year) to the patch rules that apply.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a Registry holding rules.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Register adds a rule.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns every registered rule.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Match returns the rules for (kind, year) in application order: by patch
// variant, then by ID.
func (r *Registry) Match(kind domain.RecordKind, year int) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Kind == kind && rule.Years.Contains(year) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := stageOf(out[i]), stageOf(out[j])
		if si != sj {
			return si < sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Adapter applies registry rules to base schemas.
type Adapter struct {
	registry *Registry
}

// NewAdapter creates an Adapter over registry.
func NewAdapter(registry *Registry) *Adapter {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Adapter{registry: registry}
}

// Adapt returns the schema for (kind, year) after applying every matching rule.
// The input schema is never modified. Rules already recorded on s are skipped,
// so adapting an adapted schema is a no-op. Positions are named fields, never
// indices, so the result does not depend on rule IDs. Two matching rules that
// touch the same field, write into the same slot, or where one anchors on a
// field another drops or moves, fail with ErrConflictingPatch. A rule naming a
// missing field fails with ErrUnknownField.
func (a *Adapter) Adapt(s *domain.Schema, kind domain.RecordKind, year int) (*domain.Schema, error) {
	if s.Kind() != kind {
		return nil, fmt.Errorf("%w: schema is for %s, not %s", domain.ErrInvalidSchema, s.Kind(), kind)
	}
	rules := a.registry.Match(kind, year)
	if err := checkConflicts(rules); err != nil {
		return nil, fmt.Errorf("adapting %s/%d: %w", kind, year, err)
	}

	out := s
	for _, rule := range rules {
		if out.HasPatch(rule.ID) {
			continue
		}
		fields, err := rule.Patch.apply(out.Fields())
		if err != nil {
			return nil, fmt.Errorf("adapting %s/%d: rule %s (%s): %w", kind, year, rule.ID, rule.Patch, err)
		}
		if out, err = out.Derive(fields, rule.ID); err != nil {
			return nil, fmt.Errorf("adapting %s/%d: rule %s: %w", kind, year, rule.ID, err)
		}
	}
	return out, nil
}

func stageOf(r Rule) int {
	if r.Patch == nil {
		return -1
	}
	return r.Patch.stage()
}

func anchorOf(p Patch) string {
	switch p := p.(type) {
	case RelocateField:
		return p.After
	case InsertPadding:
		return p.After
	}
	return ""
}

func checkConflicts(rules []Rule) error {
	claimed := make(map[string]string, len(rules))
	slots := make(map[string]string, len(rules))
	dropped := make(map[string]string, len(rules))
	moved := make(map[string]string, len(rules))
	for _, rule := range rules {
		if rule.Patch == nil {
			return fmt.Errorf("%w: rule %s has no patch", domain.ErrInvalidSchema, rule.ID)
		}
		if target := rule.Patch.Target(); target != "" {
			if other, ok := claimed[target]; ok {
				return fmt.Errorf("%w: rules %s and %s both touch %q", domain.ErrConflictingPatch, other, rule.ID, target)
			}
			claimed[target] = rule.ID
			switch rule.Patch.(type) {
			case DropField:
				dropped[target] = rule.ID
			case RelocateField:
				moved[target] = rule.ID
			}
		}
		if slot := rule.Patch.slot(); slot != "" {
			if other, ok := slots[slot]; ok {
				return fmt.Errorf("%w: rules %s and %s both write %s", domain.ErrConflictingPatch, other, rule.ID, slot)
			}
			slots[slot] = rule.ID
		}
	}
	// Padding is applied last, so it may follow a relocated field; a relocation
	// may not, since relocations would then depend on each other.
	for _, rule := range rules {
		anchor := anchorOf(rule.Patch)
		if anchor == "" {
			continue
		}
		if other, ok := dropped[anchor]; ok {
			return fmt.Errorf("%w: rule %s anchors on %q, which rule %s drops", domain.ErrConflictingPatch, rule.ID, anchor, other)
		}
		if _, isMove := rule.Patch.(RelocateField); !isMove {
			continue
		}
		if other, ok := moved[anchor]; ok {
			return fmt.Errorf("%w: rule %s anchors on %q, which rule %s moves", domain.ErrConflictingPatch, rule.ID, anchor, other)
		}
	}
	return nil
}

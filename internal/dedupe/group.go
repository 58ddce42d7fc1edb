// Package dedupe reconciles records that share a primary key.
//
// The source agency periodically re-emits a year's records, so one logical
// crash can appear twice: once as the original all-caps machine entry and
// once as a mixed-case, geocoded update. Records are grouped by key, each
// member is tagged with a CaseClass, and every group is resolved into exactly
// one reconciled record.
package dedupe

import (
	"fmt"

	"njcrashes/internal/domain"
)

// Bucket is every record observed for one primary key.
type Bucket struct {
	Key     domain.PrimaryKey
	Members []domain.RawRecord
	// Group is the bucket's index into Partition.Groups, or -1 when the key is unique.
	Group int
}

// Partition is a record table split by primary key.
type Partition struct {
	// Buckets holds one entry per distinct key, in first-occurrence order.
	Buckets []Bucket
	// Groups holds the buckets with more than one member, in first-occurrence order.
	Groups []domain.DuplicateGroup
}

// Group partitions records by the values of keyCols. Members keep file order.
func Group(records []domain.RawRecord, keyCols []string) (*Partition, error) {
	if len(keyCols) == 0 {
		return nil, fmt.Errorf("%w: no primary key columns", domain.ErrInvalidSchema)
	}
	p := &Partition{}
	seen := make(map[string]int, len(records))
	for _, r := range records {
		key, err := domain.KeyOf(r, keyCols)
		if err != nil {
			return nil, err
		}
		mk := key.MapKey()
		i, ok := seen[mk]
		if !ok {
			seen[mk] = len(p.Buckets)
			p.Buckets = append(p.Buckets, Bucket{Key: key, Members: []domain.RawRecord{r}, Group: -1})
			continue
		}
		p.Buckets[i].Members = append(p.Buckets[i].Members, r)
	}

	for i := range p.Buckets {
		b := &p.Buckets[i]
		if len(b.Members) < 2 {
			continue
		}
		b.Group = len(p.Groups)
		p.Groups = append(p.Groups, domain.DuplicateGroup{
			Key:     b.Key,
			Index:   b.Group,
			Members: b.Members,
		})
	}
	return p, nil
}

// Duplicates counts the records beyond the first for every key.
func (p *Partition) Duplicates() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Members) - 1
	}
	return n
}

package domain

import (
	"fmt"
	"strings"
)

// RecordKind is the closed set of entity types published in the crash files.
type RecordKind int

const (
	KindCrash RecordKind = iota + 1
	KindDriver
	KindOccupant
	KindPedestrian
	KindVehicle
)

// AllRecordKinds lists every record kind in file-publication order.
var AllRecordKinds = []RecordKind{KindCrash, KindDriver, KindOccupant, KindPedestrian, KindVehicle}

func (k RecordKind) String() string {
	switch k {
	case KindCrash:
		return "crash"
	case KindDriver:
		return "driver"
	case KindOccupant:
		return "occupant"
	case KindPedestrian:
		return "pedestrian"
	case KindVehicle:
		return "vehicle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label is the name the source agency uses in file names, e.g. NewJersey2019Accidents.txt.
func (k RecordKind) Label() string {
	switch k {
	case KindCrash:
		return "Accidents"
	case KindDriver:
		return "Drivers"
	case KindOccupant:
		return "Occupants"
	case KindPedestrian:
		return "Pedestrians"
	case KindVehicle:
		return "Vehicles"
	default:
		return ""
	}
}

// Valid reports whether k is one of the known record kinds.
func (k RecordKind) Valid() bool {
	return k >= KindCrash && k <= KindVehicle
}

// ParseRecordKind accepts either the short name ("crash") or the file label ("Accidents").
func ParseRecordKind(s string) (RecordKind, error) {
	s = strings.TrimSpace(s)
	for _, k := range AllRecordKinds {
		if strings.EqualFold(s, k.String()) || strings.EqualFold(s, k.Label()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRecordKind, s)
}

func (k RecordKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRecordKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *RecordKind) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Era is a span of years sharing one base field layout.
type Era string

const (
	EraPre2017 Era = "pre-2017"
	Era2017    Era = "2017"
)

// FirstYear is the earliest year the agency published fixed-width files for.
const FirstYear = 2001

// EraForYear maps a data year onto its schema era.
func EraForYear(year int) (Era, error) {
	switch {
	case year < FirstYear:
		return "", fmt.Errorf("%w: %d", ErrUnsupportedYear, year)
	case year < 2017:
		return EraPre2017, nil
	default:
		return Era2017, nil
	}
}

// CaseClass is the casing-derived version tag of a record's free-text fields.
type CaseClass string

const (
	CaseUpper   CaseClass = "upper"
	CaseMixed   CaseClass = "mixed"
	CaseNeither CaseClass = "neither"
)

// MergeStrategy identifies which resolver policy produced a reconciled record.
type MergeStrategy string

const (
	StrategyPairedVersions MergeStrategy = "paired_versions"
	StrategyFallback       MergeStrategy = "fallback"
)

// LineEnding is the record terminator detected in a source file.
type LineEnding string

const (
	LineEndingLF   LineEnding = "LF"
	LineEndingCRLF LineEnding = "CRLF"
)

// Sentinel returns the literal terminator characters.
func (l LineEnding) Sentinel() string {
	if l == LineEndingCRLF {
		return "\r\n"
	}
	return "\n"
}

// IssueKind classifies a structural anomaly found while decoding.
type IssueKind string

const (
	IssueTerminatorMismatch IssueKind = "terminator_mismatch"
	IssueWidthPatchNotBlank IssueKind = "width_patch_not_blank"
	IssueSlackNotBlank      IssueKind = "slack_not_blank"
	IssuePaddingNotBlank    IssueKind = "padding_not_blank"
)

// IngestStatus represents the lifecycle of one (kind, year) ingest run.
type IngestStatus string

const (
	IngestStatusRunning   IngestStatus = "running"
	IngestStatusCompleted IngestStatus = "completed"
	IngestStatusFailed    IngestStatus = "failed"
)

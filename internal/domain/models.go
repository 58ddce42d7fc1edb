package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MergeOutcome is the reconciled record for one DuplicateGroup.
type MergeOutcome struct {
	Key              PrimaryKey        `json:"key"`
	GroupIndex       int               `json:"group_index"`
	Reconciled       RawRecord         `json:"reconciled"`
	Resolved         bool              `json:"resolved"`
	ConflictDistance *float64          `json:"conflict_distance,omitempty"`
	Strategy         MergeStrategy     `json:"strategy"`
	Classes          []CaseClass       `json:"classes"`
	Provenance       map[string]string `json:"provenance"`
}

// IngestRun records one (kind, year) ingestion and its diagnostics.
type IngestRun struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Kind            string          `db:"kind" json:"kind"`
	Year            int             `db:"year" json:"year"`
	SourceKey       string          `db:"source_key" json:"source_key"`
	Status          IngestStatus    `db:"status" json:"status"`
	TotalRecords    int             `db:"total_records" json:"total_records"`
	UniqueKeys      int             `db:"unique_keys" json:"unique_keys"`
	DuplicateGroups int             `db:"duplicate_groups" json:"duplicate_groups"`
	Unresolved      int             `db:"unresolved" json:"unresolved"`
	IssueCount      int             `db:"issue_count" json:"issue_count"`
	Diagnostics     json.RawMessage `db:"diagnostics" json:"diagnostics"`
	Patches         json.RawMessage `db:"patches" json:"patches"`
	OutputKey       string          `db:"output_key" json:"output_key"`
	ConflictsKey    string          `db:"conflicts_key" json:"conflicts_key"`
	Error           *string         `db:"error" json:"error,omitempty"`
	StartedAt       time.Time       `db:"started_at" json:"started_at"`
	FinishedAt      *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}

// MergeConflictRow is one row of the audit side-table. Position is the member's
// index within its group, or -1 for the reconciled row.
type MergeConflictRow struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	RunID      uuid.UUID       `db:"run_id" json:"run_id"`
	Kind       string          `db:"kind" json:"kind"`
	Year       int             `db:"year" json:"year"`
	PrimaryKey string          `db:"primary_key" json:"primary_key"`
	GroupIndex int             `db:"group_index" json:"group_index"`
	Position   int             `db:"position" json:"position"`
	SourceLine int             `db:"source_line" json:"source_line"`
	CaseClass  CaseClass       `db:"case_class" json:"case_class"`
	Strategy   MergeStrategy   `db:"merge_strategy" json:"merge_strategy"`
	Resolved   bool            `db:"resolved" json:"resolved"`
	LLDist     *float64        `db:"ll_dist" json:"ll_dist,omitempty"`
	Provenance json.RawMessage `db:"provenance" json:"provenance"`
	Record     json.RawMessage `db:"record" json:"record"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

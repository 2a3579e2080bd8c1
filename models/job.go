package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobIndexListings JobKind = "index_listings"
	JobReportErrors  JobKind = "report_errors"
	JobCleanupUser   JobKind = "cleanup_user"
	JobSweepZone     JobKind = "sweep_zone"
)

// Lane is a queue priority lane. Lower values are dispatched first:
// ingestion outranks alerting, which outranks scheduled cleanup.
type Lane int

const (
	LaneHigh    Lane = 0 // ingestion
	LaneDefault Lane = 1 // alerting
	LaneLow     Lane = 2 // cleanup, reconciliation
)

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Job is a queued background task. Payload holds the positional arguments
// of the task as JSON.
type Job struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Kind       JobKind         `json:"kind" db:"kind"`
	Lane       Lane            `json:"lane" db:"lane"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	Status     string          `json:"status" db:"status"`
	Attempts   int             `json:"attempts" db:"attempts"`
	Error      string          `json:"error" db:"error"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	StartedAt  *time.Time      `json:"started_at" db:"started_at"`
	FinishedAt *time.Time      `json:"finished_at" db:"finished_at"`
}

// IndexPayload carries the arguments of an index_listings job:
// (records, catalog, zone).
type IndexPayload struct {
	Records []map[string]any `json:"records"`
	Catalog string           `json:"catalog"`
	Zone    string           `json:"zone"`
}

// CleanupUserPayload carries the arguments of a cleanup_user job:
// (zone, user_id).
type CleanupUserPayload struct {
	Zone   string `json:"zone"`
	UserID string `json:"user_id"`
}

// SweepZonePayload carries the arguments of a sweep_zone job.
type SweepZonePayload struct {
	Zone    string `json:"zone"`
	MaxDays int    `json:"max_days"`
}

// ErrorReportPayload carries the arguments of a report_errors job: the
// records that failed ingestion together with their catalog.
type ErrorReportPayload struct {
	Records []map[string]any `json:"records"`
	Catalog string           `json:"catalog"`
	Errors  []string         `json:"errors"`
}

// IngestRun records the aggregate outcome of one ingestion batch.
type IngestRun struct {
	ID         int64     `json:"id" db:"id"`
	Zone       string    `json:"zone" db:"zone"`
	Catalog    string    `json:"catalog" db:"catalog"`
	Created    int       `json:"created" db:"created"`
	Updated    int       `json:"updated" db:"updated"`
	Errors     int       `json:"errors" db:"errors"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// ErrorReport is a persisted record of listings that failed ingestion,
// kept for later inspection.
type ErrorReport struct {
	ID        int64           `json:"id" db:"id"`
	Catalog   string          `json:"catalog" db:"catalog"`
	Items     json.RawMessage `json:"items" db:"items"`
	Messages  []string        `json:"messages" db:"messages"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

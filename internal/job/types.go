package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bmore/mtgateway/internal/segment"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranslateDocument JobType = "translate_document"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job is a queued document translation
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Document    string          `json:"document"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TranslateParams are parameters for a document translation job
type TranslateParams struct {
	Src          string          `json:"src"`
	Tgt          string          `json:"tgt"`
	Options      segment.Options `json:"options"`
	CheckQuality bool            `json:"check_quality"`
}

// TranslateResult is the output of a successful document translation
type TranslateResult struct {
	Text         string                    `json:"text"`
	Units        []segment.TranslationUnit `json:"units"`
	SegmentCount int                       `json:"segment_count"`
	CachedCount  int                       `json:"cached_count"`
	Degraded     int                       `json:"degraded"`
	QualityScore *float64                  `json:"quality_score,omitempty"`
	Duration     float64                   `json:"duration"` // seconds
}

// JobHandler processes a job. The returned result is stored as JSON on success.
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) (any, error)

package models

import (
	"time"
)

// RunStatus represents the terminal state of one report run
type RunStatus string

const (
	RunStatusCompleted           RunStatus = "COMPLETED"
	RunStatusCompletedWithoutPDF RunStatus = "COMPLETED_WITHOUT_PDF" // Render failed and ALLOW_PDF_SKIP was set
	RunStatusInvalidInput        RunStatus = "INVALID_INPUT"
	RunStatusNotFound            RunStatus = "NOT_FOUND" // No source report under the prefix
	RunStatusStorageError        RunStatus = "STORAGE_ERROR"
	RunStatusRenderFailed        RunStatus = "RENDER_FAILED"
	RunStatusFailed              RunStatus = "FAILED"
)

// AllRunStatuses lists every status in display order
var AllRunStatuses = []RunStatus{
	RunStatusCompleted,
	RunStatusCompletedWithoutPDF,
	RunStatusInvalidInput,
	RunStatusNotFound,
	RunStatusStorageError,
	RunStatusRenderFailed,
	RunStatusFailed,
}

// RunRecord is the ledger entry written after each report run
type RunRecord struct {
	ID          string    `json:"id" db:"id"`
	Period      string    `json:"period" db:"period"` // YYYY-MM
	SrcBucket   string    `json:"src_bucket" db:"src_bucket"`
	SrcKey      string    `json:"src_key,omitempty" db:"src_key"`
	DestBucket  string    `json:"dest_bucket" db:"dest_bucket"`
	DestHTMLKey string    `json:"dest_html_key,omitempty" db:"dest_html_key"`
	DestPDFKey  string    `json:"dest_pdf_key,omitempty" db:"dest_pdf_key"`
	Renderer    string    `json:"renderer,omitempty" db:"renderer"`
	Status      RunStatus `json:"status" db:"status"`
	Error       string    `json:"error,omitempty" db:"error"`
	PDFSize     int64     `json:"pdf_size" db:"pdf_size"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	FinishedAt  time.Time `json:"finished_at" db:"finished_at"`
}

// Duration returns how long the run took
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

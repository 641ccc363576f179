package reportpdf

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
)

// internalErrorMessage is all a caller sees for unclassified failures
const internalErrorMessage = "Internal server error"

// NotFoundError indicates no source report exists for the period
type NotFoundError struct {
	Bucket string
	Prefix string
	File   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No %q found under %s (including subfolders).", e.File, storage.URI(e.Bucket, e.Prefix))
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// StorageError wraps a failure of the object store
type StorageError struct {
	Op     string // list src, read src, write html, write pdf
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("S3 error (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError checks if an error is a StorageError
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// RenderError indicates the PDF could not be produced or uploaded
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("PDF generation failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsRenderError checks if an error is a RenderError
func IsRenderError(err error) bool {
	var renderErr *RenderError
	return errors.As(err, &renderErr)
}

// StatusCode maps an error to its HTTP status
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case models.IsInvalidPeriodError(err):
		return http.StatusBadRequest
	case IsNotFoundError(err):
		return http.StatusNotFound
	case IsStorageError(err):
		if storage.IsBucketNotFoundError(err) || storage.IsObjectNotFoundError(err) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a caller
func PublicMessage(err error) string {
	switch {
	case models.IsInvalidPeriodError(err), IsNotFoundError(err), IsStorageError(err), IsRenderError(err):
		return err.Error()
	default:
		return internalErrorMessage
	}
}

// runStatus classifies the outcome of a run for the ledger
func runStatus(err error, pdfUploaded bool) models.RunStatus {
	switch {
	case err == nil && pdfUploaded:
		return models.RunStatusCompleted
	case err == nil:
		return models.RunStatusCompletedWithoutPDF
	case models.IsInvalidPeriodError(err):
		return models.RunStatusInvalidInput
	case IsNotFoundError(err):
		return models.RunStatusNotFound
	case IsStorageError(err):
		return models.RunStatusStorageError
	case IsRenderError(err):
		return models.RunStatusRenderFailed
	default:
		return models.RunStatusFailed
	}
}

// retryable reports whether a queued run should be redelivered
func retryable(err error) bool {
	if err == nil || models.IsInvalidPeriodError(err) || IsNotFoundError(err) {
		return false
	}
	if IsStorageError(err) && (storage.IsBucketNotFoundError(err) || storage.IsObjectNotFoundError(err)) {
		return false
	}
	return true
}

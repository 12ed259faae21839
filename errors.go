package cocohelper

import (
	"errors"
	"fmt"

	"github.com/swdee/go-cocohelper/validator"
)

var (
	// ErrNotFound is matched by ImageNotFoundError and AnnotationNotFoundError
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by ValidationError
	ErrValidation = errors.New("invalid COCO dataset")
	// ErrUsage is returned for invalid combinations of arguments
	ErrUsage = errors.New("invalid usage")
)

// ImageNotFoundError is returned when an image id is not in the dataset
type ImageNotFoundError struct {
	ImageID int64
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("image with id %d not found", e.ImageID)
}

// Unwrap returns ErrNotFound
func (e *ImageNotFoundError) Unwrap() error {
	return ErrNotFound
}

// AnnotationNotFoundError is returned when an annotation id is not in the
// dataset
type AnnotationNotFoundError struct {
	AnnotationID int64
}

func (e *AnnotationNotFoundError) Error() string {
	return fmt.Sprintf("annotation with id %d not found", e.AnnotationID)
}

// Unwrap returns ErrNotFound
func (e *AnnotationNotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError carries the failed checks of a dataset validation
type ValidationError struct {
	Report validator.Report
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: failed checks %v", ErrValidation, e.Report.Failed())
}

// Unwrap returns ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

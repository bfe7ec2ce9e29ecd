package services

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// UploadErrorCode classifies why an upload was rejected
type UploadErrorCode string

const (
	FileType    UploadErrorCode = "FILE_TYPE"
	FileSize    UploadErrorCode = "FILE_SIZE"
	FileCorrupt UploadErrorCode = "FILE_CORRUPT"
	Unknown     UploadErrorCode = "UNKNOWN"
)

// UploadError is returned by ProcessUpload. Err carries the pipeline
// ProcessingError, if any.
type UploadError struct {
	Code    UploadErrorCode
	Name    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to a response status
func (e *UploadError) HTTPStatus() int {
	switch e.Code {
	case FileType:
		return http.StatusUnsupportedMediaType
	case FileSize:
		return http.StatusRequestEntityTooLarge
	case FileCorrupt:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// validateUpload checks the file name and size before any parsing
func validateUpload(filename string, size int64, maxBytes int64, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	ok := false
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			ok = true
			break
		}
	}
	if !ok {
		return &UploadError{
			Code:    FileType,
			Name:    "Invalid file type",
			Message: "Only GPX files are allowed",
		}
	}

	if size > maxBytes {
		return fileSizeError(maxBytes)
	}
	if size == 0 {
		return &UploadError{
			Code:    FileCorrupt,
			Name:    "Empty file",
			Message: "The uploaded file is empty",
		}
	}
	return nil
}

func fileSizeError(maxBytes int64) *UploadError {
	return &UploadError{
		Code:    FileSize,
		Name:    "File too large",
		Message: fmt.Sprintf("File size must be less than %dMB", maxBytes/1024/1024),
	}
}

// uploadErrorFrom classifies a pipeline failure
func uploadErrorFrom(err error) *UploadError {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue
	}
	if errors.Is(err, gpx.ErrParse) {
		return &UploadError{
			Code:    FileCorrupt,
			Name:    "Invalid GPX file",
			Message: "The file could not be read as GPX",
			Err:     err,
		}
	}
	return &UploadError{
		Code:    Unknown,
		Name:    "Upload failed",
		Message: "The route could not be processed",
		Err:     err,
	}
}

package upload

import (
	"errors"
	"fmt"
)

// Code classifies why a file did not make it into the batch.
type Code string

const (
	CodeUnsupportedType Code = "UNSUPPORTED_TYPE"
	CodeTooManyFiles    Code = "TOO_MANY_FILES"
	CodeFileTooLarge    Code = "FILE_TOO_LARGE"
	CodeImageProcess    Code = "IMAGE_PROCESS_ERROR"
	CodeUpload          Code = "UPLOAD_ERROR"
	CodePersist         Code = "PERSIST_ERROR"
	// CodeValidation marks file parts sent under a field that does not carry uploads.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeBodyTooLarge marks the file that was being read when the request body cap was reached.
	CodeBodyTooLarge Code = "PAYLOAD_TOO_LARGE"
	// CodeBatchAborted marks files dropped because a sibling tripped the strict policy.
	CodeBatchAborted Code = "BATCH_ABORTED"
)

// FileError reports one failed file by its original filename.
type FileError struct {
	Filename string `json:"filename"`
	Code     Code   `json:"code"`
	Message  string `json:"error"`
}

var (
	// ErrMalformed means the multipart stream itself could not be read.
	ErrMalformed = errors.New("malformed multipart body")
	// ErrBodyTooLarge means the request body exceeded the server-wide cap before
	// any file part was seen, or under the strict policy.
	ErrBodyTooLarge = errors.New("request body too large")

	errFileTooLarge = errors.New("file too large")
)

type abortError struct {
	code Code
}

func (e abortError) Error() string {
	return fmt.Sprintf("batch aborted: %s", e.code)
}

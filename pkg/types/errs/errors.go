package errs

import "errors"

var (
	// ErrRecordNotFound - no metadata record for the requested id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrObjectNotFound - the blob itself is absent from storage
	// (e.g. a preview that was never generated).
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnsupportedMediaType - content type outside the allow-list.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrEmptyPayload - zero-length upload.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrStorageUnavailable - the blob store failed for a reason other
	// than a missing key; retryable by the caller.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMetadataPersist - the metadata store transaction failed.
	ErrMetadataPersist = errors.New("metadata persist failed")
)

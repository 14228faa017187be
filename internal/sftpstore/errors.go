package sftpstore

import (
	"errors"
	"fmt"
)

// ConnKind classifies connection failures. Network failures are worth
// retrying; auth and path failures are fatal for the run.
type ConnKind string

const (
	AuthError    ConnKind = "auth"
	NetworkError ConnKind = "network"
	PathError    ConnKind = "path"
)

// ConnectionError wraps a failure to establish or use the SFTP
// connection.
type ConnectionError struct {
	Kind ConnKind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("sftp %s error: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Retryable reports whether the error is a retryable connection
// failure.
func Retryable(err error) bool {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Kind == NetworkError
	}
	return false
}

// Fatal reports whether the error should abort the whole run.
func Fatal(err error) bool {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Kind == AuthError || ce.Kind == PathError
	}
	return false
}

// UploadError is a per-image transfer failure. It is isolated: the
// caller records it against that record and moves on.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

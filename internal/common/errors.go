// Package common defines shared constants and sentinel errors used across
// the upload pipeline. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Credential errors.
	ErrAuth         = errors.New("authentication failed")
	ErrUnauthorized = errors.New("unauthorized")

	// Remote directory errors.
	ErrDirectoryResolution = errors.New("directory resolution failed")

	// Local file errors.
	ErrChecksumIO = errors.New("checksum read failed")
	ErrValidation = errors.New("validation error")

	// Upload lifecycle errors.
	ErrUploadTask  = errors.New("create upload task failed")
	ErrSliceUpload = errors.New("slice upload failed")
	ErrFinalize    = errors.New("finalize upload failed")
	ErrPollTimeout = errors.New("upload result polling timed out")
	ErrPollFailed  = errors.New("server reported upload failure")

	// Share errors.
	ErrShareCreation = errors.New("share creation failed")

	// CLI errors.
	ErrUsage = errors.New("usage error")
)

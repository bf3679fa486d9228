// Package upload runs the chunked upload and share pipeline.
//
// A run resolves one remote directory, then takes every local artifact
// through checksum, upload task creation, sequential slice upload,
// completion and result polling, and finally issues a single share over the
// files that reached Completed. Each step is a small component with its own
// narrow API interface so it can be tested against the fake backend in
// panapi/pantest or a stub.
//
// Every task and each of its status changes is written to the journal.
package upload

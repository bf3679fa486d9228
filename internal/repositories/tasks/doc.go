// Package tasks provides the local persistence layer for upload tasks.
//
// # Overview
//
// Every UploadTask the pipeline creates is written to SQLite together with
// a log of its status transitions. A task that already reached Completed
// for the same directory, file name and etag lets a later run skip the
// upload entirely.
//
// Key Types
//
//   - type Repository       : row-level contract over dbx.DBTX
//   - type SQLiteRepository : SQLite implementation
//   - type Journal          : transactional facade used by the pipeline
//
// Typical Usage
//
//	db, _ := dbx.OpenSQLite(ctx, dbx.MemoryDSN, migrations.Migrations)
//	j := tasks.NewJournal(db)
//	_ = j.Record(ctx, task)
//	_ = j.Transition(ctx, task, models.StatusSlicesUploading, now, "")
//	done, _ := j.ListByRun(ctx, runID)
package tasks

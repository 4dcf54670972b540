// Package kvstore persists small named documents (the offline upload queue,
// the respondent profile) in an on-device SQLite database.
//
// Each key holds one text value that is replaced whole on every write, inside
// a transaction, so a reader never observes a partially written document.
// Writes retry briefly on SQLITE_BUSY so the CLI and a background upload pass
// can share the file.
package kvstore

// Package ingest talks to the ingestion endpoint and reconciles the offline
// queue against it.
//
// Client wraps a resty client for the two endpoints the field tool needs:
// fetching prompt sentences and uploading one clip with its respondent
// metadata. Reconciler runs a manual upload pass over pending queue items.
// Passes are sequential, never retried automatically, and guarded so only
// one runs at a time across processes sharing a data directory.
package ingest

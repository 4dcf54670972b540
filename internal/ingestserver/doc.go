// Package ingestserver implements clipkeeperd, the HTTP endpoint field
// devices upload to.
//
// The server hands out prompt sentences from a SQLite dataset, accepts
// sentence imports, and stores uploaded clips under
// <upload_dir>/<name>_<gender>_<age>/rec_<sentenceId>_<unix-ms>.mp4 with a
// .txt sidecar holding the sentence text and a row in the recordings table.
// Uploads are streamed part by part: the metadata fields must precede the
// video part because the destination folder is derived from them.
//
// Anything outside /api is served from the configured public directory with
// a fallback to index.html for client-side routes.
package ingestserver

// Package preflight provides readiness checks for the field device: the
// directories clipkeeper writes to, free space for new clips, the ffmpeg
// binary, and the ingestion endpoint.
//
// The session command runs the local checks before opening the recording
// screen so a full disk or missing camera binary is reported up front. The
// CLI "clipkeeper preflight" command runs everything, including the network
// check, and prints a table.
package preflight

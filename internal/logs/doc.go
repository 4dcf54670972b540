// Package logs reads clipkeeper's own log files for the `clipkeeper logs`
// command: the last N lines, then optionally new lines as they are written.
// Memory use is bounded by the requested line count.
package logs

// Package queue holds recorded clips on-device until they are uploaded.
//
// The Store keeps an ordered list of Items and persists the whole list under
// one key on every mutation. A mutation builds the next list, writes it, and
// only then replaces the in-memory copy, so a failed write leaves both sides
// at the previous snapshot. Items own their media handle exclusively; the
// handle is released only through Delete or Clear, never by a successful
// upload.
//
// One Store is shared by the capture session, the upload reconciler, and the
// CLI; its methods are safe for concurrent use.
package queue

// Package faults defines the error markers shared by the capture, queue, and
// upload packages.
//
// Every failure that crosses a package boundary is wrapped with one of the
// exported sentinels so callers can classify it with errors.Is:
//   - ErrCapture: device or permission failure while starting or stopping a
//     recording. The session retries the same prompt.
//   - ErrStorage: moving, deleting, or persisting captured media and queue
//     state. Resource cleanup failures are logged and never block removal of a
//     queue entry.
//   - ErrUpload: a single item failed to reach the ingestion endpoint. Only a
//     later manual reconciliation pass retries it.
//   - ErrPrecondition: the operation is not allowed in the current state (a
//     second reconciliation pass, a stop request while the UI is locked). No
//     state is mutated when this is returned.
package faults

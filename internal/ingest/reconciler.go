package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/faults"
	"clipkeeper/internal/logging"
	"clipkeeper/internal/queue"
)

// Uploader sends one clip to the ingestion endpoint.
type Uploader interface {
	Upload(ctx context.Context, item queue.Item, media io.Reader) (UploadResponse, error)
}

// Queue is the part of the offline queue a pass reads and updates.
type Queue interface {
	Pending() []queue.Item
	MarkUploaded(ctx context.Context, ids []string) (int, error)
}

// Report summarizes one reconciliation pass.
type Report struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	FailedIDs []string `json:"failed_ids"`
}

// Reconciler uploads pending queue items.
type Reconciler struct {
	uploader Uploader
	queue    Queue
	media    capture.Opener
	lockPath string
	logger   *slog.Logger
	running  atomic.Bool
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLockPath guards passes with a file lock so two processes sharing a data
// directory cannot reconcile at once.
func WithLockPath(path string) ReconcilerOption {
	return func(r *Reconciler) { r.lockPath = path }
}

// WithLogger sets the reconciler's logger.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler builds a reconciler reading clips through media.
func NewReconciler(uploader Uploader, q Queue, media capture.Opener, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{uploader: uploader, queue: q, media: media}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "reconcile")
	return r
}

// Running reports whether a pass is in progress in this process.
func (r *Reconciler) Running() bool {
	return r.running.Load()
}

// Reconcile uploads every pending item in queue order, one at a time. Per-item
// failures are reported in FailedIDs and do not stop the pass. Successes are
// persisted with one MarkUploaded call after the loop, even when ctx was
// cancelled part way through.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Report{}, faults.Wrap(faults.ErrPrecondition, "reconcile", "start", "upload already in progress", nil)
	}
	defer r.running.Store(false)

	if r.lockPath != "" {
		lock := flock.New(r.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return Report{}, faults.Wrap(faults.ErrStorage, "reconcile", "lock", r.lockPath, err)
		}
		if !ok {
			return Report{}, faults.Wrap(faults.ErrPrecondition, "reconcile", "lock", "another process is uploading", nil)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				r.logger.Warn("failed to release upload lock", logging.Error(err))
			}
		}()
	}

	pending := r.queue.Pending()
	report := Report{Attempted: len(pending)}
	if len(pending) == 0 {
		r.logger.Info("nothing to upload")
		return report, nil
	}
	r.logger.Info("upload pass started", logging.Int("pending", len(pending)))

	var succeeded []string
	for i, item := range pending {
		itemCtx := logging.WithItemID(ctx, item.ID)
		if err := r.uploadOne(ctx, item); err != nil {
			report.FailedIDs = append(report.FailedIDs, item.ID)
			logging.WarnWithContext(logging.WithContext(itemCtx, r.logger), "upload failed", "upload_failed",
				logging.String("progress", fmt.Sprintf("%d/%d", i+1, len(pending))),
				logging.String("error_kind", faults.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run upload again once the network is back"),
			)
			continue
		}
		succeeded = append(succeeded, item.ID)
		logging.WithContext(itemCtx, r.logger).Info("upload succeeded",
			logging.String("progress", fmt.Sprintf("%d/%d", i+1, len(pending))),
		)
	}

	if len(succeeded) > 0 {
		if _, err := r.queue.MarkUploaded(context.WithoutCancel(ctx), succeeded); err != nil {
			return report, err
		}
		report.Succeeded = len(succeeded)
	}
	r.logger.Info("upload pass finished",
		logging.Int("attempted", report.Attempted),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", len(report.FailedIDs)),
	)
	return report, nil
}

func (r *Reconciler) uploadOne(ctx context.Context, item queue.Item) error {
	if err := ctx.Err(); err != nil {
		return faults.Wrap(faults.ErrUpload, "reconcile", "upload", "item "+item.ID, err)
	}
	media, err := r.media.Open(item.Resource)
	if err != nil {
		if errors.Is(err, capture.ErrUnknownHandle) {
			return faults.Wrap(faults.ErrUpload, "reconcile", "open media", "clip no longer available", err)
		}
		return faults.Wrap(faults.ErrUpload, "reconcile", "open media", "item "+item.ID, err)
	}
	defer media.Close()
	_, err = r.uploader.Upload(ctx, item, media)
	return err
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/config"
	"clipkeeper/internal/faults"
	"clipkeeper/internal/logging"
	"clipkeeper/internal/preflight"
	"clipkeeper/internal/profile"
	"clipkeeper/internal/prompts"
	"clipkeeper/internal/queue"
	"clipkeeper/internal/session"
	"clipkeeper/internal/staging"
	"clipkeeper/internal/tui"
)

const (
	stateFeedBuffer = 64
	abortGrace      = 5 * time.Second
)

type aborter interface {
	Abort(ctx context.Context) (bool, error)
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	var sentencesFile string
	var limit int
	var uploadAfter bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Record one clip per prompt on the terminal screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) || !isatty.IsTerminal(os.Stdin.Fd()) {
				return faults.Wrap(faults.ErrPrecondition, "session", "start", "the recording screen needs an interactive terminal", nil)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipPreflight {
				if err := requireLocalPreflight(cfg); err != nil {
					return err
				}
			}
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				return runSession(cmd, ctx, cfg, device, sessionOptions{
					sentencesFile: sentencesFile,
					limit:         limit,
					uploadAfter:   uploadAfter,
				})
			})
		},
	}

	cmd.Flags().StringVar(&sentencesFile, "sentences", "", "Read prompts from a JSON file instead of the ingestion service")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of prompts to record (default from config)")
	cmd.Flags().BoolVar(&uploadAfter, "upload", false, "Upload pending clips when the session ends")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory, disk space, and ffmpeg checks")
	return cmd
}

type sessionOptions struct {
	sentencesFile string
	limit         int
	uploadAfter   bool
}

func runSession(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, device *deviceStores, opts sessionOptions) error {
	runCtx := cmd.Context()
	logger := ctx.loggerValue()

	respondent, err := loadRespondent(runCtx, device.profiles)
	if err != nil {
		return err
	}

	provider, err := promptProvider(ctx, opts.sentencesFile)
	if err != nil {
		return err
	}
	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Ingest.SentenceLimit
	}
	sentences, err := prompts.Load(runCtx, provider, limit)
	if err != nil {
		return err
	}

	if swept := staging.SweepStale(runCtx, cfg.Paths.StagingDir, staging.DefaultMaxAge, logger); len(swept.Removed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d abandoned partial clips from staging\n", len(swept.Removed))
	}

	camera := capture.NewFFmpegDevice(cfg, logger)
	backend := capture.NewBackend(cfg.Capture.Backend, camera,
		cfg.Paths.StagingDir, cfg.Paths.RecordingsDir, device.buffers,
		capture.WithLogger(logger),
	)

	updates, push := tui.Feed(stateFeedBuffer)
	controller, err := session.NewController(backend, device.queue, respondent, sentences, session.Options{
		LeadIn:   cfg.LeadIn(),
		Trail:    cfg.Trail(),
		Logger:   logger,
		OnChange: push,
	})
	if err != nil {
		return err
	}

	runErr := tui.Run(runCtx, controller, updates)
	if err := finishCapture(runCtx, cfg, controller, cmd.ErrOrStderr()); err != nil {
		logging.WarnWithContext(logger, "unfinished capture not stopped cleanly", "session_abort_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that ffmpeg released the camera"),
		)
	}
	if runErr != nil {
		return fmt.Errorf("recording screen: %w", runErr)
	}

	out := cmd.OutOrStdout()
	state := controller.State()
	fmt.Fprintf(out, "Recorded %d of %d prompts\n", state.PromptIndex, state.Total)

	if opts.uploadAfter {
		report, err := runUpload(cmd, ctx, device)
		if err != nil {
			return err
		}
		printUploadReport(out, report)
		return nil
	}

	pending := device.queue.Counts().Pending
	fmt.Fprintf(out, "%d clips waiting for upload\n", pending)
	warnVolatileClips(out, cfg, device.queue.Pending())
	return nil
}

// finishCapture stops a capture the operator left running when the screen
// closed and waits for any clip still being saved.
func finishCapture(base context.Context, cfg *config.Config, controller aborter, errOut io.Writer) error {
	timeout := cfg.Trail() + time.Duration(cfg.Capture.StopTimeoutSeconds)*time.Second + abortGrace
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(base), timeout)
	defer cancel()
	discarded, err := controller.Abort(abortCtx)
	if discarded {
		fmt.Fprintln(errOut, "Discarded the unfinished clip")
	}
	return err
}

func loadRespondent(ctx context.Context, profiles *profile.Store) (profile.Profile, error) {
	p, ok, err := profiles.Load(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	if !ok {
		return profile.Profile{}, faults.Wrap(faults.ErrPrecondition, "session", "start",
			"no respondent profile saved; run `clipkeeper profile set` first", nil)
	}
	return p, nil
}

func promptProvider(ctx *commandContext, sentencesFile string) (prompts.Provider, error) {
	if path := strings.TrimSpace(sentencesFile); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("resolve sentences file: %w", err)
		}
		return prompts.FileProvider{Path: expanded}, nil
	}
	return ctx.ingestClient()
}

func requireLocalPreflight(cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunLocal(cfg))
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, r := range failed {
		details = append(details, r.Name+": "+r.Detail)
	}
	return faults.Wrap(faults.ErrPrecondition, "session", "preflight", strings.Join(details, "; "), nil)
}

// warnVolatileClips reminds the operator that memory-backed clips are gone
// once this process exits.
func warnVolatileClips(out io.Writer, cfg *config.Config, pending []queue.Item) {
	if cfg.Capture.Backend != config.BackendMemory {
		return
	}
	volatile := 0
	for _, item := range pending {
		if item.Resource.IsMemory() {
			volatile++
		}
	}
	if volatile > 0 {
		fmt.Fprintf(out, "warning: %d clips are held in memory and will be lost; rerun with --upload to send them before exit\n", volatile)
	}
}

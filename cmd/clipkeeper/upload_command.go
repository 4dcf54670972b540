package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"clipkeeper/internal/ingest"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload pending clips to the ingestion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				report, err := runUpload(cmd, ctx, device)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				printUploadReport(cmd.OutOrStdout(), report)
				if len(report.FailedIDs) > 0 {
					return fmt.Errorf("%d of %d clips failed to upload; run `clipkeeper upload` again to retry", len(report.FailedIDs), report.Attempted)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the pass report as JSON")
	return cmd
}

func runUpload(cmd *cobra.Command, ctx *commandContext, device *deviceStores) (ingest.Report, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return ingest.Report{}, err
	}
	client, err := ctx.ingestClient()
	if err != nil {
		return ingest.Report{}, err
	}
	reconciler := ingest.NewReconciler(client, device.queue, device.resources(),
		ingest.WithLockPath(cfg.UploadLockPath()),
		ingest.WithLogger(ctx.loggerValue()),
	)
	return reconciler.Reconcile(cmd.Context())
}

func printUploadReport(out io.Writer, report ingest.Report) {
	if report.Attempted == 0 {
		fmt.Fprintln(out, "Nothing to upload")
		return
	}
	fmt.Fprintf(out, "Uploaded %d of %d clips\n", report.Succeeded, report.Attempted)
	if len(report.FailedIDs) > 0 {
		fmt.Fprintf(out, "Failed: %s\n", strings.Join(report.FailedIDs, ", "))
	}
}

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipkeeper/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueDeleteCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded clips, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				items := device.queue.Items()
				if pendingOnly {
					items = device.queue.Pending()
				}
				items = newestFirst(items)
				if jsonOutput {
					if items == nil {
						items = []queue.Item{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				printTable(cmd.OutOrStdout(), []column{
					{header: "ID", right: true},
					{header: "Sentence", right: true},
					{header: "Text"},
					{header: "Respondent"},
					{header: "Status"},
					{header: "Recorded"},
				}, buildQueueListRows(items))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only list clips not yet uploaded")
	return cmd
}

// newestFirst orders items by recording time, latest first. Items are
// appended in recording order, so ties keep reverse insertion order.
func newestFirst(items []queue.Item) []queue.Item {
	out := make([]queue.Item, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func buildQueueListRows(items []queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			strconv.FormatInt(item.SentenceID, 10),
			truncate(item.Text, 40),
			item.Metadata.Name,
			uploadStatus(item),
			item.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func uploadStatus(item queue.Item) string {
	if item.Uploaded {
		return "uploaded"
	}
	return "pending"
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending and uploaded counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				counts := device.queue.Counts()
				if jsonOutput {
					return writeJSON(cmd, map[string]int{
						"total":    counts.Total,
						"pending":  counts.Pending,
						"uploaded": counts.Uploaded,
					})
				}
				if counts.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				printTable(cmd.OutOrStdout(), []column{{header: "Status"}, {header: "Count", right: true}}, [][]string{
					{"Pending", strconv.Itoa(counts.Pending)},
					{"Uploaded", strconv.Itoa(counts.Uploaded)},
					{"Total", strconv.Itoa(counts.Total)},
				})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newQueueDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete clips from the queue and discard their media",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					id = strings.TrimSpace(id)
					removed, err := device.queue.Delete(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Deleted %s\n", id)
					} else {
						fmt.Fprintf(out, "No clip with id %s\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every clip from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				counts := device.queue.Counts()
				if counts.Pending > 0 && !confirmed {
					return fmt.Errorf("%d clips have not been uploaded; pass --yes to discard them", counts.Pending)
				}
				n, err := device.queue.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d clips\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Discard clips that have not been uploaded")
	return cmd
}

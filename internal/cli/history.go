package cli

import (
	"fmt"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/codegen/history"
	"github.com/spf13/cobra"
)

// HistoryCmd returns the history command group.
func HistoryCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune generation history",
	}
	cmd.AddCommand(historyListCmd(opts))
	cmd.AddCommand(historyCleanupCmd(opts))
	return cmd
}

func historyListCmd(opts *Options) *cobra.Command {
	var (
		tableID  uint64
		name     string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List history snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			result, err := services.History.List(cmd.Context(), opts.scope(services), history.ListQuery{
				TableID:   tableID,
				TableName: name,
				Page:      page,
				PageSize:  pageSize,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range result.Items {
				marker := ""
				if item.Corrupt {
					marker = " " + errLabel("[corrupt]")
				}
				fmt.Fprintf(out, "%-6d %-28s %3d files  %s  %s%s\n",
					item.ID, item.TableName, item.FileCount,
					item.GeneratedAt.Local().Format(time.DateTime), dimLabel(item.Operator), marker)
			}
			fmt.Fprintf(out, "%d of %d snapshot(s)\n", len(result.Items), result.Total)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tableID, "table", 0, "only snapshots of this table id")
	cmd.Flags().StringVar(&name, "name", "", "table name substring")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func historyCleanupCmd(opts *Options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete snapshots older than the retention window across all tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			if days <= 0 {
				days = services.History.RetentionDays()
			}
			deleted, err := services.History.Cleanup(cmd.Context(), days, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d snapshot(s) older than %d day(s)\n", okLabel("✓"), deleted, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (defaults to GEN_HISTORY_RETENTION_DAYS)")
	return cmd
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// GenerateCmd returns the generate command.
func GenerateCmd(opts *Options) *cobra.Command {
	var (
		group  uint64
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate <table-id>...",
		Short: "Generate code for tables and write a zip archive",
		Long: `Render the given tables, record a history snapshot per table and write
the resulting archive. Tables that fail are reported without stopping the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, 0, len(args))
			for _, raw := range args {
				id, err := parseID(raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			archive, err := services.Generator.Download(cmd.Context(), opts.scope(services), ids, group, opts.Operator)
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = archive.FileName
			}
			if dir := filepath.Dir(target); dir != "." {
				if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
					return fmt.Errorf("create output dir: %w", errMkdir)
				}
			}
			if errWrite := os.WriteFile(target, archive.Data, 0644); errWrite != nil {
				return fmt.Errorf("write archive: %w", errWrite)
			}

			out := cmd.OutOrStdout()
			for _, item := range archive.Batch.Tables {
				switch {
				case item.Error != "":
					fmt.Fprintf(out, "%s table %d: %s\n", errLabel("✗"), item.TableID, item.Error)
				case item.HistoryError != "":
					fmt.Fprintf(out, "%s %s: %d file(s), history not saved: %s\n", warnLabel("!"), item.TableName, len(item.Artifacts), item.HistoryError)
				case len(item.Failures) > 0:
					fmt.Fprintf(out, "%s %s: %d file(s), %d template failure(s), history #%d\n", warnLabel("!"), item.TableName, len(item.Artifacts), len(item.Failures), item.HistoryID)
				default:
					fmt.Fprintf(out, "%s %s: %d file(s), history #%d\n", okLabel("✓"), item.TableName, len(item.Artifacts), item.HistoryID)
				}
			}
			fmt.Fprintf(out, "wrote %s (%d files, run %s)\n", target, archive.Files, dimLabel(archive.Batch.RunID))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&group, "group", 0, "template group id (0 is the built-in group)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (defaults to the generated file name)")
	return cmd
}

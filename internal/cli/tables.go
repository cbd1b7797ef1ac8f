package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/introspect"
	"github.com/router-for-me/CodegenAdmin/internal/store"
	"github.com/spf13/cobra"
)

// TablesCmd returns the tables command group.
func TablesCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage imported table configurations",
	}
	cmd.AddCommand(tablesDBCmd(opts))
	cmd.AddCommand(tablesListCmd(opts))
	cmd.AddCommand(tablesImportCmd(opts))
	cmd.AddCommand(tablesSyncCmd(opts))
	cmd.AddCommand(tablesPreviewCmd(opts))
	return cmd
}

func tablesDBCmd(opts *Options) *cobra.Command {
	var (
		dataSource string
		name       string
		excludes   []string
	)
	cmd := &cobra.Command{
		Use:   "db",
		Short: "List importable tables of a data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsID, err := parseOptionalID(dataSource)
			if err != nil {
				return err
			}
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			tables, err := services.Generator.ListDBTables(cmd.Context(), opts.scope(services), dsID, introspect.Filter{
				Name:            name,
				ExcludePrefixes: excludes,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tables) == 0 {
				fmt.Fprintln(out, dimLabel("no importable tables"))
				return nil
			}
			for _, t := range tables {
				fmt.Fprintf(out, "%-32s %s\n", t.Name, dimLabel(t.Comment))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataSource, "data-source", "", "data source id (empty for the primary database)")
	cmd.Flags().StringVar(&name, "name", "", "table name substring")
	cmd.Flags().StringSliceVar(&excludes, "exclude-prefix", nil, "table name prefixes to hide")
	return cmd
}

func tablesListCmd(opts *Options) *cobra.Command {
	var (
		name     string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported table configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			tables, total, err := services.Tables.List(cmd.Context(), opts.scope(services), store.TableQuery{
				TableName: name,
				Page:      page,
				PageSize:  pageSize,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range tables {
				fmt.Fprintf(out, "%-6d %-28s %-24s %s\n", t.ID, t.TableName, t.ClassName, dimLabel(t.TenantID))
			}
			fmt.Fprintf(out, "%d of %d table(s)\n", len(tables), total)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "table name substring")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func tablesImportCmd(opts *Options) *cobra.Command {
	var dataSource string
	cmd := &cobra.Command{
		Use:   "import <table>...",
		Short: "Import table configurations from a data source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsID, err := parseOptionalID(dataSource)
			if err != nil {
				return err
			}
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			imported, err := services.Generator.ImportTables(cmd.Context(), opts.scope(services), dsID, args, opts.Operator)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range imported {
				fmt.Fprintf(out, "%s %-6d %s (%d columns)\n", okLabel("✓"), t.ID, t.TableName, len(t.Columns))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataSource, "data-source", "", "data source id (empty for the primary database)")
	return cmd
}

func tablesSyncCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <table-id>",
		Short: "Reconcile a table configuration with the live schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			result, err := services.Generator.SyncTable(cmd.Context(), opts.scope(services), id, opts.Operator)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s table %d synced\n", okLabel("✓"), result.TableID)
			for _, key := range []string{"inserted", "updated", "deleted"} {
				printKV(cmd, key, result.Changes[key])
			}
			return nil
		},
	}
}

func tablesPreviewCmd(opts *Options) *cobra.Command {
	var (
		group uint64
		file  string
	)
	cmd := &cobra.Command{
		Use:   "preview <table-id>",
		Short: "Render a table without recording history",
		Long: `Render every template of the group for one table. Without --file the
artifact paths are listed; with --file the matching artifact is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			services, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer services.Close()

			result, err := services.Generator.Preview(cmd.Context(), opts.scope(services), id, group)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if file != "" {
				for _, a := range result.Artifacts {
					if a.Path == file || a.Name == file {
						fmt.Fprint(out, a.Content)
						return nil
					}
				}
				return fmt.Errorf("no artifact named %q", file)
			}
			for _, a := range result.Artifacts {
				fmt.Fprintf(out, "%-64s %6d lines  %s\n", a.Path, a.LineCount, dimLabel(a.Language))
			}
			for _, f := range result.Failures {
				fmt.Fprintf(out, "%s %s: %s\n", errLabel("✗"), f.TemplateID, f.Error)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&group, "group", 0, "template group id (0 is the built-in group)")
	cmd.Flags().StringVar(&file, "file", "", "print the artifact with this path or name")
	return cmd
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseOptionalID(raw string) (*uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

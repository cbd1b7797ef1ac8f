package cli

import (
	"fmt"

	"github.com/router-for-me/CodegenAdmin/internal/app"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/spf13/cobra"
)

// StatusCmd returns the status command.
func StatusCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and database state",
		Long: `Display the resolved config file, the database dialect and whether
the schema has been migrated. Nothing is modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.appConfig()
			if err != nil {
				return err
			}
			configPath := config.ResolveConfigPath(cfg.ConfigPath)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Codegen Status")
			if app.ConfigExists(configPath) {
				printKV(cmd, "config", configPath)
			} else {
				printKV(cmd, "config", warnLabel("missing ")+dimLabel(configPath))
			}

			dsn, errDSN := config.LoadDatabaseDSN(configPath)
			if errDSN != nil {
				printKV(cmd, "database", errLabel(errDSN.Error()))
				return nil
			}
			conn, errOpen := db.Open(dsn)
			if errOpen != nil {
				printKV(cmd, "database", errLabel(errOpen.Error()))
				return nil
			}
			defer func() {
				if sqlDB, errDB := conn.DB(); errDB == nil {
					_ = sqlDB.Close()
				}
			}()
			printKV(cmd, "dialect", db.DialectName(conn))

			ready, errReady := app.SchemaReady(conn)
			if errReady != nil {
				return errReady
			}
			if !ready {
				printKV(cmd, "schema", warnLabel("not migrated")+" (run `codegenctl migrate`)")
				return nil
			}
			printKV(cmd, "schema", okLabel("ready"))

			var tables, histories int64
			conn.Model(&models.GenTable{}).Count(&tables)
			conn.Model(&models.GenHistory{}).Count(&histories)
			printKV(cmd, "tables", tables)
			printKV(cmd, "history", histories)
			printKV(cmd, "super tenant", config.LoadTenantConfig(configPath).SuperTenantID)
			return nil
		},
	}
}

// MigrateCmd returns the migrate command.
func MigrateCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.appConfig()
			if err != nil {
				return err
			}
			if errMigrate := app.Migrate(cmd.Context(), cfg); errMigrate != nil {
				return errMigrate
			}
			fmt.Fprintln(cmd.OutOrStdout(), okLabel("✓"), "schema migrated")
			return nil
		},
	}
}

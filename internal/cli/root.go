// Package cli implements codegenctl, the operator command line for the code generator.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/router-for-me/CodegenAdmin/internal/app"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	"github.com/spf13/cobra"
)

// Options are the flags shared by every subcommand.
type Options struct {
	ConfigPath string
	TenantID   string
	Operator   string
}

// NewRootCmd builds the codegenctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	rootCmd := &cobra.Command{
		Use:   "codegenctl",
		Short: "Operate the code generator from the command line",
		Long: `codegenctl imports table configurations, renders previews, generates
code archives and maintains generation history against the same database
the admin API uses.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path (or env CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.TenantID, "tenant", "", "tenant to act for (defaults to the super tenant)")
	rootCmd.PersistentFlags().StringVar(&opts.Operator, "operator", "codegenctl", "operator name recorded on changes")

	rootCmd.AddCommand(StatusCmd(opts))
	rootCmd.AddCommand(MigrateCmd(opts))
	rootCmd.AddCommand(TablesCmd(opts))
	rootCmd.AddCommand(GenerateCmd(opts))
	rootCmd.AddCommand(HistoryCmd(opts))
	rootCmd.AddCommand(TokenCmd(opts))
	return rootCmd
}

func (o *Options) appConfig() (config.AppConfig, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.AppConfig{}, err
	}
	if strings.TrimSpace(o.ConfigPath) != "" {
		cfg.ConfigPath = config.ResolveConfigPath(o.ConfigPath)
	}
	return cfg, nil
}

// open connects and migrates; callers must Close the result.
func (o *Options) open(ctx context.Context) (*app.Services, error) {
	cfg, err := o.appConfig()
	if err != nil {
		return nil, err
	}
	return app.OpenServices(ctx, cfg)
}

// scope resolves the tenant scope for the command.
func (o *Options) scope(services *app.Services) tenant.Scope {
	tenantID := strings.TrimSpace(o.TenantID)
	if tenantID == "" {
		tenantID = services.Tenant.SuperTenantID
	}
	return tenant.NewScope(tenantID, services.Tenant.SuperTenantID)
}

var (
	okLabel   = color.New(color.FgGreen).SprintFunc()
	warnLabel = color.New(color.FgYellow).SprintFunc()
	errLabel  = color.New(color.FgRed).SprintFunc()
	dimLabel  = color.New(color.Faint).SprintFunc()
)

func printKV(cmd *cobra.Command, key string, value any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %v\n", key+":", value)
}

package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/http/api/admin/permissions"
	"github.com/router-for-me/CodegenAdmin/internal/security"
	"github.com/spf13/cobra"
)

// TokenCmd returns the token command group.
func TokenCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue admin API tokens",
	}
	cmd.AddCommand(tokenIssueCmd(opts))
	return cmd
}

func tokenIssueCmd(opts *Options) *cobra.Command {
	var (
		username string
		perms    []string
		permFile string
		super    bool
		expiry   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an admin token with the configured JWT secret",
		Long: `Sign an admin token for --tenant. Permission keys use the form
"METHOD /v0/admin/..." as listed by GET /v0/admin/permissions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.appConfig()
			if err != nil {
				return err
			}
			configPath := config.ResolveConfigPath(cfg.ConfigPath)
			jwtCfg, err := config.LoadJWTConfig(configPath)
			if err != nil {
				return err
			}
			tenantCfg := config.LoadTenantConfig(configPath)
			tenantID := strings.TrimSpace(opts.TenantID)
			if tenantID == "" {
				tenantID = tenantCfg.SuperTenantID
			}
			if expiry <= 0 {
				expiry = jwtCfg.Expiry
			}

			if permFile != "" {
				raw, errRead := os.ReadFile(permFile)
				if errRead != nil {
					return fmt.Errorf("read permission file: %w", errRead)
				}
				perms = append(perms, permissions.ParsePermissions(raw)...)
			}
			normalized := permissions.NormalizePermissions(perms)
			if errPerms := permissions.ValidatePermissions(normalized); errPerms != nil {
				return errPerms
			}
			if !super && len(normalized) == 0 {
				return fmt.Errorf("grant at least one --perm or pass --super")
			}

			token, err := security.IssueAdminToken(jwtCfg.Secret, security.AdminClaims{
				TenantID:    tenantID,
				Username:    username,
				Permissions: normalized,
				SuperAdmin:  super,
			}, expiry, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "admin", "username stamped on generated history")
	cmd.Flags().StringArrayVar(&perms, "perm", nil, "permission key to grant (repeatable)")
	cmd.Flags().StringVar(&permFile, "perm-file", "", "JSON array of permission keys to grant")
	cmd.Flags().BoolVar(&super, "super", false, "bypass permission checks")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime (defaults to jwt.expiry)")
	return cmd
}

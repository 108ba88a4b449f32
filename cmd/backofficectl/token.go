package main

import (
	"encoding/json"
	"fmt"
	"time"

	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/config"
	"hvac-backoffice/internal/rbac"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue API tokens out of band",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign an access/refresh pair with the API's JWT settings",
	Long:  `issue signs a token pair for one staff member. It is the only way to obtain super_admin or support tokens, and the way to obtain any token when the API runs in production.`,
	RunE:  runTokenIssue,
}

var (
	tokenUser string
	tokenRole string
)

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenUser, "user", "", "user id (token subject)")
	tokenIssueCmd.Flags().StringVar(&tokenRole, "role", "", "role to grant")

	tokenCmd.AddCommand(tokenIssueCmd)
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	if err := requireCompany(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return issueToken(cmd, cfg.Auth, time.Now(), auth.Identity{UserID: tokenUser, CompanyID: companyID, Role: tokenRole})
}

func issueToken(cmd *cobra.Command, cfg config.AuthConfig, now time.Time, id auth.Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("--user is required")
	}
	if !rbac.IsKnownRole(id.Role) {
		return fmt.Errorf("unknown role %q", id.Role)
	}
	m, err := auth.NewManager(cfg)
	if err != nil {
		return err
	}
	pair, err := m.IssuePair(now, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pair)
}

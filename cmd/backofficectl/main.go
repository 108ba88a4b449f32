package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hvac-backoffice/internal/config"
	"hvac-backoffice/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backofficectl",
	Short: "Operator tooling for the HVAC back office",
	Long:  `backofficectl inspects and maintains the back office stores the API runs against: window templates, the availability ledger, call sessions and reports.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var companyID string

func init() {
	rootCmd.PersistentFlags().StringVar(&companyID, "company", "", "company id to operate on")

	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// infra holds the connections a command opened. Close releases them.
type infra struct {
	cfg config.Config
	db  *sql.DB
	rdb *redis.Client
}

func openInfra(ctx context.Context) (*infra, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, err
	}
	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &infra{cfg: cfg, db: db, rdb: rdb}, nil
}

func (in *infra) Close() {
	_ = in.rdb.Close()
	_ = in.db.Close()
}

func requireCompany() error {
	if companyID == "" {
		return fmt.Errorf("--company is required")
	}
	return nil
}

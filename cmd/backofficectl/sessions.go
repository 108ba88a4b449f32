package main

import (
	"fmt"

	"hvac-backoffice/internal/audit"
	"hvac-backoffice/internal/callsession"
	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/voice"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain live call sessions",
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Finalize and remove expired call sessions once",
	RunE:  runSessionsSweep,
}

var sweepLimit int

func init() {
	sessionsSweepCmd.Flags().IntVar(&sweepLimit, "limit", 100, "maximum sessions to sweep")

	sessionsCmd.AddCommand(sessionsSweepCmd)
}

func runSessionsSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, err := openInfra(ctx)
	if err != nil {
		return err
	}
	defer in.Close()

	if in.cfg.Scheduling.SessionBackend != "redis" {
		return fmt.Errorf("session backend %q is not shared; only redis sessions can be swept externally", in.cfg.Scheduling.SessionBackend)
	}
	callSvc := calls.NewService(calls.NewPostgresRepo(in.db), audit.NewService(audit.NewPostgresRepo(in.db)))
	sweeper := voice.NewSweeper(callsession.NewRedisStore(in.rdb, 0), callSvc, 0, sweepLimit)

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "swept %d expired sessions\n", n)
	return nil
}

package main

import (
	"fmt"
	"text/tabwriter"

	"hvac-backoffice/internal/availability"

	"github.com/spf13/cobra"
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Inspect the availability ledger",
}

var availabilityShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show window capacity for a date (YYYY-MM-DD or today)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAvailabilityShow,
}

func init() {
	availabilityCmd.AddCommand(availabilityShowCmd)
}

func runAvailabilityShow(cmd *cobra.Command, args []string) error {
	if err := requireCompany(); err != nil {
		return err
	}
	ctx := cmd.Context()
	in, err := openInfra(ctx)
	if err != nil {
		return err
	}
	defer in.Close()

	tmpl := availability.DefaultTemplate(in.cfg.Scheduling.WindowCapacity)
	if in.cfg.Scheduling.TemplateFile != "" {
		if tmpl, err = availability.LoadTemplateFile(in.cfg.Scheduling.TemplateFile); err != nil {
			return err
		}
	}
	var ledger availability.Ledger
	switch in.cfg.Scheduling.LedgerBackend {
	case "redis":
		ledger = availability.NewRedisLedger(in.rdb)
	case "memory":
		return fmt.Errorf("memory ledger lives inside the api process")
	default:
		ledger = availability.NewPostgresLedger(in.db)
	}
	svc := availability.NewService(ledger, tmpl, in.cfg.Location())

	date := args[0]
	if date == "today" {
		date = svc.Today()
	}
	windows, err := svc.GetAvailability(ctx, companyID, date)
	if err != nil {
		return err
	}
	return printWindows(cmd, date, windows)
}

func printWindows(cmd *cobra.Command, date string, windows []availability.WindowAvailability) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", date)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WINDOW\tLABEL\tBOOKED\tCAPACITY\tAVAILABLE")
	for _, a := range windows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", a.Name, a.Label, a.Booked, a.Capacity, a.Available)
	}
	return w.Flush()
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"hvac-backoffice/internal/reporting"

	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Print company reports",
}

var reportsCallsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Summarize call outcomes",
	RunE:  runReportsCalls,
}

var reportsHoldbackCmd = &cobra.Command{
	Use:   "holdback",
	Short: "Summarize withheld payments",
	RunE:  runReportsHoldback,
}

var (
	reportDays     int
	reportCurrency string
)

func init() {
	reportsCmd.PersistentFlags().IntVar(&reportDays, "days", 30, "number of days back from now")
	reportsHoldbackCmd.Flags().StringVar(&reportCurrency, "currency", "USD", "payment currency")

	reportsCmd.AddCommand(reportsCallsCmd)
	reportsCmd.AddCommand(reportsHoldbackCmd)
}

func reportWindow(now time.Time) (reporting.TimeRange, error) {
	if reportDays <= 0 {
		return reporting.TimeRange{}, fmt.Errorf("--days must be positive")
	}
	return reporting.TimeRange{From: now.AddDate(0, 0, -reportDays), To: now}, nil
}

func runReportsCalls(cmd *cobra.Command, args []string) error {
	if err := requireCompany(); err != nil {
		return err
	}
	r, err := reportWindow(time.Now().UTC())
	if err != nil {
		return err
	}
	in, err := openInfra(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	sum, err := reporting.NewService(reporting.NewPostgresRepo(in.db)).CallsSummary(cmd.Context(), companyID, r)
	if err != nil {
		return err
	}
	return printCallsSummary(cmd, sum)
}

func runReportsHoldback(cmd *cobra.Command, args []string) error {
	if err := requireCompany(); err != nil {
		return err
	}
	r, err := reportWindow(time.Now().UTC())
	if err != nil {
		return err
	}
	in, err := openInfra(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	sum, err := reporting.NewService(reporting.NewPostgresRepo(in.db)).HoldbackSummary(cmd.Context(), companyID, r, reportCurrency)
	if err != nil {
		return err
	}
	return printHoldbackSummary(cmd, sum)
}

func printCallsSummary(cmd *cobra.Command, s reporting.CallsSummary) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	rows := []struct {
		k string
		v any
	}{
		{"total calls", s.TotalCalls},
		{"in progress", s.InProgressCalls},
		{"missed", s.MissedCalls},
		{"failed", s.FailedCalls},
		{"appointments created", s.AppointmentsCreated},
		{"information provided", s.InformationProvided},
		{"customer hangups", s.CustomerHangups},
		{"technical issues", s.TechnicalIssues},
		{"transferred to human", s.TransferredToHuman},
		{"average duration (s)", s.AverageDurationSeconds},
		{"booking rate", fmt.Sprintf("%.1f%%", s.BookingRate*100)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%v\n", r.k, r.v)
	}
	return w.Flush()
}

func printHoldbackSummary(cmd *cobra.Command, s reporting.HoldbackSummary) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "payments\t%d\n", s.Payments)
	fmt.Fprintf(w, "withheld\t%s\n", formatMinor(s.WithheldMinor, s.Currency))
	fmt.Fprintf(w, "released\t%s\n", formatMinor(s.ReleasedMinor, s.Currency))
	fmt.Fprintf(w, "blocked\t%s\n", formatMinor(s.BlockedMinor, s.Currency))
	fmt.Fprintf(w, "pending\t%s\n", formatMinor(s.PendingMinor, s.Currency))
	return w.Flush()
}

func formatMinor(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

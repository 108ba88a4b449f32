package main

import (
	"fmt"
	"text/tabwriter"

	"hvac-backoffice/internal/availability"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Work with availability window templates",
}

var templateValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a YAML window template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateValidate,
}

var templateDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in template as YAML",
	RunE:  runTemplateDefault,
}

var defaultCapacity int

func init() {
	templateDefaultCmd.Flags().IntVar(&defaultCapacity, "capacity", 4, "capacity per window")

	templateCmd.AddCommand(templateValidateCmd)
	templateCmd.AddCommand(templateDefaultCmd)
}

func runTemplateValidate(cmd *cobra.Command, args []string) error {
	tmpl, err := availability.LoadTemplateFile(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WINDOW\tLABEL\tCAPACITY")
	total := 0
	for _, t := range tmpl {
		fmt.Fprintf(w, "%s\t%s\t%d\n", t.Name, t.Label, t.Capacity)
		total += t.Capacity
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d windows, %d appointments per day\n", len(tmpl), total)
	return nil
}

func runTemplateDefault(cmd *cobra.Command, args []string) error {
	if defaultCapacity < 0 {
		return fmt.Errorf("--capacity must not be negative")
	}
	out, err := yaml.Marshal(map[string]any{"windows": availability.DefaultTemplate(defaultCapacity)})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/iliyamo/carwash-dashboard/internal/repository"
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Read-only database diagnostics",
}

var diagSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check that every required table and column exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := env(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		report, err := repository.NewDiagRepo(db).SchemaReport(ctx)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		if !renderSchema(cmd.OutOrStdout(), report) {
			return fmt.Errorf("schema check failed")
		}
		return nil
	},
}

var diagTimingCmd = &cobra.Command{
	Use:   "timing",
	Short: "Run the sample queries and report their latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := env(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		renderTimings(cmd.OutOrStdout(), repository.NewDiagRepo(db).Timings(ctx))
		return nil
	},
}

func init() {
	diagCmd.AddCommand(diagSchemaCmd)
	diagCmd.AddCommand(diagTimingCmd)
}

// renderSchema writes one row per table and reports whether the schema is
// complete.
func renderSchema(w io.Writer, report []repository.TableReport) bool {
	healthy := true
	table := pterm.TableData{{"TABLE", "STATUS", "MISSING COLUMNS"}}
	for _, t := range report {
		status := "ok"
		switch {
		case !t.Exists:
			status, healthy = "missing", false
		case len(t.MissingColumns) > 0:
			status, healthy = "incomplete", false
		}
		table = append(table, []string{t.Table, status, strings.Join(t.MissingColumns, ", ")})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(table).Srender()
	if err != nil {
		out = fmt.Sprint(table)
	}
	fmt.Fprintln(w, out)
	if healthy {
		fmt.Fprintln(w, "schema OK")
	}
	return healthy
}

func renderTimings(w io.Writer, timings []repository.QueryTiming) {
	var total float64
	table := pterm.TableData{{"QUERY", "MS", "ERROR"}}
	for _, t := range timings {
		total += t.MS
		table = append(table, []string{t.Name, fmt.Sprintf("%.2f", t.MS), t.Error})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(table).Srender()
	if err != nil {
		out = fmt.Sprint(table)
	}
	fmt.Fprintln(w, out)
	fmt.Fprintf(w, "total %.2f ms\n", total)
}

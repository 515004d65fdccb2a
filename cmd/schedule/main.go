// Command schedule prints the unlock timeline of a release schedule without
// touching storage.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/reporting"
	"solana-security-token/internal/vesting"
)

var (
	params       vesting.ScheduleParams
	amount       uint64
	commencement uint64
	format       string
	outPath      string
)

var rootCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the unlock timeline of a release schedule",
	Long: `Schedule validates release schedule parameters with the same rules as
schedule creation and prints when each portion of a grant unlocks.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSchedule,
}

func init() {
	f := rootCmd.Flags()
	f.Uint64Var(&params.ReleaseCount, "release-count", 1, "number of releases, the initial one included")
	f.Uint64Var(&params.DelayUntilFirstReleaseSeconds, "delay", 0, "seconds from commencement to the first periodic release")
	f.Uint64Var(&params.InitialReleaseBips, "initial-bips", domain.BipsPrecision, "share released at commencement, in basis points")
	f.Uint64Var(&params.PeriodBetweenReleasesSeconds, "period", 0, "seconds between periodic releases")
	f.Uint64Var(&amount, "amount", 0, "granted token amount")
	f.Uint64Var(&commencement, "commencement", 0, "commencement unix timestamp")
	f.StringVar(&format, "format", "markdown", "output format: csv or markdown")
	f.StringVar(&outPath, "out", "", "write to file instead of stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			fmt.Fprintf(os.Stderr, "Error: invalid schedule: %s (%s)\n", de.Message, de.Code)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if format != "csv" && format != "markdown" {
		return fmt.Errorf("unknown format %q (want csv or markdown)", format)
	}

	report, err := reporting.NewGenerator(nil).GenerateAdHoc(params, commencement, amount)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := render(w, report, format); err != nil {
		return fmt.Errorf("write timeline: %w", err)
	}
	if outPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d releases)\n", outPath, len(report.Points))
	}
	return nil
}

func render(w io.Writer, r *reporting.Report, format string) error {
	var body string
	switch format {
	case "csv":
		body = reporting.RenderCSV(r.Points)
	default:
		body = reporting.RenderMarkdown(r)
	}
	_, err := io.WriteString(w, body)
	return err
}

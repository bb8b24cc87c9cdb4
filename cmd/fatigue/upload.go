// ABOUTME: CLI commands for uploading heart rates and reported fatigue levels.
// ABOUTME: Also lists stored heart-rate samples.
package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/fatigue/internal/service"
	"github.com/spf13/cobra"
)

var (
	hrAt         string
	hrInterval   time.Duration
	hrNewSession bool

	reportAt string

	samplesLimit int
)

var hrCmd = &cobra.Command{
	Use:   "hr <id> <bpm> [bpm...]",
	Short: "Upload heart-rate samples",
	Long: `Upload one or more heart-rate samples and print the resulting fatigue levels.

Samples are spaced --interval apart. By default the last sample is stamped
now; use --at to stamp the first one instead. The estimate continues from the
subject's stored state unless --new-session is given.

EXAMPLES:

  fatigue hr ada1 142
  fatigue hr ada1 95 120 140 160 --interval 1m
  fatigue hr ada1 130 135 --at "2025-03-10 07:30" --new-session`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bpms := make([]float64, 0, len(args)-1)
		for _, a := range args[1:] {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid heart rate: %s", a)
			}
			bpms = append(bpms, v)
		}
		if hrInterval < 0 {
			return fmt.Errorf("--interval must not be negative")
		}

		start := svc.Now().Add(-time.Duration(len(bpms)-1) * hrInterval)
		if hrAt != "" {
			t, err := parseTime(hrAt, svc.Location())
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", hrAt)
			}
			start = t
		}

		samples := make([]service.Sample, len(bpms))
		for i, v := range bpms {
			samples[i] = service.Sample{HeartRate: v, At: start.Add(time.Duration(i) * hrInterval)}
		}

		res, err := svc.IngestHeartRates(context.Background(), args[0], samples, hrNewSession)
		if err != nil {
			return fmt.Errorf("failed to upload heart rates: %w", err)
		}

		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		color.New(color.FgGreen).Fprintf(out, "✓ Recorded %d samples\n", len(res.Levels))
		for i, o := range res.Observations {
			fmt.Fprintf(out, "  %s %5.0f bpm  fatigue %.4f\n",
				faint.Sprint(o.RecordedAt.In(svc.Location()).Format("15:04:05")),
				samples[i].HeartRate, res.Levels[i])
		}
		fmt.Fprintf(out, "  %s\n", faint.Sprintf("w_exp %.3f", res.WExp))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <id> <level>",
	Short: "Report a fatigue level directly",
	Long: `Record a fatigue level reported by the athlete or a coach.

The reported level shows up in peer summaries and group listings. It does not
change the estimator state carried into the next heart-rate upload.

EXAMPLES:

  fatigue report ada1 0.35
  fatigue report ada1 0.8 --at "2025-03-10 18:00"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid level: %s", args[1])
		}

		at := svc.Now()
		if reportAt != "" {
			t, err := parseTime(reportAt, svc.Location())
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", reportAt)
			}
			at = t
		}

		obs, err := svc.RecordFatigue(context.Background(), args[0], level, at)
		if err != nil {
			return fmt.Errorf("failed to report fatigue: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Reported fatigue %.3f\n", obs.Level)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n",
			color.New(color.Faint).Sprint(obs.ID.String()[:8]),
			obs.RecordedAt.In(svc.Location()).Format("2006-01-02 15:04"))
		return nil
	},
}

var samplesCmd = &cobra.Command{
	Use:   "samples <id>",
	Short: "List recent heart-rate samples",
	Long: `List the most recent heart-rate samples for a subject, oldest first.

EXAMPLES:

  fatigue samples ada1
  fatigue samples ada1 -n 200`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := svc.HeartRates(context.Background(), args[0], samplesLimit)
		if err != nil {
			return fmt.Errorf("failed to list samples: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(samples) == 0 {
			fmt.Fprintln(out, "No samples found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, s := range samples {
			fmt.Fprintf(out, "%s %s %5.0f bpm\n",
				faint.Sprint(s.ID.String()[:8]),
				faint.Sprint(s.RecordedAt.In(svc.Location()).Format("2006-01-02 15:04:05")),
				s.HeartRate)
		}
		return nil
	},
}

func init() {
	hrCmd.Flags().StringVar(&hrAt, "at", "", "timestamp of the first sample (YYYY-MM-DD HH:MM)")
	hrCmd.Flags().DurationVar(&hrInterval, "interval", time.Second, "time between samples")
	hrCmd.Flags().BoolVar(&hrNewSession, "new-session", false, "start from zero fatigue")

	reportCmd.Flags().StringVar(&reportAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")

	samplesCmd.Flags().IntVarP(&samplesLimit, "limit", "n", 20, "max number of samples")

	rootCmd.AddCommand(hrCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(samplesCmd)
}

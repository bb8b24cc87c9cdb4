// ABOUTME: CLI commands for the peer views: hourly summary, group listing, and activity log.
// ABOUTME: The hourly summary is charted with asciigraph.
package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/harperreed/fatigue/internal/hourly"
	"github.com/spf13/cobra"
)

var (
	peerNoChart bool

	activityClose bool
	activityAt    string
	activityLimit int

	obsSince string
	obsUntil string
	obsLimit int
)

var peerCmd = &cobra.Command{
	Use:   "peer <id>",
	Short: "Show a subject's hourly fatigue for today",
	Long: `Show the fatigue range and average for each local hour of today.

Observations come from the trailing summary window (window_hours in the
config) and are bucketed by local hour in the configured timezone. Hours
without observations are left blank.

EXAMPLES:

  fatigue peer ada1
  fatigue peer ada1 --no-chart`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := svc.PeerSummary(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to summarize: %w", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.Bold).Fprintf(out, "%s, %s (%s)\n",
			sum.Subject.FullName(), sum.Now.Format("Mon 2006-01-02"), sum.Now.Location())

		seen := 0
		faint := color.New(color.Faint)
		for _, b := range sum.Day {
			if b.Empty() {
				continue
			}
			seen++
			fmt.Fprintf(out, "  %02d:00  avg %.3f  range %.3f-%.3f  %s\n",
				b.Hour, *b.Mean, b.Range[0], b.Range[1], faint.Sprintf("(%d)", b.Count))
		}
		if seen == 0 {
			fmt.Fprintln(out, "  No observations today.")
			return nil
		}

		if !peerNoChart {
			fmt.Fprintln(out)
			fmt.Fprintln(out, chartDay(sum.Day))
		}
		return nil
	},
}

// chartDay plots hourly means; empty hours are gaps.
func chartDay(day hourly.Day) string {
	return asciigraph.Plot(day.Means(math.NaN()),
		asciigraph.Height(8),
		asciigraph.LowerBound(0),
		asciigraph.Precision(2),
		asciigraph.Caption("avg fatigue by hour (00-23)"))
}

var groupCmd = &cobra.Command{
	Use:   "group <group-id>",
	Short: "List a group's latest fatigue levels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		peers, err := svc.Group(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list group: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(peers) == 0 {
			fmt.Fprintf(out, "No subjects in group %s.\n", args[0])
			return nil
		}

		faint := color.New(color.Faint)
		for _, p := range peers {
			level := faint.Sprint("no data")
			if p.LastUpdate != 0 {
				at := time.Unix(p.LastUpdate, 0).In(svc.Location())
				level = fmt.Sprintf("%.3f at %s", p.FatigueLevel, at.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(out, "%s %s %s\n", faint.Sprint(p.ID[:8]), padRight(p.FirstName, 16), level)
		}
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Log or list peer-view activity",
	Long: `Track when a subject opens or closes a peer's detail view.

EXAMPLES:

  fatigue activity log ada1 bo22             # Ada opened Bo's view
  fatigue activity log ada1 bo22 --close     # ...and closed it
  fatigue activity list ada1`,
}

var activityLogCmd = &cobra.Command{
	Use:   "log <id> <peer-id>",
	Short: "Log opening or closing a peer's view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at := svc.Now()
		if activityAt != "" {
			t, err := parseTime(activityAt, svc.Location())
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", activityAt)
			}
			at = t
		}

		a, err := svc.LogActivity(context.Background(), args[0], args[1], at, !activityClose)
		if err != nil {
			return fmt.Errorf("failed to log activity: %w", err)
		}

		verb := "opened"
		if !a.Open {
			verb = "closed"
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Logged %s view\n", verb)
		return nil
	},
}

var activityListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List a subject's peer-view activity, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acts, err := svc.Activities(context.Background(), args[0], activityLimit)
		if err != nil {
			return fmt.Errorf("failed to list activity: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(acts) == 0 {
			fmt.Fprintln(out, "No activity found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, a := range acts {
			verb := "close"
			if a.Open {
				verb = "open "
			}
			fmt.Fprintf(out, "%s %s %s\n",
				faint.Sprint(a.RecordedAt.In(svc.Location()).Format("2006-01-02 15:04")),
				verb,
				a.PeerID.String()[:8])
		}
		return nil
	},
}

var observationsCmd = &cobra.Command{
	Use:     "observations <id>",
	Aliases: []string{"obs"},
	Short:   "List stored fatigue observations",
	Long: `List fatigue observations for a subject, oldest first.

Estimated observations come from heart-rate uploads; reported ones from
'fatigue report'.

EXAMPLES:

  fatigue observations ada1
  fatigue obs ada1 --since 2025-03-10 --until "2025-03-10 12:00"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var since, until *time.Time
		for _, f := range []struct {
			raw string
			dst **time.Time
		}{{obsSince, &since}, {obsUntil, &until}} {
			if f.raw == "" {
				continue
			}
			t, err := parseTime(f.raw, svc.Location())
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", f.raw)
			}
			*f.dst = &t
		}

		obs, err := svc.Observations(context.Background(), args[0], since, until)
		if err != nil {
			return fmt.Errorf("failed to list observations: %w", err)
		}
		if obsLimit > 0 && len(obs) > obsLimit {
			obs = obs[len(obs)-obsLimit:]
		}

		out := cmd.OutOrStdout()
		if len(obs) == 0 {
			fmt.Fprintln(out, "No observations found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, o := range obs {
			fmt.Fprintf(out, "%s %s %s %.4f\n",
				faint.Sprint(o.ID.String()[:8]),
				faint.Sprint(o.RecordedAt.In(svc.Location()).Format("2006-01-02 15:04:05")),
				padRight(string(o.Source), 10),
				o.Level)
		}
		return nil
	},
}

func init() {
	peerCmd.Flags().BoolVar(&peerNoChart, "no-chart", false, "skip the hourly chart")

	activityLogCmd.Flags().BoolVar(&activityClose, "close", false, "log closing the view instead of opening it")
	activityLogCmd.Flags().StringVar(&activityAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")
	activityListCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "max number of entries")
	activityCmd.AddCommand(activityLogCmd, activityListCmd)

	observationsCmd.Flags().StringVar(&obsSince, "since", "", "only observations at or after this time")
	observationsCmd.Flags().StringVar(&obsUntil, "until", "", "only observations before this time")
	observationsCmd.Flags().IntVarP(&obsLimit, "limit", "n", 50, "keep only the most recent N")

	rootCmd.AddCommand(peerCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(observationsCmd)
}

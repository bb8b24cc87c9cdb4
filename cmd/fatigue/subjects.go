// ABOUTME: CLI commands for registering, listing, and deleting subjects.
// ABOUTME: Registration by name creates a profile or updates the existing one.
package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/fatigue/internal/models"
	"github.com/harperreed/fatigue/internal/service"
	"github.com/spf13/cobra"
)

var (
	regGroup  string
	regAge    int
	regRestHR float64
	regHRRCP  float64
	regWTotal float64
	regK      float64
	regR      float64

	subjectsGroup string
)

var registerCmd = &cobra.Command{
	Use:     "register <first-name> [last-name]",
	Aliases: []string{"reg"},
	Short:   "Register or update a subject",
	Long: `Register a subject, or update the profile already registered under the
same first and last name.

New subjects need --group. Profile flags you leave out keep their stored
values on update, or take the configured defaults on create. Max heart rate
is recomputed as 200 - 0.7 * age whenever age changes.

EXAMPLES:

  fatigue register Ada Runner --group team-a --age 29
  fatigue register Ada Runner --rest-hr 48          # Update resting HR
  fatigue register Bo --group team-a --hrr-cp 30 --w-total 250`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := service.Registration{FirstName: args[0], GroupID: regGroup}
		if len(args) > 1 {
			reg.LastName = args[1]
		}
		flags := cmd.Flags()
		if flags.Changed("age") {
			reg.Age = &regAge
		}
		if flags.Changed("rest-hr") {
			reg.RestHR = &regRestHR
		}
		if flags.Changed("hrr-cp") {
			reg.HRRCP = &regHRRCP
		}
		if flags.Changed("w-total") {
			reg.WTotal = &regWTotal
		}
		if flags.Changed("k") {
			reg.K = &regK
		}
		if flags.Changed("r") {
			reg.R = &regR
		}

		subj, created, err := svc.Register(context.Background(), reg)
		if err != nil {
			return fmt.Errorf("failed to register: %w", err)
		}

		out := cmd.OutOrStdout()
		verb := "Updated"
		if created {
			verb = "Registered"
		}
		color.New(color.FgGreen).Fprintf(out, "✓ %s %s\n", verb, subj.FullName())
		printProfile(cmd, subj)
		return nil
	},
}

var subjectsCmd = &cobra.Command{
	Use:     "subjects",
	Aliases: []string{"ls", "list"},
	Short:   "List registered subjects",
	Long: `List registered subjects with their group and latest fatigue level.

The ID column is an 8-character prefix accepted by every other command.

EXAMPLES:

  fatigue subjects
  fatigue subjects --group team-a`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var group *string
		if subjectsGroup != "" {
			group = &subjectsGroup
		}
		subjects, err := svc.Subjects(context.Background(), group)
		if err != nil {
			return fmt.Errorf("failed to list subjects: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(subjects) == 0 {
			fmt.Fprintln(out, "No subjects found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, s := range subjects {
			fmt.Fprintf(out, "%s %s %s %s\n",
				faint.Sprint(s.ID.String()[:8]),
				padRight(truncate(s.FullName(), 24), 24),
				padRight(s.GroupID, 12),
				formatLevel(s))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a subject and all their data",
	Long: `Delete a subject by ID or ID prefix, along with their heart-rate samples,
fatigue observations, and activity log.

CAUTION:

  This permanently deletes the data. There is no undo.
  If the prefix matches multiple subjects, an error is returned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subj, err := svc.DeleteSubject(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete subject: %w", err)
		}

		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted %s\n", subj.FullName())
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", color.New(color.Faint).Sprint(subj.ID.String()[:8]))
		return nil
	},
}

func printProfile(cmd *cobra.Command, s *models.Subject) {
	out := cmd.OutOrStdout()
	faint := color.New(color.Faint)
	fmt.Fprintf(out, "  %s group %s\n", faint.Sprint(s.ID.String()[:8]), s.GroupID)
	fmt.Fprintf(out, "  age %d  rest %.0f  max %.1f bpm\n", s.Age, s.RestHR, s.MaxHR)
	fmt.Fprintf(out, "  hrr_cp %.1f%%  w_total %.1f  k %.2f  r %.2f\n", s.HRRCP, s.WTotal, s.K, s.R)
}

func formatLevel(s *models.Subject) string {
	if !s.HasFatigue() {
		return color.New(color.Faint).Sprint("no data")
	}
	return fmt.Sprintf("%.3f at %s", s.FatigueLevel, s.LastUpdate.In(svc.Location()).Format("2006-01-02 15:04"))
}

func init() {
	f := registerCmd.Flags()
	f.StringVarP(&regGroup, "group", "g", "", "group ID (required for new subjects)")
	f.IntVar(&regAge, "age", 0, "age in years")
	f.Float64Var(&regRestHR, "rest-hr", 0, "resting heart rate (bpm)")
	f.Float64Var(&regHRRCP, "hrr-cp", 0, "critical heart-rate reserve threshold (%)")
	f.Float64Var(&regWTotal, "w-total", 0, "work capacity used to normalize fatigue")
	f.Float64Var(&regK, "k", 0, "depletion rate")
	f.Float64Var(&regR, "r", 0, "recovery rate")

	subjectsCmd.Flags().StringVarP(&subjectsGroup, "group", "g", "", "only list this group")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(deleteCmd)
}

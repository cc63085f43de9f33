package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/repair"
)

// userFlag returns nil for an empty --user, meaning every user.
func userFlag(user string) *budget.UserID {
	if user == "" {
		return nil
	}
	u := budget.UserID(user)
	return &u
}

func scopeLabel(user string) string {
	if user == "" {
		return "all users"
	}
	return user
}

// =============================================================================
// DIAGNOSE
// =============================================================================

type diagnoseReport struct {
	Diagnosis    repair.Diagnosis `json:"diagnosis" yaml:"diagnosis"`
	ConfigsFixed *int             `json:"configs_fixed,omitempty" yaml:"configs_fixed,omitempty"`
	Repair       any              `json:"repair,omitempty" yaml:"repair,omitempty"`
}

func newDiagnoseCommand(a *app) *cobra.Command {
	var user string
	var fix bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Count data problems, optionally repairing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			diag, err := a.engine.Diagnose(ctx, userFlag(user))
			if err != nil {
				return err
			}
			report := diagnoseReport{Diagnosis: diag}

			if fix {
				fixed, err := a.engine.RepairConfigs(ctx, a.verbose)
				if err != nil {
					return fmt.Errorf("repairing configs: %w", err)
				}
				report.ConfigsFixed = &fixed

				if u := userFlag(user); u != nil {
					counters, err := a.engine.Repair(ctx, u, a.verbose)
					if err != nil {
						return err
					}
					report.Repair = counters
				} else {
					summary, err := a.engine.RepairAll(ctx, a.verbose)
					if err != nil {
						return err
					}
					report.Repair = summary
				}
			}

			return a.emit(cmd.OutOrStdout(), report, func(out io.Writer) error {
				renderTitle(out, "DIAGNOSIS: "+scopeLabel(user))
				renderPairs(out, []kv{
					{"Records", diag.TotalRecords},
					{"Errors detected", diag.ErrorsDetected},
				})
				if report.ConfigsFixed != nil {
					fmt.Fprintln(out)
					renderPairs(out, []kv{{"Config amounts fixed", *report.ConfigsFixed}})
				}
				switch r := report.Repair.(type) {
				case repair.Counters:
					fmt.Fprintln(out)
					renderCounters(out, r)
				case repair.GlobalSummary:
					fmt.Fprintln(out)
					renderSummary(out, r)
				}
				if !fix {
					renderStatus(out, diag.ErrorsDetected == 0, diagnosisVerdict(diag))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "limit to one user")
	cmd.Flags().BoolVar(&fix, "repair", false, "repair configs and records after diagnosing")
	return cmd
}

func diagnosisVerdict(d repair.Diagnosis) string {
	if d.ErrorsDetected == 0 {
		return "no problems found"
	}
	return fmt.Sprintf("%d problems found, run with --repair to fix them", d.ErrorsDetected)
}

// =============================================================================
// VERIFY
// =============================================================================

func newVerifyCommand(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "List every data problem without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues, err := a.engine.Verify(cmd.Context(), userFlag(user))
			if err != nil {
				return err
			}
			if issues == nil {
				issues = []repair.Issue{}
			}
			return a.emit(cmd.OutOrStdout(), issues, func(out io.Writer) error {
				renderTitle(out, "VERIFY: "+scopeLabel(user))
				if len(issues) == 0 {
					renderStatus(out, true, "no problems found")
					return nil
				}
				rows := make([][]string, 0, len(issues))
				for _, i := range issues {
					rows = append(rows, []string{string(i.User), i.Date, i.Kind, i.Message})
				}
				renderTable(out, []string{"USER", "DATE", "KIND", "DETAIL"}, rows)
				renderStatus(out, false, fmt.Sprintf("%d problems found", len(issues)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "limit to one user")
	return cmd
}

// =============================================================================
// REPAIR
// =============================================================================

func newRepairCommand(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Fix dates, duplicates, amounts and leftovers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if u := userFlag(user); u != nil {
				counters, err := a.engine.Repair(ctx, u, a.verbose)
				if err != nil {
					return err
				}
				return a.emit(out, counters, func(out io.Writer) error {
					renderTitle(out, "REPAIR: "+user)
					renderCounters(out, counters)
					return nil
				})
			}

			summary, err := a.engine.RepairAll(ctx, a.verbose)
			if err != nil {
				return err
			}
			return a.emit(out, summary, func(out io.Writer) error {
				renderTitle(out, "REPAIR: all users")
				renderSummary(out, summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "limit to one user")
	return cmd
}

func renderCounters(out io.Writer, c repair.Counters) {
	renderPairs(out, []kv{
		{"Dates out of range", c.DatesOutOfRange},
		{"Duplicates removed", c.DuplicatesRemoved},
		{"Leftovers recomputed", c.LeftoversRecomputed},
		{"Decimals fixed", c.DecimalsFixed},
		{"Negatives fixed", c.NegativesFixed},
		{"Records updated", c.RecordsUpdated},
	})
	if !c.Changed() {
		renderStatus(out, true, "nothing to repair")
	}
}

func renderSummary(out io.Writer, s repair.GlobalSummary) {
	renderPairs(out, []kv{
		{"Users processed", s.UsersProcessed},
		{"Records scanned", s.TotalRecords},
	})
	fmt.Fprintln(out)
	renderCounters(out, s.Counters)
}

// =============================================================================
// GHOSTS
// =============================================================================

type ghostReport struct {
	Ghosts  []ghostEntry `json:"ghosts" yaml:"ghosts"`
	Deleted int          `json:"deleted" yaml:"deleted"`
}

type ghostEntry struct {
	ID       string `json:"id" yaml:"id"`
	User     string `json:"user" yaml:"user"`
	Date     string `json:"date" yaml:"date"`
	Leftover string `json:"leftover" yaml:"leftover"`
}

func newGhostsCommand(a *app) *cobra.Command {
	var user string
	var yes bool

	cmd := &cobra.Command{
		Use:   "ghosts",
		Short: "List incomplete empty records that still carry a leftover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			found, err := a.engine.FindGhosts(ctx, userFlag(user))
			if err != nil {
				return err
			}
			report := ghostReport{Ghosts: make([]ghostEntry, 0, len(found))}
			for _, rec := range found {
				report.Ghosts = append(report.Ghosts, ghostEntry{
					ID:       string(rec.ID),
					User:     string(rec.UserID),
					Date:     rec.Date.String(),
					Leftover: rec.Leftover.String(),
				})
			}

			if yes && len(found) > 0 {
				if report.Deleted, err = a.engine.DeleteGhosts(ctx, userFlag(user)); err != nil {
					return err
				}
			}

			return a.emit(cmd.OutOrStdout(), report, func(out io.Writer) error {
				renderTitle(out, "GHOST RECORDS: "+scopeLabel(user))
				if len(report.Ghosts) == 0 {
					renderStatus(out, true, "no ghost records")
					return nil
				}
				rows := make([][]string, 0, len(report.Ghosts))
				for _, g := range report.Ghosts {
					rows = append(rows, []string{g.User, g.Date, g.Leftover, g.ID})
				}
				renderTable(out, []string{"USER", "DATE", "LEFTOVER", "ID"}, rows)
				if yes {
					renderStatus(out, true, fmt.Sprintf("%d deleted", report.Deleted))
				} else {
					renderStatus(out, false, "run with --yes to delete them")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "limit to one user")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete the ghost records")
	return cmd
}

// =============================================================================
// BACKFILL / PENDING
// =============================================================================

func newBackfillCommand(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Create the missing days from the start date to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := a.tracker.EnsureCoverage(cmd.Context(), budget.UserID(user))
			if err != nil {
				return err
			}
			result := map[string]int{"created": created}
			return a.emit(cmd.OutOrStdout(), result, func(out io.Writer) error {
				renderTitle(out, "BACKFILL: "+user)
				renderPairs(out, []kv{{"Records created", created}})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user to backfill (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type pendingReport struct {
	Days    []string `json:"days" yaml:"days"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

func newPendingCommand(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List days waiting to be completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, msg, err := a.tracker.PendingDays(cmd.Context(), budget.UserID(user))
			if err != nil {
				return err
			}
			report := pendingReport{Days: make([]string, 0, len(days)), Message: msg}
			for _, d := range days {
				report.Days = append(report.Days, d.String())
			}
			return a.emit(cmd.OutOrStdout(), report, func(out io.Writer) error {
				renderTitle(out, "PENDING: "+user)
				if len(days) == 0 {
					renderStatus(out, true, msg)
					return nil
				}
				rows := make([][]string, 0, len(days))
				for i, d := range report.Days {
					rows = append(rows, []string{strconv.Itoa(i + 1), d})
				}
				renderTable(out, []string{"#", "DATE"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user to inspect (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/usage"
)

// usageReport is the JSON shape printed by get --json.
type usageReport struct {
	UserID    string `json:"user_id"`
	Plan      string `json:"plan"`
	FreeUsage int    `json:"free_usage"`
	Limit     int    `json:"limit"`
	// Remaining is -1 for premium users.
	Remaining int `json:"remaining"`
}

func newGetCmd(open storeOpener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show a user's plan and free usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(store identity.Store, cfg cliConfig) error {
				caller, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to load user %s: %w", args[0], err)
				}

				gate := usage.NewGate(cfg.FreeUsageLimit)
				report := usageReport{
					UserID:    caller.UserID,
					Plan:      string(caller.Plan),
					FreeUsage: caller.FreeUsage,
					Limit:     gate.Limit(),
					Remaining: gate.Remaining(caller.Plan, caller.FreeUsage),
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				}

				_, _ = fmt.Fprintf(out, "User:       %s\n", report.UserID)
				_, _ = fmt.Fprintf(out, "Plan:       %s\n", report.Plan)
				_, _ = fmt.Fprintf(out, "Free usage: %d/%d\n", report.FreeUsage, report.Limit)
				if report.Remaining < 0 {
					_, _ = fmt.Fprintln(out, "Remaining:  unlimited")
				} else {
					_, _ = fmt.Fprintf(out, "Remaining:  %d\n", report.Remaining)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

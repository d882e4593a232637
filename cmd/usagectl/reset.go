package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickai/quickai/internal/identity"
)

func newResetCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user-id>...",
		Short: "Reset free usage counters to zero",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(store identity.Store, _ cliConfig) error {
				for _, userID := range args {
					if err := store.ResetUsage(cmd.Context(), userID); err != nil {
						return fmt.Errorf("failed to reset %s: %w", userID, err)
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", userID)
				}
				return nil
			})
		},
	}
}

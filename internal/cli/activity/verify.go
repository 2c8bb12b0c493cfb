package activity

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"timelinehub/internal/api"
	"timelinehub/pkg/utils"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <event-id>",
	Short: "Verify an event's hash chain",
	Long:  "Recompute the hash chain up to the given event and report whether it is intact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(baseURL())

		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()

		verdict, err := client.VerifyEvent(ctx, args[0])
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}

		if verdict.Verified {
			fmt.Printf("✓ %s: hash chain intact (checked %s)\n", verdict.EventID, utils.FormatTimestamp(verdict.CheckedAt))
		} else {
			fmt.Printf("✗ %s: hash chain BROKEN\n", verdict.EventID)
		}
		return nil
	},
}

func init() {
	ActivityCmd.AddCommand(verifyCmd)
}

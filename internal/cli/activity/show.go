package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"timelinehub/internal/api"
	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

var showCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show a single timeline event",
	Long:  "Fetch one event by ID and print its full record, payload included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(baseURL())

		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()

		event, err := client.GetEvent(ctx, args[0])
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("event %s not found", args[0])
			}
			return fmt.Errorf("fetch failed: %w", err)
		}

		fmt.Printf("ID:          %s\n", event.ID)
		fmt.Printf("Type:        %s\n", event.Type)
		fmt.Printf("Subject:     %s\n", event.SubjectID)
		fmt.Printf("Occurred at: %s (%s)\n", utils.FormatTimestamp(event.OccurredAt), utils.TimeAgo(event.OccurredAt))
		if event.Hash != "" {
			fmt.Printf("Hash:        %s\n", event.Hash)
		}

		if len(event.Payload) > 0 {
			fmt.Println("Payload:")
			keys := make([]string, 0, len(event.Payload))
			for k := range event.Payload {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s: %v\n", k, event.Payload[k])
			}
		}
		return nil
	},
}

func init() {
	ActivityCmd.AddCommand(showCmd)
}

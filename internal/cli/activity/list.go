package activity

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"timelinehub/internal/api"
	"timelinehub/internal/feed"
	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent activities",
	Long:  "Fetch the most recent activities from the timeline, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client := api.NewClient(baseURL())
		f := feed.New(client, limit)
		f.SetFilter(criteriaFromFlags(cmd))

		ctx, cancel := utils.WithLongTimeout(context.Background())
		defer cancel()

		if err := f.Fetch(ctx); err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		items := f.Items()
		fmt.Printf("\nActivities (%d of %d):\n\n", len(items), f.Total())

		// Cap output at what fits the terminal so the newest rows
		// are not scrolled away.
		rows := len(items)
		if _, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil && height > 6 {
			if rows > height-6 {
				rows = height - 6
			}
		}

		for i := 0; i < rows; i++ {
			printActivity(i+1, items[i])
		}
		if rows < len(items) {
			fmt.Printf("… %d more (raise --limit or narrow the filter)\n", len(items)-rows)
		}
		if f.HasMore() {
			fmt.Println("\nOlder activities available on the server.")
		}

		return nil
	},
}

func printActivity(n int, a models.Activity) {
	fmt.Printf("%d. [%s] %s %s\n", n, a.Priority, a.Action, a.ResourceName)
	fmt.Printf("   %s · %s · %s\n", a.ResourceType, utils.FormatTimestamp(a.Timestamp), utils.TimeAgo(a.Timestamp))
	if a.Description != "" {
		fmt.Printf("   %s\n", a.Description)
	}
	fmt.Println()
}

func baseURL() string {
	return fmt.Sprintf("http://%s:%d",
		viper.GetString("server.host"),
		viper.GetInt("server.http_port"))
}

func criteriaFromFlags(cmd *cobra.Command) models.FilterCriteria {
	actions, _ := cmd.Flags().GetStringSlice("action")
	resources, _ := cmd.Flags().GetStringSlice("resource")
	priorities, _ := cmd.Flags().GetStringSlice("priority")
	user, _ := cmd.Flags().GetString("user")
	search, _ := cmd.Flags().GetString("search")

	return models.FilterCriteria{
		Actions:       actions,
		ResourceTypes: resources,
		Priorities:    priorities,
		UserID:        user,
		Search:        search,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("action", nil, "Filter by action (created, updated, deleted, viewed, documented, verified, assigned)")
	cmd.Flags().StringSlice("resource", nil, "Filter by resource type")
	cmd.Flags().StringSlice("priority", nil, "Filter by priority (high, medium, low)")
	cmd.Flags().String("user", "", "Filter by user ID")
	cmd.Flags().String("search", "", "Substring search over names and descriptions")
}

func init() {
	listCmd.Flags().Int("limit", 20, "Number of activities")
	addFilterFlags(listCmd)
	ActivityCmd.AddCommand(listCmd)
}

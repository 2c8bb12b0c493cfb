package activity

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"timelinehub/internal/subscription"
	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live activities",
	Long:  "Subscribe to the activity stream and print events as they happen. Ctrl+C to stop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria := criteriaFromFlags(cmd)

		wsURL := fmt.Sprintf("ws://%s:%d%s",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			viper.GetString("server.ws_path"))

		sub := subscription.New(subscription.Config{URL: wsURL}, subscription.Handlers{
			OnActivityCreated: func(a models.Activity) {
				fmt.Printf("+ [%s] %s %s %s\n", a.Priority, utils.FormatTimestamp(a.Timestamp), a.Action, a.ResourceName)
			},
			OnActivityUpdated: func(a models.Activity) {
				fmt.Printf("~ [%s] %s %s %s\n", a.Priority, utils.FormatTimestamp(a.Timestamp), a.Action, a.ResourceName)
			},
			OnActivityRemoved: func(id string) {
				fmt.Printf("- removed %s\n", id)
			},
			OnError: func(err error) {
				fmt.Fprintf(os.Stderr, "! stream error: %v\n", err)
			},
			OnStateChange: func(s subscription.ConnState) {
				fmt.Fprintf(os.Stderr, "· connection %s\n", s)
			},
		})

		if err := sub.Connect(); err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		if !criteria.IsEmpty() {
			sub.Subscribe(criteria)
		}

		fmt.Printf("Watching %s (Ctrl+C to stop)...\n\n", wsURL)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		sub.Disconnect()
		fmt.Println("\nStopped.")
		return nil
	},
}

func init() {
	addFilterFlags(watchCmd)
	ActivityCmd.AddCommand(watchCmd)
}

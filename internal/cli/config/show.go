package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display current TimelineHub CLI configuration and connection settings",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("TimelineHub Configuration:")
		fmt.Println("")
		fmt.Printf("Server:\n")
		fmt.Printf("  Host: %s\n", viper.GetString("server.host"))
		fmt.Printf("  HTTP Port: %d\n", viper.GetInt("server.http_port"))
		fmt.Printf("  WS Path: %s\n", viper.GetString("server.ws_path"))
		fmt.Println("")
		fmt.Printf("Feed:\n")
		fmt.Printf("  Page Size: %d\n", viper.GetInt("feed.page_size"))
		fmt.Printf("  Reconnect Attempts: %d\n", viper.GetInt("feed.reconnect_attempts"))

		if viper.ConfigFileUsed() != "" {
			fmt.Println("")
			fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
		}
	},
}

func init() {
	ConfigCmd.AddCommand(showCmd)
}

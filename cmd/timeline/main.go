package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"timelinehub/internal/cli/activity"
	"timelinehub/internal/cli/config"
)

var rootCmd = &cobra.Command{
	Use:   "timeline",
	Short: "TimelineHub command-line client",
	Long:  "Fetch, watch and verify activities on a TimelineHub server from the terminal",
}

func initConfig() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.ws_path", "/ws/activity")
	viper.SetDefault("feed.page_size", 20)
	viper.SetDefault("feed.reconnect_attempts", 5)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".timelinehub"))
	}
	viper.SetEnvPrefix("TIMELINEHUB")
	viper.AutomaticEnv()

	// Missing config file is fine, defaults apply
	viper.ReadInConfig()
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(activity.ActivityCmd)
	rootCmd.AddCommand(config.ConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package activity

import "github.com/spf13/cobra"

var ActivityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Activity feed commands",
	Long:  "Fetch and watch the operational activity timeline",
}

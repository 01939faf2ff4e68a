package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the comicgrab version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("comicgrab version:", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

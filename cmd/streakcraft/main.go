package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "streakcraft",
		Short: "StreakCraft landing page and sign-in gate",
		Long:  "StreakCraft serves the pre-launch landing page and checks each visitor's session with the auth backend.",
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

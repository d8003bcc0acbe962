package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/Jobly-Solutions/lente-ai-sub000/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"  _                _\n" +
		" | |    ___ _ __  | |_ ___\n" +
		" | |   / _ \\ '_ \\ | __/ _ \\\n" +
		" | |__|  __/ | | || ||  __/\n" +
		" |_____\\___|_| |_| \\__\\___|\n"
)

var rootCmd = &cobra.Command{
	Use:   "lente",
	Short: "Lente - AI agent admin console backend",
	Long:  color.CyanString(logo) + "\nAdmin backend for Bravilo agents: assignments, conversations, audit.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ Lente Version")
		fmt.Printf("Version: %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(chatCmd)
}

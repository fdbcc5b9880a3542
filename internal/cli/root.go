package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
	output  string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "miledo",
		Short: "Terminal client for the mile-do task planner",
		Long: `miledo manages mile-do tasks and goals from the terminal.

Run without arguments to open the interactive planner, or use the
subcommands for scripting.`,
		RunE: runTUI, // Default action is the TUI
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return checkFormat(output)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.config/miledo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", formatTable, "Output format: table, json or yaml")

	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newGoalsCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// loadDotEnv reads a .env file from the working directory when present,
// so MILEDO_* settings can live next to a project.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Warning: reading .env:", err)
	}
}

// Execute runs the root command
func Execute(version string) error {
	loadDotEnv()

	rootCmd := newRootCmd()
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

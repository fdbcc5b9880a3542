package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect miledo configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration (file, env and defaults)",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath())
		},
	}

	cmd.AddCommand(showCmd, pathCmd)
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if output == formatJSON {
		_, err := encode(cmd.OutOrStdout(), output, cfg)
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configPath(), data)
	return nil
}

package configcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal"
	"github.com/tinyland-inc/topicbridge/pkg/config"
)

const redacted = "********"

func NewConfigCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or export the effective configuration",
		Example: `  topicbridge config show
  topicbridge config export --output ~/.topicbridge/config.json`,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.json (default: ~/.topicbridge/config.json)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged file and environment configuration with secrets hidden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), cfg)
		},
	}

	var (
		output string
		force  bool
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the effective configuration, environment included, to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := exportConfig(cfg, output, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration written to %s\n", output)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	exportCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	_ = exportCmd.MarkFlagRequired("output")

	cmd.AddCommand(showCmd, exportCmd)
	return cmd
}

func showConfig(w io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(redact(cfg), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func exportConfig(cfg *config.Config, output string, force bool) error {
	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", output)
		}
	}
	return config.SaveConfig(output, cfg)
}

// redact returns a copy of cfg with bot tokens masked.
func redact(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Telegram.Token != "" {
		out.Telegram.Token = redacted
	}
	if out.Discord.Token != "" {
		out.Discord.Token = redacted
	}
	return &out
}

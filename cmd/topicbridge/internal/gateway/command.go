package gateway

import (
	"github.com/spf13/cobra"
)

func NewGatewayCommand() *cobra.Command {
	var opts gatewayOptions

	cmd := &cobra.Command{
		Use:     "gateway",
		Aliases: []string{"g"},
		Short:   "Start the Telegram/Discord bridge",
		Args:    cobra.NoArgs,
		Example: `  topicbridge gateway
  topicbridge gateway --debug
  topicbridge gateway --backfill-limit 20
  topicbridge gateway --no-backfill`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return gatewayCmd(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config.json (default: ~/.topicbridge/config.json)")
	cmd.Flags().IntVar(&opts.backfillLimit, "backfill-limit", -1, "Override how many missed Telegram messages to replay on startup")
	cmd.Flags().BoolVar(&opts.noBackfill, "no-backfill", false, "Skip replaying missed Telegram messages")

	return cmd
}

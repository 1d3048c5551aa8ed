package topicsync

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal"
	"github.com/tinyland-inc/topicbridge/pkg/bridge"
	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/channels"
)

func NewSyncCommand() *cobra.Command {
	var (
		dryRun     bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create missing Discord channels for configured topics",
		Args:  cobra.NoArgs,
		Example: `  topicbridge sync
  topicbridge sync --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return syncCmd(cmd.Context(), cmd.OutOrStdout(), configPath, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show which channels would be created without creating them")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config.json (default: ~/.topicbridge/config.json)")

	return cmd
}

func syncCmd(ctx context.Context, out io.Writer, configPath string, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.ValidateDiscord(); err != nil {
		return err
	}
	internal.SetupLogging(cfg, false)

	registry, err := internal.TopicRegistry(cfg)
	if err != nil {
		return err
	}

	discord, err := channels.NewDiscordChannel(cfg.Discord, bus.NewMessageBus(1), channels.NewDownloader(0, ""))
	if err != nil {
		return err
	}

	var dir bridge.ChannelDirectory = discord
	var dry *bridge.DryRunDirectory
	if dryRun {
		dry = bridge.NewDryRunDirectory(discord)
		dir = dry
	}

	m, err := bridge.NewSyncEngine(cfg.Discord.GeneralChannel).Synchronize(ctx, registry, dir)
	if err != nil {
		return err
	}

	printMapping(out, registry, m, cfg.Discord.GeneralChannel)
	if dry != nil {
		printPlanned(out, dry.Planned())
	}
	return nil
}

func printMapping(out io.Writer, registry *bridge.TopicRegistry, m *bridge.IdentityMap, generalName string) {
	fmt.Fprintln(out, "Topic mapping:")
	if ch, ok := m.General(); ok {
		fmt.Fprintf(out, "  %-8s %-24s -> %s\n", "0", generalName, ch)
	}
	for _, t := range registry.Entries() {
		ch, ok := m.Forward(t.ID)
		if !ok {
			fmt.Fprintf(out, "  %-8s %-24s -> (unmapped)\n", t.ID, t.Name)
			continue
		}
		fmt.Fprintf(out, "  %-8s %-24s -> %s\n", t.ID, t.Name, ch)
	}
}

func printPlanned(out io.Writer, planned []string) {
	if len(planned) == 0 {
		fmt.Fprintln(out, "Dry run: nothing to create")
		return
	}
	fmt.Fprintf(out, "Dry run: would create %d channel(s):\n", len(planned))
	for _, name := range planned {
		fmt.Fprintf(out, "  + %s\n", name)
	}
}

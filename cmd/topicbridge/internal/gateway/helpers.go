package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal"
	"github.com/tinyland-inc/topicbridge/pkg/bridge"
	"github.com/tinyland-inc/topicbridge/pkg/bus"
	"github.com/tinyland-inc/topicbridge/pkg/channels"
	"github.com/tinyland-inc/topicbridge/pkg/config"
	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/media"
)

type gatewayOptions struct {
	debug         bool
	configPath    string
	backfillLimit int
	noBackfill    bool
}

// apply folds command-line overrides into cfg.
func (o gatewayOptions) apply(cfg *config.Config) {
	if o.backfillLimit >= 0 {
		cfg.Bridge.BackfillLimit = o.backfillLimit
	}
	if o.noBackfill {
		cfg.Bridge.BackfillLimit = 0
	}
}

// platformDownloaders keeps the Telegram proxy off Discord CDN downloads.
func platformDownloaders(cfg *config.Config) (telegram, discord *channels.Downloader) {
	return channels.NewDownloader(0, cfg.Telegram.Proxy), channels.NewDownloader(0, "")
}

func gatewayCmd(opts gatewayOptions) error {
	cfg, err := internal.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	internal.SetupLogging(cfg, opts.debug)

	registry, err := internal.TopicRegistry(cfg)
	if err != nil {
		return fmt.Errorf("error building topic registry: %w", err)
	}

	store, err := media.NewStore(cfg.Bridge.MediaDir, cfg.Bridge.MaxAttachmentBytes)
	if err != nil {
		return fmt.Errorf("error creating media store: %w", err)
	}
	if n, err := store.Sweep(); err != nil {
		logger.WarnCF("media", "Sweeping stale media failed", map[string]any{"error": err.Error()})
	} else if n > 0 {
		logger.InfoCF("media", "Removed stale media", map[string]any{"files": n})
	}

	msgBus := bus.NewMessageBus(cfg.Bridge.QueueSize)
	defer msgBus.Close()

	tgDownloader, dcDownloader := platformDownloaders(cfg)
	telegram, err := channels.NewTelegramChannel(cfg.Telegram, msgBus, tgDownloader)
	if err != nil {
		return err
	}
	discord, err := channels.NewDiscordChannel(cfg.Discord, msgBus, dcDownloader)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return telegram.Connect(gctx) })
	g.Go(func() error { return discord.Connect(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("error connecting: %w", err)
	}

	b := bridge.New(registry, telegram, discord, msgBus, store, bridge.Options{
		GeneralChannel: cfg.Discord.GeneralChannel,
		BackfillLimit:  cfg.Bridge.BackfillLimit,
		ShutdownGrace:  cfg.Bridge.ShutdownGrace(),
	})
	if err := b.Prepare(ctx); err != nil {
		return fmt.Errorf("error synchronizing channels: %w", err)
	}
	fmt.Printf("✓ Topics mapped: %d of %d (plus general)\n", b.Identity().Len()-1, registry.Len())

	manager := channels.NewManager(telegram, discord)
	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("error starting channels: %w", err)
	}
	fmt.Printf("✓ Channels enabled: %s\n", manager.GetEnabledChannels())
	fmt.Println("Press Ctrl+C to stop")

	runErr := b.Run(ctx)

	fmt.Println("\nShutting down...")
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.ShutdownGrace())
	defer cancel()
	if err := manager.StopAll(stopCtx); err != nil {
		logger.WarnCF("gateway", "Channels did not stop cleanly", map[string]any{"error": err.Error()})
	}
	fmt.Println("✓ Gateway stopped")

	return runErr
}

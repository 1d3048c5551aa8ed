// TopicBridge - Telegram forum topics mirrored onto Discord channels
// License: MIT
//
// Copyright (c) 2026 TopicBridge contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal"
	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal/configcmd"
	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal/gateway"
	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal/topicsync"
	"github.com/tinyland-inc/topicbridge/cmd/topicbridge/internal/version"
)

func NewTopicbridgeCommand() *cobra.Command {
	short := fmt.Sprintf("%s topicbridge - Telegram topics to Discord channels v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "topicbridge",
		Short:   short,
		Example: "topicbridge gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		topicsync.NewSyncCommand(),
		configcmd.NewConfigCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewTopicbridgeCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

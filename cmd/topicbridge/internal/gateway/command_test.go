package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/topicbridge/pkg/config"
)

func TestNewGatewayCommand(t *testing.T) {
	cmd := NewGatewayCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "gateway", cmd.Use)
	assert.Equal(t, "Start the Telegram/Discord bridge", cmd.Short)
	assert.Equal(t, []string{"g"}, cmd.Aliases)

	assert.True(t, cmd.HasExample())
	assert.False(t, cmd.HasSubCommands())

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.True(t, cmd.HasFlags())
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("backfill-limit"))
	assert.NotNil(t, cmd.Flags().Lookup("no-backfill"))
	assert.Equal(t, "-1", cmd.Flags().Lookup("backfill-limit").DefValue)
}

func TestGatewayOptionsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	gatewayOptions{backfillLimit: -1}.apply(cfg)
	assert.Equal(t, 100, cfg.Bridge.BackfillLimit)

	gatewayOptions{backfillLimit: 7}.apply(cfg)
	assert.Equal(t, 7, cfg.Bridge.BackfillLimit)

	gatewayOptions{backfillLimit: 7, noBackfill: true}.apply(cfg)
	assert.Equal(t, 0, cfg.Bridge.BackfillLimit)
}

func TestGatewayCmd_InvalidConfig(t *testing.T) {
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_GROUP_ID", "DISCORD_BOT_TOKEN", "DISCORD_SERVER_ID", "TOPICS"} {
		t.Setenv(key, "")
	}
	t.Setenv("TOPICBRIDGE_CONFIG", "")

	err := gatewayCmd(gatewayOptions{configPath: t.TempDir() + "/missing.json", backfillLimit: -1})
	require.Error(t, err)

	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPlatformDownloaders_ProxyOnlyForTelegram(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Telegram.Proxy = "http://127.0.0.1:3128"

	telegram, discord := platformDownloaders(cfg)
	assert.Equal(t, "http://127.0.0.1:3128", telegram.Proxy())
	assert.Empty(t, discord.Proxy())
	assert.NotSame(t, telegram, discord)
}

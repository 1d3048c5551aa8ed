package topicsync

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/topicbridge/pkg/bridge"
)

func TestNewSyncCommand(t *testing.T) {
	cmd := NewSyncCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "sync", cmd.Use)
	assert.Empty(t, cmd.Aliases)
	assert.True(t, cmd.HasExample())
	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.NotNil(t, cmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, cmd.Flags().Lookup("config"))
}

func TestPrintMapping(t *testing.T) {
	registry, err := bridge.NewTopicRegistry([]bridge.TopicEntry{
		{ID: 101, Name: "Dev"},
		{ID: 102, Name: "Ops"},
	})
	require.NoError(t, err)
	m, err := bridge.NewIdentityMap(
		bridge.Binding{Topic: bridge.GeneralTopic, Channel: bridge.ChannelRef{ID: "900", Name: "general"}},
		bridge.Binding{Topic: 101, Channel: bridge.ChannelRef{ID: "901", Name: "dev"}},
	)
	require.NoError(t, err)

	var out bytes.Buffer
	printMapping(&out, registry, m, "general")

	text := out.String()
	assert.Contains(t, text, "Topic mapping:")
	assert.Regexp(t, `0\s+general\s+-> 900`, text)
	assert.Regexp(t, `101\s+Dev\s+-> 901`, text)
	assert.Regexp(t, `102\s+Ops\s+-> \(unmapped\)`, text)
}

func TestPrintPlanned(t *testing.T) {
	var out bytes.Buffer
	printPlanned(&out, nil)
	assert.Equal(t, "Dry run: nothing to create\n", out.String())

	out.Reset()
	printPlanned(&out, []string{"Dev", "Ops"})
	assert.Equal(t, "Dry run: would create 2 channel(s):\n  + Dev\n  + Ops\n", out.String())
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopicbridgeCommand(t *testing.T) {
	cmd := NewTopicbridgeCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "topicbridge", cmd.Use)
	assert.True(t, cmd.HasSubCommands())

	for _, name := range []string{"gateway", "g", "sync", "config", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.NotSame(t, cmd, sub, name)
	}
}

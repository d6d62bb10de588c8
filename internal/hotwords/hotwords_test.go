package hotwords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxagent/internal/config"
)

func TestBuild(t *testing.T) {
	cfg, err := config.Parse([]byte(`
keywords:
  - Agent
  - protein shake

commands:
  log:
    aliases: [add]

agents:
  video-games:
    path: /tmp/vg
`))
	require.NoError(t, err)

	got := Build(cfg)
	assert.Equal(t, "add agent games log protein shake video", got)
}

func TestBuildDeduplicates(t *testing.T) {
	cfg, err := config.Parse([]byte(`
keywords: [log, log, LOG]
commands:
  log: {}
`))
	require.NoError(t, err)
	assert.Equal(t, "log", Build(cfg))
}

func TestBuildEmptyConfig(t *testing.T) {
	assert.Empty(t, Build(&config.Config{}))
}

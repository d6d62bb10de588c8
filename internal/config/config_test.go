package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
keywords:
  - agent
  - diet
  - protein shake

commands:
  log:
    agents: [diet]
    silent: true
    aliases: [add, record]
  listen:
    silent: true
    aliases: [note]
  undo:
    silent: true
  repeat: {}

agents:
  diet:
    path: /tmp/journal/diet
    voice: nova
  budget:
    path: /tmp/journal/budget
  video-games:
    path: /tmp/journal/video-games
`

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice-agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadSampleDocument(t *testing.T) {
	cfg, err := Load(writeDoc(t, sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"agent", "diet", "protein shake"}, cfg.Keywords)

	logCmd := cfg.Command("log")
	require.NotNil(t, logCmd)
	assert.Equal(t, []string{"diet"}, logCmd.Agents)
	assert.True(t, logCmd.Silent)
	assert.Equal(t, []string{"add", "record"}, logCmd.Aliases)

	listen := cfg.Command("listen")
	require.NotNil(t, listen)
	assert.Empty(t, listen.Agents, "universal command has empty allowlist")

	diet := cfg.Agent("diet")
	require.NotNil(t, diet)
	assert.Equal(t, "/tmp/journal/diet", diet.Path)
	assert.Equal(t, "nova", diet.Voice)

	budget := cfg.Agent("budget")
	require.NotNil(t, budget)
	assert.Empty(t, budget.Voice, "voice is optional")
}

func TestLoadPreservesDocumentOrder(t *testing.T) {
	cfg, err := Load(writeDoc(t, sampleDoc))
	require.NoError(t, err)

	names := make([]string, 0, len(cfg.Commands))
	for _, c := range cfg.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"log", "listen", "undo", "repeat"}, names)

	agents := make([]string, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents = append(agents, a.Name)
	}
	assert.Equal(t, []string{"diet", "budget", "video-games"}, agents)
}

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Keywords)
	assert.Empty(t, cfg.Commands)
	assert.Empty(t, cfg.Agents)
}

func TestLoadRejectsStructurallyInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "top level is a sequence", doc: "- a\n- b\n"},
		{name: "command entry is a scalar", doc: "commands:\n  log: yes\n"},
		{name: "agent entry is a sequence", doc: "agents:\n  diet: [a, b]\n"},
		{name: "not yaml at all", doc: "commands: {unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeDoc(t, tt.doc))
			require.Error(t, err)
			var cerr *Error
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestLoadRejectsAliasCollisions(t *testing.T) {
	doc := `
commands:
  log:
    aliases: [add]
  track:
    aliases: [add]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"add"`)
}

func TestTriggers(t *testing.T) {
	assert.Equal(t, []string{"diet agent"}, Triggers("diet"))
	assert.Equal(t,
		[]string{"video-games agent", "video games agent"},
		Triggers("video-games"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "journal"), ExpandHome("~/journal"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "rel/~path", ExpandHome("rel/~path"))
}

func TestCommandAllowedFor(t *testing.T) {
	scoped := &Command{Name: "log", Agents: []string{"diet"}}
	universal := &Command{Name: "listen"}

	assert.True(t, scoped.AllowedFor("diet"))
	assert.False(t, scoped.AllowedFor("budget"))
	assert.False(t, scoped.AllowedFor(""), "no-agent context never matches a non-empty allowlist")

	assert.True(t, universal.AllowedFor("diet"))
	assert.True(t, universal.AllowedFor(""))
}

func TestStoreReloadKeepsOldSnapshotOnError(t *testing.T) {
	path := writeDoc(t, sampleDoc)
	store := NewStore(path)

	cfg, err := store.Reload()
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 3)

	require.NoError(t, os.WriteFile(path, []byte("- broken\n"), 0o644))
	_, err = store.Reload()
	require.Error(t, err)

	assert.Len(t, store.Current().Agents, 3, "failed reload must not replace the snapshot")
}

package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxagent/internal/config"
)

var testTime = time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)

func testDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.now = func() time.Time { return testTime }
	return d
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindLog, KindOf("log"))
	assert.Equal(t, KindListen, KindOf("listen"))
	assert.Equal(t, KindListen, KindOf("note"))
	assert.Equal(t, KindUndo, KindOf("undo"))
	assert.Equal(t, KindRepeat, KindOf("repeat"))
	assert.Equal(t, KindResearch, KindOf("research"))
	assert.Equal(t, KindUnknown, KindOf("summarize"))
}

func TestResolve(t *testing.T) {
	cfg, err := config.Parse([]byte(`
commands:
  log:
    agents: [diet]
  listen: {}
`))
	require.NoError(t, err)

	assert.NotNil(t, Resolve("log", "diet", cfg))
	assert.Nil(t, Resolve("log", "budget", cfg), "allowlist excludes other agents")
	assert.Nil(t, Resolve("log", "", cfg), "scoped command unreachable with no agent")
	assert.NotNil(t, Resolve("listen", "", cfg), "universal command reachable everywhere")
	assert.NotNil(t, Resolve("listen", "budget", cfg))
	assert.Nil(t, Resolve("nope", "diet", cfg), "unknown command resolves to nil")
}

func TestExecuteLogAppendsJournalEntry(t *testing.T) {
	dir := t.TempDir()
	d := testDispatcher()

	require.NoError(t, d.Execute(KindLog, "two eggs and toast", dir))

	data, err := os.ReadFile(filepath.Join(dir, "food-journal", "2026-08.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry JournalEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "2026-08-23", entry.Date)
	assert.Equal(t, "14:30", entry.Time)
	assert.Equal(t, "two eggs and toast", entry.FoodDescription)
	assert.Equal(t, testTime.Format(time.RFC3339), entry.CreatedAt)
}

func TestExecuteRefusesEmptyMessage(t *testing.T) {
	dir := t.TempDir()
	d := testDispatcher()

	err := d.Execute(KindLog, "   ", dir)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, statErr := os.Stat(filepath.Join(dir, "food-journal"))
	assert.True(t, os.IsNotExist(statErr), "no journal may be created for an empty message")
}

func TestExecuteListenAppendsNoteBlock(t *testing.T) {
	dir := t.TempDir()
	d := testDispatcher()

	require.NoError(t, d.Execute(KindListen, "remember the milk", dir))

	data, err := os.ReadFile(filepath.Join(dir, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "## 2026-08-23 14:30\nremember the milk\n\n", string(data))
}

func TestUndoLogLeavesEmptyJournal(t *testing.T) {
	dir := t.TempDir()
	d := testDispatcher()

	require.NoError(t, d.Execute(KindLog, "one apple", dir))
	assert.True(t, d.Undo(KindLog, dir))

	data, err := os.ReadFile(filepath.Join(dir, "food-journal", "2026-08.jsonl"))
	require.NoError(t, err, "journal file is emptied, never deleted")
	assert.Empty(t, string(data))
}

func TestUndoLogRemovesOnlyLastLine(t *testing.T) {
	dir := t.TempDir()
	d := testDispatcher()

	require.NoError(t, d.Execute(KindLog, "breakfast", dir))
	require.NoError(t, d.Execute(KindLog, "lunch", dir))
	require.True(t, d.Undo(KindLog, dir))

	data, err := os.ReadFile(filepath.Join(dir, "food-journal", "2026-08.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "breakfast")
}

func TestUndoOnMissingJournalFailsCleanly(t *testing.T) {
	assert.False(t, testDispatcher().Undo(KindLog, t.TempDir()))
}

func TestUndoOnEmptyJournalFailsCleanly(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.Join(dir, "food-journal")
	require.NoError(t, os.MkdirAll(journal, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(journal, "2026-08.jsonl"), nil, 0o644))

	assert.False(t, testDispatcher().Undo(KindLog, dir))
}

func TestUndoNoteRemovesLastBlockByteIdentical(t *testing.T) {
	dir := t.TempDir()
	d := testDispatcher()

	times := []time.Time{
		time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 11, 15, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 12, 45, 0, 0, time.UTC),
	}
	messages := []string{"first idea", "second idea", "third idea"}
	for i, ts := range times {
		tsCopy := ts
		d.now = func() time.Time { return tsCopy }
		require.NoError(t, d.Execute(KindListen, messages[i], dir))
	}

	path := filepath.Join(dir, "notes.md")
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	wantPrefix := strings.TrimSuffix(string(before), "## 2026-08-23 12:45\nthird idea\n\n")

	require.True(t, d.Undo(KindListen, dir))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, wantPrefix, string(after), "surviving blocks are byte-identical")
	assert.NotContains(t, string(after), "third idea")
	assert.Contains(t, string(after), "first idea")
	assert.Contains(t, string(after), "second idea")
}

func TestUndoNotePreservesPreamble(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte(
		"# Notes\n\n## 2026-01-01 10:00\nfirst\n\n## 2026-01-01 11:00\nsecond\n\n"), 0o644))

	require.True(t, testDispatcher().Undo(KindListen, dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\n## 2026-01-01 10:00\nfirst\n\n", string(data))
}

func TestUndoNoteMissingFileFailsCleanly(t *testing.T) {
	assert.False(t, testDispatcher().Undo(KindListen, t.TempDir()))
}

func TestUndoUnknownKindFailsCleanly(t *testing.T) {
	assert.False(t, testDispatcher().Undo(KindUnknown, t.TempDir()))
	assert.False(t, testDispatcher().Undo(KindRepeat, t.TempDir()))
}

func TestExecuteUnsupportedKindErrors(t *testing.T) {
	err := testDispatcher().Execute(KindUndo, "anything", t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyMessage)
}

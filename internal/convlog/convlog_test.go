package convlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T, now time.Time) *Log {
	t.Helper()
	l := New(t.TempDir())
	l.now = func() time.Time { return now }
	return l
}

func TestAppendAndParseDay(t *testing.T) {
	now := time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)
	l := newTestLog(t, now)

	require.NoError(t, l.Append("diet", "what did I eat", "Two eggs and toast.", "checking the journal", ""))

	path := filepath.Join(l.Dir("diet"), "2026-08-23.md")
	messages := ParseDay(path)
	require.Len(t, messages, 2)

	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "what did I eat", messages[0].Content)
	assert.Equal(t, "14:30", messages[0].Timestamp)

	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "Two eggs and toast.", messages[1].Content)
	assert.Equal(t, "checking the journal", messages[1].Thinking)
}

func TestAppendSourceMarker(t *testing.T) {
	now := time.Date(2026, 8, 23, 9, 5, 0, 0, time.UTC)
	l := newTestLog(t, now)
	require.NoError(t, l.Append("", "hello", "hi", "", "chat"))

	data, err := os.ReadFile(filepath.Join(l.Dir(""), "2026-08-23.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "## 09:05 [chat]")
}

func TestDefaultAgentDir(t *testing.T) {
	l := newTestLog(t, time.Now())
	assert.Equal(t, DefaultAgentDir, filepath.Base(l.Dir("")))
	assert.Equal(t, "diet", filepath.Base(l.Dir("diet")))
}

func TestListNewestFirstWithPreview(t *testing.T) {
	l := newTestLog(t, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
	dir := l.Dir("diet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-08-22.md"),
		[]byte("\n## 10:00\n**User:** older question\n\n**Agent:** older answer\n"), 0o644))
	require.NoError(t, l.Append("diet", "newer question", "newer answer", "", ""))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	got := l.List("diet")
	require.Len(t, got, 2)
	assert.Equal(t, "2026-08-23", got[0].Date)
	assert.Equal(t, "newer question", got[0].Preview)
	assert.Equal(t, "2026-08-22", got[1].Date)
	assert.Equal(t, "diet", got[0].Agent)
}

func TestRecentMergesDaysInOrder(t *testing.T) {
	l := newTestLog(t, time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC))
	dir := l.Dir("diet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-08-22.md"),
		[]byte("\n## 21:00\n**User:** yesterday\n\n**Agent:** evening reply\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-08-23.md"),
		[]byte("\n## 08:00\n**User:** today\n\n**Agent:** morning reply\n"), 0o644))

	got := l.Recent("diet", 3)
	require.Len(t, got, 4)
	assert.Equal(t, "yesterday", got[0].Content, "older day sorts first even with a later clock time")
	assert.Equal(t, "today", got[2].Content)
}

func TestLastAssistantText(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	l := newTestLog(t, now)

	assert.Empty(t, l.LastAssistantText("diet"))

	require.NoError(t, l.Append("diet", "first", "first reply", "", ""))
	require.NoError(t, l.Append("diet", "second", "second reply", "", ""))
	assert.Equal(t, "second reply", l.LastAssistantText("diet"))
}

func TestParseDayMissingFile(t *testing.T) {
	assert.Nil(t, ParseDay(filepath.Join(t.TempDir(), "2026-01-01.md")))
}

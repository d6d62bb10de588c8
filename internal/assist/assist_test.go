package assist

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = `{"type":"system","subtype":"init","session_id":"abc-123"}
{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"User asked about eggs."}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"Two eggs have "},{"type":"text","text":"about 12 grams of protein."}]}}
{"type":"result","subtype":"success","result":"Two eggs have about 12 grams of protein.","session_id":"abc-123","is_error":false}
`

func TestParseStream(t *testing.T) {
	var events []Event
	reply, sid, err := parseStream(strings.NewReader(sampleStream), func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, "abc-123", sid)
	assert.Equal(t, "Two eggs have about 12 grams of protein.", reply.Text)
	assert.Equal(t, "User asked about eggs.", reply.Thinking)

	require.Len(t, events, 3)
	assert.Equal(t, EventThinking, events[0].Kind)
	assert.Equal(t, EventText, events[1].Kind)
	assert.Equal(t, "Two eggs have ", events[1].Text)
}

func TestParseStreamResultOnly(t *testing.T) {
	in := `{"type":"result","subtype":"success","result":"Just the result.","session_id":"s1","is_error":false}` + "\n"
	reply, sid, err := parseStream(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", sid)
	assert.Equal(t, "Just the result.", reply.Text)
}

func TestParseStreamBackendError(t *testing.T) {
	in := `{"type":"result","subtype":"error","result":"usage limit reached","session_id":"s1","is_error":true}` + "\n"
	_, _, err := parseStream(strings.NewReader(in), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage limit reached")
}

func TestParseStreamSkipsGarbage(t *testing.T) {
	in := "not json at all\n" +
		`{"type":"assistant","message":{"content":[{"type":"text","text":"ok"}]}}` + "\n" +
		`{"type":"result","result":"ok","session_id":"s2"}` + "\n"
	reply, sid, err := parseStream(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Equal(t, "s2", sid)
	assert.Equal(t, "ok", reply.Text)
}

func TestSessionRollsOverByDay(t *testing.T) {
	dir := t.TempDir()
	c := NewCLI("assistant")
	c.now = func() time.Time { return time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC) }

	c.saveSession(dir, sessionState{Date: "2026-08-22", ConversationID: "old-id", Usage: 4})

	st := c.loadSession(dir)
	assert.Equal(t, "old-id", st.ConversationID)
	// Yesterday's record is present but must not be resumed today.
	assert.NotEqual(t, c.now().Format("2006-01-02"), st.Date)
}

func TestLoadSessionCorruptFile(t *testing.T) {
	dir := t.TempDir()
	c := NewCLI("assistant")
	require.NoError(t, os.WriteFile(c.sessionPath(dir), []byte("{broken"), 0o644))

	st := c.loadSession(dir)
	assert.Empty(t, st.ConversationID)
	assert.Zero(t, st.Usage)
}

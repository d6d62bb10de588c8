package assist

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionFileName = ".assist-session.json"

const voicePrompt = `You are answering by voice. Keep replies short and conversational.
Speak in plain prose: no markdown, no bullet lists, no code blocks.
If a question needs a long answer, give the essence in a few sentences.`

// CLI drives an external assistant binary in print mode, reading its
// stream-json output line by line. Conversations persist per agent
// directory for one calendar day, then roll over.
type CLI struct {
	// Command is the assistant binary, e.g. "claude".
	Command string

	now func() time.Time
}

func NewCLI(command string) *CLI {
	return &CLI{Command: command, now: time.Now}
}

func (c *CLI) Name() string { return "cli:" + c.Command }

// sessionState is the on-disk record of today's conversation.
type sessionState struct {
	Date           string `json:"date"`
	ConversationID string `json:"conversation_id"`
	Usage          int    `json:"usage"`
}

func (c *CLI) sessionPath(agentDir string) string {
	return filepath.Join(agentDir, sessionFileName)
}

func (c *CLI) loadSession(agentDir string) sessionState {
	data, err := os.ReadFile(c.sessionPath(agentDir))
	if err != nil {
		return sessionState{}
	}
	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn("Unreadable assistant session file, starting fresh", "path", c.sessionPath(agentDir), "error", err)
		return sessionState{}
	}
	return st
}

func (c *CLI) saveSession(agentDir string, st sessionState) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(c.sessionPath(agentDir), data, 0o644); err != nil {
		log.Warn("Failed to persist assistant session", "path", c.sessionPath(agentDir), "error", err)
	}
}

func (c *CLI) Respond(ctx context.Context, req Request, emit func(Event)) (Reply, error) {
	if req.AgentDir == "" {
		return Reply{}, errors.New("assist: agent directory not set")
	}
	if err := os.MkdirAll(req.AgentDir, 0o755); err != nil {
		return Reply{}, fmt.Errorf("assist: create agent dir: %w", err)
	}

	today := c.now().Format("2006-01-02")
	st := c.loadSession(req.AgentDir)

	resume := !req.Reset && st.Date == today && st.ConversationID != ""

	reply, sid, err := c.run(ctx, req, st.ConversationID, resume, emit)
	if err != nil && resume {
		// A rolled-over or pruned conversation makes resume fail; one
		// retry with a fresh id recovers.
		log.Warn("Resume failed, retrying with a fresh conversation", "agent", req.Agent, "error", err)
		reply, sid, err = c.run(ctx, req, "", false, emit)
	}
	if err != nil {
		return Reply{}, err
	}

	next := sessionState{Date: today, ConversationID: sid, Usage: 1}
	if resume && st.Date == today {
		next.Usage = st.Usage + 1
	}
	c.saveSession(req.AgentDir, next)

	return reply, nil
}

func (c *CLI) run(ctx context.Context, req Request, conversationID string, resume bool, emit func(Event)) (Reply, string, error) {
	args := []string{
		"-p",
		"--output-format", "stream-json",
		"--verbose",
		"--add-dir", req.AgentDir,
	}

	prompt := req.SystemPrompt
	if req.VoiceMode {
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += voicePrompt
	}
	if prompt != "" {
		args = append(args, "--append-system-prompt", prompt)
	}

	if resume {
		args = append(args, "--resume", conversationID)
	} else {
		args = append(args, "--session-id", uuid.NewString())
	}
	args = append(args, req.Message)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = req.AgentDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Reply{}, "", fmt.Errorf("assist: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Reply{}, "", fmt.Errorf("assist: start %s: %w", c.Command, err)
	}

	reply, sid, parseErr := parseStream(stdout, emit)

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Reply{}, "", fmt.Errorf("assist: %s: %s", c.Command, msg)
	}
	if parseErr != nil {
		return Reply{}, "", parseErr
	}
	if reply.Text == "" {
		return Reply{}, "", errors.New("assist: empty reply")
	}
	return reply, sid, nil
}

// streamLine covers the event shapes the assistant CLI emits in
// stream-json mode: assistant messages with content blocks, and a
// final result record carrying the session id.
type streamLine struct {
	Type    string `json:"type"`
	Message struct {
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			Thinking string `json:"thinking"`
		} `json:"content"`
	} `json:"message"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error"`
}

func parseStream(r io.Reader, emit func(Event)) (Reply, string, error) {
	var (
		text     strings.Builder
		thinking strings.Builder
		sid      string
		result   string
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev streamLine
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Debug("Skipping unparseable stream line", "line", string(line))
			continue
		}
		switch ev.Type {
		case "assistant":
			for _, block := range ev.Message.Content {
				switch block.Type {
				case "text":
					text.WriteString(block.Text)
					if emit != nil && block.Text != "" {
						emit(Event{Kind: EventText, Text: block.Text})
					}
				case "thinking":
					thinking.WriteString(block.Thinking)
					if emit != nil && block.Thinking != "" {
						emit(Event{Kind: EventThinking, Text: block.Thinking})
					}
				}
			}
		case "result":
			sid = ev.SessionID
			result = ev.Result
			if ev.IsError {
				return Reply{}, "", fmt.Errorf("assist: backend reported error: %s", ev.Result)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Reply{}, "", fmt.Errorf("assist: read stream: %w", err)
	}

	out := Reply{Text: strings.TrimSpace(text.String()), Thinking: strings.TrimSpace(thinking.String())}
	if out.Text == "" {
		out.Text = strings.TrimSpace(result)
	}
	return out, sid, nil
}

// Package convlog keeps per-agent conversation history as daily markdown
// files, the same files a human can read and grep.
package convlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultAgentDir names the history directory for the no-agent context.
const DefaultAgentDir = "voice-agent"

var (
	userRe     = regexp.MustCompile(`(?s)\*\*User:\*\* (.+?)(?:\n\n\*\*Agent|\n\*\*Agent|\z)`)
	thinkingRe = regexp.MustCompile(`(?s)\*\*Agent thinking:\*\* (.+?)(?:\n\n\*\*Agent:\*\*|\n\*\*Agent:\*\*|\z)`)
	agentRe    = regexp.MustCompile(`(?s)\*\*Agent:\*\* (.+?)(?:\n\n## |\n## |\z)`)
	headerRe   = regexp.MustCompile(`(?m)^## (\d{1,2}:\d{2}).*$`)
	dayFileRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)
)

// Message is one parsed turn of a logged conversation.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Thinking  string `json:"thinking,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	iso string // used only for cross-day ordering
}

// Summary describes one day's conversation for listing endpoints.
type Summary struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Preview string `json:"preview"`
	Agent   string `json:"agent"`
}

// Log writes and reads conversation history under a common root, one
// subdirectory per agent.
type Log struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

func New(root string) *Log {
	return &Log{root: root, now: time.Now}
}

// Dir returns (and creates) the history directory for an agent; the
// empty name maps to the default context.
func (l *Log) Dir(agent string) string {
	if agent == "" {
		agent = DefaultAgentDir
	}
	dir := filepath.Join(l.root, agent)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// Append records one exchange in today's file for the agent. Source
// tags where the exchange came from ("chat", "audio", or empty for
// voice).
func (l *Log) Append(agent, userText, assistantText, thinking, source string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := l.Dir(agent)
	now := l.now()
	path := filepath.Join(dir, now.Format("2006-01-02")+".md")

	marker := ""
	if source != "" {
		marker = fmt.Sprintf(" [%s]", source)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s%s\n**User:** %s\n\n", now.Format("15:04"), marker, userText)
	if thinking != "" {
		fmt.Fprintf(&b, "**Agent thinking:** %s\n\n", thinking)
	}
	fmt.Fprintf(&b, "**Agent:** %s\n", assistantText)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("conversation log open: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("conversation log write: %w", err)
	}
	return nil
}

// Preview returns the last user message of a day file, truncated.
func Preview(path string, maxLen int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	matches := userRe.FindAllStringSubmatch(string(data), -1)
	if len(matches) == 0 {
		return ""
	}
	last := strings.TrimSpace(matches[len(matches)-1][1])
	if maxLen > 0 && len(last) > maxLen {
		last = last[:maxLen]
	}
	return last
}

// List returns day summaries for an agent, newest first.
func (l *Log) List(agent string) []Summary {
	dir := l.Dir(agent)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	name := agent
	if name == "" {
		name = DefaultAgentDir
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !dayFileRe.MatchString(e.Name()) {
			continue
		}
		date := strings.TrimSuffix(e.Name(), ".md")
		out = append(out, Summary{
			ID:      date,
			Date:    date,
			Preview: Preview(filepath.Join(dir, e.Name()), 100),
			Agent:   name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// ParseDay parses one day file back into ordered messages.
func ParseDay(path string) []Message {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	date := strings.TrimSuffix(filepath.Base(path), ".md")

	content := string(data)
	headers := headerRe.FindAllStringSubmatchIndex(content, -1)
	var messages []Message
	for i, h := range headers {
		timestamp := content[h[2]:h[3]]
		start := h[1]
		end := len(content)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		section := content[start:end]
		iso := fmt.Sprintf("%sT%s:00", date, pad(timestamp))

		if m := userRe.FindStringSubmatch(section); m != nil {
			messages = append(messages, Message{
				Role:      "user",
				Content:   strings.TrimSpace(m[1]),
				Timestamp: timestamp,
				iso:       iso,
			})
		}
		thinking := ""
		if m := thinkingRe.FindStringSubmatch(section); m != nil {
			thinking = strings.TrimSpace(m[1])
		}
		if m := agentRe.FindStringSubmatch(section); m != nil {
			messages = append(messages, Message{
				Role:      "assistant",
				Content:   strings.TrimSpace(m[1]),
				Thinking:  thinking,
				Timestamp: timestamp,
				iso:       iso,
			})
		}
	}
	return messages
}

// Recent merges the last n days of an agent's history, oldest first.
func (l *Log) Recent(agent string, days int) []Message {
	dir := l.Dir(agent)
	today := l.now()

	var all []Message
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		all = append(all, ParseDay(filepath.Join(dir, date+".md"))...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].iso < all[j].iso })
	return all
}

// LastAssistantText returns the most recent assistant reply recorded
// today for the agent, or "".
func (l *Log) LastAssistantText(agent string) string {
	dir := l.Dir(agent)
	path := filepath.Join(dir, l.now().Format("2006-01-02")+".md")
	messages := ParseDay(path)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" {
			return messages[i].Content
		}
	}
	return ""
}

// pad normalizes "9:05" to "09:05" so ISO ordering works.
func pad(hhmm string) string {
	if len(hhmm) == 4 {
		return "0" + hhmm
	}
	return hhmm
}

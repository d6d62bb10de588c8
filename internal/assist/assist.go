// Package assist generates conversational replies for messages that are
// not handled by a local command. Two backends exist: an external
// assistant CLI driven over stdout, and the OpenAI chat API.
package assist

import "context"

// EventKind labels a streaming fragment.
type EventKind string

const (
	EventThinking EventKind = "thinking"
	EventText     EventKind = "text"
)

// Event is one streamed fragment of an in-progress reply.
type Event struct {
	Kind EventKind
	Text string
}

// Request carries everything a backend needs for one exchange.
type Request struct {
	// Message is the user text, already stripped of routing words.
	Message string
	// Agent names the active agent, for logging only.
	Agent string
	// AgentDir is the agent's working directory; backends that can
	// read files get it as context.
	AgentDir string
	// SystemPrompt is appended to the backend's base instructions.
	SystemPrompt string
	// Reset starts a fresh conversation instead of resuming today's.
	Reset bool
	// VoiceMode asks for short plain-prose answers suitable for TTS.
	VoiceMode bool
}

// Reply is the completed exchange.
type Reply struct {
	Text     string
	Thinking string
}

// Backend produces a reply for a request. emit, when non-nil, receives
// fragments as they arrive; the returned Reply always holds the full
// text regardless.
type Backend interface {
	Respond(ctx context.Context, req Request, emit func(Event)) (Reply, error)
	Name() string
}

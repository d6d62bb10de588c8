// Package command resolves spoken commands against agent allowlists and
// executes their side effects: food-journal entries, notes, and undo.
package command

import (
	"errors"

	"voxagent/internal/config"
)

// Kind is the closed set of built-in command behaviors. Configuration
// contributes allowlists, aliases, and the silent flag; behavior is fixed
// here so an unknown built-in is a compile-time impossibility rather than
// a runtime string mismatch.
type Kind int

const (
	// KindUnknown marks a configured command with no built-in behavior;
	// its message is handed to the conversational backend.
	KindUnknown Kind = iota
	// KindLog appends a structured entry to the monthly food journal.
	KindLog
	// KindListen appends a timestamped note block to notes.md.
	KindListen
	// KindUndo reverses the last executed command.
	KindUndo
	// KindRepeat replays the last command's message through the
	// conversational backend.
	KindRepeat
	// KindResearch spawns a detached background research run that writes
	// a report under the agent's research directory.
	KindResearch
)

// KindOf maps a canonical command name to its built-in behavior.
func KindOf(name string) Kind {
	switch name {
	case "log":
		return KindLog
	case "listen", "note":
		return KindListen
	case "undo":
		return KindUndo
	case "repeat":
		return KindRepeat
	case "research":
		return KindResearch
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindListen:
		return "listen"
	case KindUndo:
		return "undo"
	case KindRepeat:
		return "repeat"
	case KindResearch:
		return "research"
	default:
		return "unknown"
	}
}

// ErrEmptyMessage is returned when a side-effecting command arrives with
// no payload text. The caller signals failure audibly and writes nothing.
var ErrEmptyMessage = errors.New("command has no message")

// Resolve returns the command definition if name is configured and its
// allowlist admits agent ("" meaning no agent selected). A nil result is
// not an error: it means "not applicable here" and the caller must turn
// it into a non-destructive failure signal.
func Resolve(name, agent string, cfg *config.Config) *config.Command {
	cmd := cfg.Command(name)
	if cmd == nil {
		return nil
	}
	if !cmd.AllowedFor(agent) {
		return nil
	}
	return cmd
}

// Package keyword decides how a transcribed utterance is routed: whether
// it addresses an agent, which one, whether it carries a structured
// command, and what free-text payload remains.
package keyword

import (
	"strings"

	"voxagent/internal/config"
)

// DefaultWindow is how many leading words are scanned for routing
// keywords. A short window keeps long free-form speech from triggering
// routing on a stray mid-sentence "agent".
const DefaultWindow = 5

// Result is the routing decision for one utterance.
type Result struct {
	// HasAgentKeyword is true when the literal word "agent" appears in
	// the scan window. When false no routing was attempted and Message
	// is the input unchanged.
	HasAgentKeyword bool
	// Agent is the canonical name of the matched agent, or "" for the
	// default (no-agent) context.
	Agent string
	// Command is the canonical command name, or "" when no eligible
	// command word was found.
	Command string
	// Message is the residual free text following the routing keywords.
	Message string
}

// Extract scans the first windowSize words of text for an agent trigger
// and a command word.
//
// Agent names match as substrings of the joined window text, in both
// hyphenated and space forms, so "video games" selects the video-games
// agent. Command words match token-exact against the canonical name and
// aliases, and a command whose allowlist excludes the resolved agent is
// skipped during discovery: the spoken word then falls through as
// ordinary text. First match in configured order wins on both axes.
//
// The message starts after the last window position occupied by a
// routing word (the literal "agent", any command surface form, or any
// agent-name fragment) and runs through the end of the whole utterance,
// not just the window.
func Extract(text string, cfg *config.Config, windowSize int) Result {
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	words := strings.Fields(strings.ToLower(text))
	window := words
	if len(window) > windowSize {
		window = window[:windowSize]
	}

	res := Result{Message: text}

	if !containsWord(window, "agent") {
		return res
	}
	res.HasAgentKeyword = true

	windowText := strings.Join(window, " ")
	for i := range cfg.Agents {
		name := cfg.Agents[i].Name
		for _, variant := range []string{name, strings.ReplaceAll(name, "-", " ")} {
			if strings.Contains(windowText, variant) {
				res.Agent = name
				break
			}
		}
		if res.Agent != "" {
			break
		}
	}

	for i := range cfg.Commands {
		cmd := &cfg.Commands[i]
		if !cmd.AllowedFor(res.Agent) {
			continue
		}
		for _, w := range window {
			if cmd.Matches(w) {
				res.Command = cmd.Name
				break
			}
		}
		if res.Command != "" {
			break
		}
	}

	// The residual message is everything after the highest-index routing
	// word. Marking considers every configured command and agent, not
	// just the matched ones, so an ineligible command word is still
	// consumed from the prefix.
	last := -1
	for i, w := range window {
		if isRoutingWord(w, cfg) && i > last {
			last = i
		}
	}
	if last >= 0 {
		res.Message = strings.Join(words[last+1:], " ")
	}
	return res
}

func isRoutingWord(w string, cfg *config.Config) bool {
	if w == "agent" {
		return true
	}
	for i := range cfg.Commands {
		if cfg.Commands[i].Matches(w) {
			return true
		}
	}
	for i := range cfg.Agents {
		name := cfg.Agents[i].Name
		if w == name {
			return true
		}
		for _, part := range strings.Split(name, "-") {
			if w == part {
				return true
			}
		}
	}
	return false
}

func containsWord(words []string, target string) bool {
	for _, w := range words {
		if w == target {
			return true
		}
	}
	return false
}

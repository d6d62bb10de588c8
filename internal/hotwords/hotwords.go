// Package hotwords builds the vocabulary-hint string that biases the
// transcription engine toward the words the router needs to hear
// correctly: configured keywords, command names, aliases, and agent-name
// fragments.
package hotwords

import (
	"sort"
	"strings"

	"voxagent/internal/config"
)

// Build assembles the hint string from a configuration snapshot. Words
// are case-folded, multi-word keywords are split, duplicates collapse,
// and the output is sorted for stable comparison across reloads.
func Build(cfg *config.Config) string {
	set := make(map[string]struct{})
	add := func(s string) {
		for _, w := range strings.Fields(strings.ToLower(s)) {
			set[w] = struct{}{}
		}
	}

	for _, kw := range cfg.Keywords {
		add(kw)
	}
	for _, cmd := range cfg.Commands {
		add(cmd.Name)
		for _, alias := range cmd.Aliases {
			add(alias)
		}
	}
	for _, agent := range cfg.Agents {
		add(strings.ReplaceAll(agent.Name, "-", " "))
	}

	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}

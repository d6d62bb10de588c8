// Package config loads the voice-agent configuration: recognition
// keywords, voice commands with aliases and agent allowlists, and agent
// personas with their filesystem roots.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Error reports a structurally invalid configuration document. A missing
// file is not an Error; Load treats it as an empty configuration.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "config: " + e.Reason
}

func errf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Command is one configured voice command.
type Command struct {
	Name    string
	Agents  []string // agent names the command is valid for; empty = universal
	Silent  bool     // reply with a chime only, no speech
	Aliases []string // alternate spoken forms resolving to Name
}

// AllowedFor reports whether the command may run for the named agent.
// The empty agent name means "no agent selected"; it is only allowed by
// an empty (universal) allowlist.
func (c *Command) AllowedFor(agent string) bool {
	if len(c.Agents) == 0 {
		return true
	}
	for _, a := range c.Agents {
		if a == agent {
			return true
		}
	}
	return false
}

// Matches reports whether word equals the canonical name or any alias.
func (c *Command) Matches(word string) bool {
	if word == c.Name {
		return true
	}
	for _, a := range c.Aliases {
		if word == a {
			return true
		}
	}
	return false
}

// Agent is one configured persona with a dedicated filesystem root.
type Agent struct {
	Name     string
	Path     string   // side effects and conversation history live under here
	Voice    string   // TTS voice for spoken replies; empty uses the engine default
	Triggers []string // derived phrases that select this agent
}

// Config is an immutable snapshot of the configuration document.
// Commands and Agents preserve document order; extraction gives the
// first match in that order.
type Config struct {
	Keywords []string
	Commands []Command
	Agents   []Agent
}

// Command returns the command with the given canonical name, or nil.
func (c *Config) Command(name string) *Command {
	for i := range c.Commands {
		if c.Commands[i].Name == name {
			return &c.Commands[i]
		}
	}
	return nil
}

// Agent returns the agent with the given name, or nil.
func (c *Config) Agent(name string) *Agent {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i]
		}
	}
	return nil
}

// Triggers derives the trigger phrases for an agent name: "{name} agent",
// plus the space form for hyphenated names ("video-games" also answers to
// "video games agent").
func Triggers(name string) []string {
	triggers := []string{name + " agent"}
	if strings.Contains(name, "-") {
		triggers = append(triggers, strings.ReplaceAll(name, "-", " ")+" agent")
	}
	return triggers
}

type rawCommand struct {
	Agents  []string `yaml:"agents"`
	Silent  bool     `yaml:"silent"`
	Aliases []string `yaml:"aliases"`
}

type rawAgent struct {
	Path  string `yaml:"path"`
	Voice string `yaml:"voice"`
}

// Load reads the configuration document at path. A missing file yields an
// empty but valid Config so the system stays operable with zero
// configuration. Structural problems (top level not a mapping, a command
// or agent entry not a mapping, duplicate command surface forms) yield an
// *Error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from a raw YAML document.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errf("parse: %v", err)
	}
	if len(doc.Content) == 0 {
		return &Config{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errf("top level must be a mapping, got %s", nodeKind(root))
	}

	cfg := &Config{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "keywords":
			if err := val.Decode(&cfg.Keywords); err != nil {
				return nil, errf("keywords: %v", err)
			}
		case "commands":
			cmds, err := parseCommands(val)
			if err != nil {
				return nil, err
			}
			cfg.Commands = cmds
		case "agents":
			agents, err := parseAgents(val)
			if err != nil {
				return nil, err
			}
			cfg.Agents = agents
		}
	}

	if err := checkCollisions(cfg.Commands); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseCommands(node *yaml.Node) ([]Command, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errf("commands must be a mapping, got %s", nodeKind(node))
	}
	var cmds []Command
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, val := node.Content[i].Value, node.Content[i+1]
		if val.Kind != yaml.MappingNode {
			return nil, errf("command %q must be a mapping, got %s", name, nodeKind(val))
		}
		var raw rawCommand
		if err := val.Decode(&raw); err != nil {
			return nil, errf("command %q: %v", name, err)
		}
		cmds = append(cmds, Command{
			Name:    name,
			Agents:  raw.Agents,
			Silent:  raw.Silent,
			Aliases: raw.Aliases,
		})
	}
	return cmds, nil
}

func parseAgents(node *yaml.Node) ([]Agent, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errf("agents must be a mapping, got %s", nodeKind(node))
	}
	var agents []Agent
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, val := node.Content[i].Value, node.Content[i+1]
		if val.Kind != yaml.MappingNode {
			return nil, errf("agent %q must be a mapping, got %s", name, nodeKind(val))
		}
		var raw rawAgent
		if err := val.Decode(&raw); err != nil {
			return nil, errf("agent %q: %v", name, err)
		}
		agents = append(agents, Agent{
			Name:     name,
			Path:     ExpandHome(raw.Path),
			Voice:    raw.Voice,
			Triggers: Triggers(name),
		})
	}
	return agents, nil
}

// checkCollisions rejects a document where two commands claim the same
// surface form, either as canonical name or alias. Resolution order would
// otherwise silently decide which command a spoken word means.
func checkCollisions(cmds []Command) error {
	owner := make(map[string]string)
	for _, cmd := range cmds {
		for _, form := range append([]string{cmd.Name}, cmd.Aliases...) {
			if prev, ok := owner[form]; ok && prev != cmd.Name {
				return errf("surface form %q claimed by both %q and %q", form, prev, cmd.Name)
			}
			owner[form] = cmd.Name
		}
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

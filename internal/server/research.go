package server

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"voxagent/internal/assist"
)

const researchTimeout = 10 * time.Minute

const researchPromptFmt = `Research the following topic and write a thorough, well-structured markdown report: %s`

var slugStripRe = regexp.MustCompile(`[^a-z0-9-]+`)

// researchSlug derives a filename slug from the first five topic words.
func researchSlug(topic string) string {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) > 5 {
		words = words[:5]
	}
	slug := slugStripRe.ReplaceAllString(strings.Join(words, "-"), "")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "topic"
	}
	return slug
}

// startResearch kicks off a detached backend run. The caller confirms
// immediately; the report lands in the agent's research directory when
// the run finishes. The run gets the research directory as its working
// context so it never touches the agent's conversation thread.
func (s *Server) startResearch(agent, agentPath, topic string) error {
	dir := filepath.Join(agentPath, "research")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create research dir: %w", err)
	}
	name := time.Now().Format("2006-01-02-150405") + "-" + researchSlug(topic) + ".md"
	path := filepath.Join(dir, name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), researchTimeout)
		defer cancel()

		reply, err := s.backend.Respond(ctx, assist.Request{
			Message:  fmt.Sprintf(researchPromptFmt, topic),
			Agent:    agent,
			AgentDir: dir,
			Reset:    true,
		}, nil)
		if err != nil {
			log.Error("Research run failed", "agent", agent, "topic", topic, "error", err)
			return
		}

		content := fmt.Sprintf("# %s\n\n%s\n", topic, reply.Text)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Error("Failed to write research report", "path", path, "error", err)
			return
		}
		log.Info("Research report written", "path", path, "agent", agent)
	}()
	return nil
}

package server

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	"voxagent/internal/assist"
)

// handleChat answers a typed message, streaming the reply as
// server-sent events: "thinking" and "text" fragments as they arrive,
// then one "done" event with the complete reply.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeError(w, http.StatusServiceUnavailable, "no conversational backend")
		return
	}

	var req struct {
		Message string `json:"message"`
		Agent   string `json:"agent"`
		Reset   bool   `json:"reset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	agent := req.Agent
	if agent == "" {
		agent = s.session.CurrentAgent()
	}
	cfg := s.cfg.Current()
	if agent != "" && cfg.Agent(agent) == nil {
		writeError(w, http.StatusNotFound, "unknown agent: "+agent)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	reply, err := s.backend.Respond(r.Context(), assist.Request{
		Message:  req.Message,
		Agent:    agent,
		AgentDir: s.agentPath(cfg, agent),
		Reset:    req.Reset || s.takeReset(agent),
	}, func(ev assist.Event) {
		send(string(ev.Kind), map[string]string{"text": ev.Text})
	})
	if err != nil {
		log.Error("Chat backend failed", "agent", agent, "error", err)
		send("error", map[string]string{"error": err.Error()})
		return
	}

	if err := s.conv.Append(agent, req.Message, reply.Text, reply.Thinking, "chat"); err != nil {
		log.Warn("Failed to log chat exchange", "agent", agent, "error", err)
	}
	s.hub.Broadcast(Event{Type: "reply", Agent: agent, Text: reply.Text})

	send("done", map[string]string{"text": reply.Text, "thinking": reply.Thinking})
}

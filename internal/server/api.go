package server

import (
	"encoding/json"
	"io"
	log "log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voxagent/internal/convlog"
	"voxagent/internal/hotwords"
	"voxagent/internal/tts"
	"voxagent/pkg/audioconv"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed writing JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.stt != nil {
		resp["stt"] = s.stt.Name()
	}
	if s.tts != nil {
		resp["tts"] = s.tts.Name()
	}
	if s.backend != nil {
		resp["backend"] = s.backend.Name()
	}
	writeJSON(w, http.StatusOK, resp)
}

type agentInfo struct {
	Name     string   `json:"name"`
	Path     string   `json:"path,omitempty"`
	Triggers []string `json:"triggers"`
	Current  bool     `json:"current"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Current()
	current := s.session.CurrentAgent()

	out := make([]agentInfo, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		out = append(out, agentInfo{
			Name:     a.Name,
			Path:     a.Path,
			Triggers: a.Triggers,
			Current:  a.Name == current,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agents":  out,
		"current": current,
	})
}

func (s *Server) handleAgentSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agent string `json:"agent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.cfg.Current()
	if req.Agent != "" && cfg.Agent(req.Agent) == nil {
		writeError(w, http.StatusNotFound, "unknown agent: "+req.Agent)
		return
	}
	if err := s.session.SetCurrentAgent(req.Agent); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.Broadcast(Event{Type: "agent", Agent: req.Agent})
	writeJSON(w, http.StatusOK, map[string]string{"current": req.Agent})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": s.conv.List(r.URL.Query().Get("agent")),
	})
}

func (s *Server) handleConversationsRecent(w http.ResponseWriter, r *http.Request) {
	days := 2
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": s.conv.Recent(r.URL.Query().Get("agent"), days),
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := time.Parse("2006-01-02", id); err != nil {
		writeError(w, http.StatusBadRequest, "conversation id must be a date")
		return
	}
	agent := r.URL.Query().Get("agent")

	path := filepath.Join(s.conv.Dir(agent), id+".md")
	messages := convlog.ParseDay(path)
	if messages == nil {
		writeError(w, http.StatusNotFound, "no conversation for "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"agent":    agent,
		"messages": messages,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.cfg.Reload()
	if err != nil {
		log.Error("Config reload failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	log.Info("Configuration reloaded", "commands", len(cfg.Commands), "agents", len(cfg.Agents))
	writeJSON(w, http.StatusOK, map[string]any{
		"commands": len(cfg.Commands),
		"agents":   len(cfg.Agents),
		"hotwords": hotwords.Build(cfg),
	})
}

// handleTranscribe is the debug endpoint: audio in, text out, no
// routing.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.stt == nil {
		writeError(w, http.StatusServiceUnavailable, "no transcription engine")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return
	}
	pcm, err := audioconv.DecodeToPCM16k(body, audioconv.Options{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text, err := s.stt.Transcribe(r.Context(), pcm, hotwords.Build(s.cfg.Current()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": strings.TrimSpace(text)})
}

// handleTTS is the debug endpoint: text in, audio out.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if s.tts == nil {
		writeError(w, http.StatusServiceUnavailable, "no speech engine")
		return
	}
	var req struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}
	audio, mediaType, err := s.tts.Synthesize(r.Context(), tts.Sanitize(req.Text), req.Voice)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.Write(audio)
}

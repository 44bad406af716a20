package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lizzy-schoen/claude-approve/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleRequest serves POST /request (create) and GET /request (poll).
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createRequest(w, r)
	case http.MethodGet:
		s.readRequest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ToolName   string `json:"toolName"`
		ToolDetail string `json:"toolDetail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	id, err := s.store.CreateRequest(body.ToolName, body.ToolDetail)
	if err != nil {
		s.log.Error("Failed to create request", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}

	s.log.Info("Approval request created",
		slog.String("request_id", id),
		slog.String("tool", body.ToolName))

	// Delivery is synchronous so failures land in the logs before this
	// operation returns, but its outcome never affects the response.
	if req, err := s.store.ReadCurrent(id); err == nil && req != nil {
		s.notifier.Dispatch(r.Context(), req)
	}

	writeJSON(w, http.StatusOK, map[string]string{"requestId": id})
}

func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.store.ReadCurrent(r.URL.Query().Get("requestId"))
	if err != nil {
		s.log.Error("Failed to read request", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}

	if req == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "none"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     req.Status,
		"requestId":  req.ID,
		"toolName":   req.ToolName,
		"toolDetail": req.ToolDetail,
	})
}

// handleMode serves GET /mode and PUT /mode.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mode, err := s.store.GetMode()
		if err != nil {
			s.log.Error("Failed to read mode", slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})

	case http.MethodPut:
		var body struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}

		mode, err := store.ParseMode(body.Mode)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if err := s.store.SetMode(mode); err != nil {
			s.log.Error("Failed to set mode", slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
			return
		}

		s.log.Info("Mode changed", slog.String("mode", string(mode)))
		writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

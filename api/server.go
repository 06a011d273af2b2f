package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/memorymatch/server/game/engine"
	"github.com/memorymatch/server/game/lobby"
	"github.com/memorymatch/server/game/session"
	"github.com/memorymatch/server/transport/websocket"
)

// Server exposes the WebSocket endpoint plus a read-only REST surface for
// observability. All state mutation happens over the WebSocket channel.
type Server struct {
	lobby    *lobby.Manager
	sessions *session.Manager
	rules    *engine.Rules
	hub      *websocket.Hub
	router   *mux.Router
}

// NewServer creates the HTTP server.
func NewServer(lob *lobby.Manager, sessions *session.Manager, rules *engine.Rules, hub *websocket.Hub) *Server {
	s := &Server{
		lobby:    lob,
		sessions: sessions,
		rules:    rules,
		hub:      hub,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/rules", s.handleGetRules).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	// Lobby and match observability
	api.HandleFunc("/lobby", s.handleListLobby).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.rules)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connections":   s.hub.ClientCount(),
		"lobby_entries": s.lobby.Len(),
		"sessions":      s.sessions.Count(),
	})
}

func (s *Server) handleListLobby(w http.ResponseWriter, r *http.Request) {
	entries := s.lobby.Games()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()

	// Parse query parameters
	query := r.URL.Query()
	status := query.Get("status") // "pending", "playing", "ended"
	order := query.Get("order")   // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit")

	if order == "" {
		order = "desc"
	}

	if status != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if string(sess.Status) == status {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	// Sort by creation time
	sort.Slice(sessions, func(i, j int) bool {
		if order == "asc" {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	// Apply limit if specified
	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	gameID := vars["id"]

	sess, err := s.sessions.Get(gameID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, sess)
}

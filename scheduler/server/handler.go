package server

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// NewStatusHandler serves the scheduler state and the node pause controls:
//
//	GET  /status                          status snapshot
//	GET  /nodes                           every node
//	GET  /nodes/{agentID}                 one node
//	POST /nodes/{agentID}/pause?reason=   pause a node
//	POST /nodes/{agentID}/resume          resume a node
func NewStatusHandler(s Scheduler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.GenerateStatusSnapshot())
	})
	mux.HandleFunc("GET /nodes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.GetNodes())
	})
	mux.HandleFunc("GET /nodes/{agentID}", func(w http.ResponseWriter, r *http.Request) {
		n, ok := s.GetNode(r.PathValue("agentID"))
		if !ok {
			http.Error(w, "no such node", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, n)
	})
	mux.HandleFunc("POST /nodes/{agentID}/pause", func(w http.ResponseWriter, r *http.Request) {
		agentID := r.PathValue("agentID")
		if err := s.PauseNode(r.Context(), agentID, r.URL.Query().Get("reason")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /nodes/{agentID}/resume", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ResumeNode(r.Context(), r.PathValue("agentID")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to write response")
	}
}

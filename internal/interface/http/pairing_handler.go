package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
)

// handlePairing 提供 POST 觸發配對、DELETE 解除配對。
// 解除配對只清本地側（local token、配對憑證與旗標），remote session 不受影響。
func (s *Server) handlePairing(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePair(w, r)
	case http.MethodDelete:
		s.handleUnpair(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	if !s.session.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, errCodeNotAuthenticated, "not authenticated")
		return
	}
	var body struct {
		Descriptor string `json:"descriptor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}
	if body.Descriptor == "" {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "descriptor required")
		return
	}

	if err := s.pairer.Pair(r.Context(), body.Descriptor); err != nil {
		log.Printf("[Pairing] pair failed descriptor=%s: %v", body.Descriptor, err)
		writeKindError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": snapshotView(s.session.Snapshot()),
	})
}

func (s *Server) handleUnpair(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearLocalOnly(r.Context()); err != nil {
		writeKindError(w, err)
		return
	}
	log.Printf("[Pairing] device unpaired")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": snapshotView(s.session.Snapshot()),
	})
}

package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	sessionDomain "car-companion/internal/domain/session"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "username and password required")
		return
	}

	if err := s.session.Login(r.Context(), body.Username, body.Password); err != nil {
		log.Printf("[Auth] login failure for %s: %v", body.Username, err)
		writeKindError(w, err)
		return
	}
	log.Printf("[Auth] login success username=%s", body.Username)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": snapshotView(s.session.Snapshot()),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "username and password required")
		return
	}

	err := s.session.Register(r.Context(), sessionDomain.RegisterInput{
		Username:  body.Username,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
	})
	if err != nil {
		log.Printf("[Auth] register failure for %s: %v", body.Username, err)
		writeKindError(w, err)
		return
	}
	log.Printf("[Auth] register success username=%s", body.Username)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": snapshotView(s.session.Snapshot()),
	})
}

// 登出為本地操作：清空所有憑證即可，不呼叫遠端。
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.session.ClearAll(r.Context()); err != nil {
		writeKindError(w, err)
		return
	}
	log.Printf("[Auth] logout done")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

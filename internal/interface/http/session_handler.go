package httpapi

import (
	"net/http"
	"time"

	appsession "car-companion/internal/application/session"
	sessionDomain "car-companion/internal/domain/session"
)

// snapshotView 將快照整理為對外 JSON 形狀。
func snapshotView(sn appsession.Snapshot) map[string]interface{} {
	view := map[string]interface{}{
		"authenticated":    sn.Authenticated,
		"paired":           sn.Paired,
		"refreshing":       sn.Refreshing,
		"has_remote_token": sn.HasRemoteToken,
		"has_local_token":  sn.HasLocalToken,
	}
	if sn.RemoteExpiry != nil {
		view["remote_expiry"] = sn.RemoteExpiry.Format(time.RFC3339)
	}
	if sn.LocalExpiry != nil {
		view["local_expiry"] = sn.LocalExpiry.Format(time.RFC3339)
	}
	if sn.Profile != nil {
		view["profile"] = profileView(*sn.Profile)
	}
	return view
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": snapshotView(s.session.Snapshot()),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
		return
	}
	if !s.session.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, errCodeNotAuthenticated, "not authenticated")
		return
	}
	p, err := s.session.RefreshProfile(r.Context())
	if err != nil {
		// 離線時退回快取；認證問題照實回報（gateway 已處理強制登出）
		if sessionDomain.KindOf(err) == sessionDomain.KindNetworkUnreachable {
			if cached := s.session.CurrentProfile(); cached != nil {
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"success": true,
					"profile": profileView(*cached),
					"cached":  true,
				})
				return
			}
		}
		writeKindError(w, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusUnauthorized, errCodeNotAuthenticated, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profileView(*p),
	})
}

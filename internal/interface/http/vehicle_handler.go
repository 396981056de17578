package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"car-companion/internal/infrastructure/store"
)

// handleVehicleAddress 以 PUT 更新車上後端位址，同時落地到 store
// 供下次啟動還原；GET 回傳目前位址。
func (s *Server) handleVehicleAddress(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"address": s.vehicle.Address(),
		})
	case http.MethodPut:
		var body struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
			return
		}
		if body.Address == "" {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "address required")
			return
		}
		if err := s.store.Set(r.Context(), store.KeyVehicleAddress, body.Address); err != nil {
			writeKindError(w, err)
			return
		}
		s.vehicle.SetAddress(body.Address)
		log.Printf("[Vehicle] address updated to %s", body.Address)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"address": body.Address,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
	}
}

// handleVehicleStatus 透過受保護路徑查詢車況，401/403 時由 gateway
// 換發 local token 並重試一次。
func (s *Server) handleVehicleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
		return
	}
	st, err := s.vehicle.VehicleStatus(r.Context())
	if err != nil {
		log.Printf("[Vehicle] status query failed: %v", err)
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status": map[string]interface{}{
			"vehicle_id": st.VehicleID,
			"state":      st.State,
			"range":      st.Range,
		},
	})
}

package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	appsession "car-companion/internal/application/session"
	sessionDomain "car-companion/internal/domain/session"
	"car-companion/internal/infrastructure/external/vehicle"
	"car-companion/internal/infrastructure/store"
)

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	errCodeNotAuthenticated = "NOT_AUTHENTICATED"
	errCodeInternal         = "UNKNOWN"
)

// SessionService 為控制 API 需要的 session 操作子集。
type SessionService interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, in sessionDomain.RegisterInput) error
	ClearAll(ctx context.Context) error
	ClearLocalOnly(ctx context.Context) error
	IsAuthenticated() bool
	CurrentProfile() *sessionDomain.UserProfile
	RefreshProfile(ctx context.Context) (*sessionDomain.UserProfile, error)
	Snapshot() appsession.Snapshot
}

// Pairer 驅動三步驟配對流程。
type Pairer interface {
	Pair(ctx context.Context, descriptor string) error
}

// VehicleService 為車上後端的狀態查詢與位址設定。
type VehicleService interface {
	SetAddress(addr string)
	Address() string
	VehicleStatus(ctx context.Context) (vehicle.Status, error)
}

// Server 封裝控制 API 的路由與依賴。
type Server struct {
	mux     *http.ServeMux
	session SessionService
	pairer  Pairer
	vehicle VehicleService
	store   store.Store
	db      *sql.DB
}

// NewServer 建立控制 API 伺服器。db 可為 nil，此時 health 回報 using_memory。
func NewServer(session SessionService, pairer Pairer, veh VehicleService, st store.Store, db *sql.DB) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		session: session,
		pairer:  pairer,
		vehicle: veh,
		store:   st,
		db:      db,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ping", s.handlePing)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/profile", s.handleProfile)
	s.mux.HandleFunc("/api/pairing", s.handlePairing)
	s.mux.HandleFunc("/api/vehicle/address", s.handleVehicleAddress)
	s.mux.HandleFunc("/api/vehicle/status", s.handleVehicleStatus)
}

// Handler 回傳可直接掛上 http.Server 的路由。
func (s *Server) Handler() http.Handler {
	return s.mux
}

// kindStatus 將引擎錯誤分類對應到 HTTP 狀態碼；error_code 即分類字串。
func kindStatus(k sessionDomain.Kind) int {
	switch k {
	case sessionDomain.KindNetworkUnreachable, sessionDomain.KindPairingUnreachable:
		return http.StatusBadGateway
	case sessionDomain.KindAuthExpired:
		return http.StatusUnauthorized
	case sessionDomain.KindTokenMalformed:
		return http.StatusBadRequest
	case sessionDomain.KindPairingVerificationFailed:
		return http.StatusUnprocessableEntity
	case sessionDomain.KindPairingRegistrationFailed:
		return http.StatusBadGateway
	case sessionDomain.KindMissingCredential:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeKindError(w http.ResponseWriter, err error) {
	kind := sessionDomain.KindOf(err)
	writeError(w, kindStatus(kind), string(kind), err.Error())
}

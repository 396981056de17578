package session

import (
	"context"
	"log"
	"sync"
	"time"

	sessionDomain "car-companion/internal/domain/session"
	"car-companion/internal/infrastructure/store"
)

// TokenCodec 解析 token 的過期資訊與 subject（不驗簽章）。
type TokenCodec interface {
	IsExpired(raw string, skew time.Duration) bool
	ExpiryTime(raw string) (time.Time, bool)
	Subject(raw string) string
}

// Authenticator 為雲端身份後端的登入/註冊/個人資料介面。
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, in sessionDomain.RegisterInput) (string, error)
	Profile(ctx context.Context) (sessionDomain.UserProfile, error)
}

// Snapshot 為目前 session 狀態的唯讀快照，供控制 API 與同步佇列讀取。
type Snapshot struct {
	Authenticated  bool
	Paired         bool
	Refreshing     bool
	Profile        *sessionDomain.UserProfile
	RemoteExpiry   *time.Time
	LocalExpiry    *time.Time
	HasLocalToken  bool
	HasRemoteToken bool
}

// Manager 為 process 內唯一權威的 session 狀態：remote/local token、
// 使用者資料與配對旗標。所有變更都先落地到 store 再更新記憶體。
type Manager struct {
	store store.Store
	codec TokenCodec
	cloud Authenticator

	mu          sync.RWMutex
	remoteToken string
	localToken  string
	profile     *sessionDomain.UserProfile
	paired      bool
	refreshing  bool

	onLocalToken func(raw string)
}

// NewManager 建立 session 管理器。cloud 可為 nil（測試用），
// 此時 profile 一律以 token subject 降級產生。
func NewManager(st store.Store, codec TokenCodec, cloud Authenticator) *Manager {
	return &Manager{store: st, codec: codec, cloud: cloud}
}

// OnLocalTokenSaved 註冊 local token 落地後的回呼（協調器用來排程主動換發）。
func (m *Manager) OnLocalTokenSaved(fn func(raw string)) {
	m.onLocalToken = fn
}

// Restore 自 store 還原上次執行的 session 狀態（重啟韌性）。
func (m *Manager) Restore(ctx context.Context) error {
	remote, err := m.store.Get(ctx, store.KeyRemoteToken)
	if err != nil {
		return err
	}
	local, err := m.store.Get(ctx, store.KeyLocalToken)
	if err != nil {
		return err
	}
	pairedFlag, err := m.store.Get(ctx, store.KeyIsPaired)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.remoteToken = remote
	m.localToken = local
	m.paired = pairedFlag == "true"
	if remote != "" && !m.codec.IsExpired(remote, 0) {
		m.profile = &sessionDomain.UserProfile{ID: m.codec.Subject(remote)}
	}
	m.mu.Unlock()

	if local != "" && m.onLocalToken != nil {
		m.onLocalToken(local)
	}
	return nil
}

// Login 以帳密登入雲端並保存 remote token。
func (m *Manager) Login(ctx context.Context, username, password string) error {
	raw, err := m.cloud.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return m.SaveRemoteToken(ctx, raw)
}

// Register 建立新帳號並保存 remote token。
func (m *Manager) Register(ctx context.Context, in sessionDomain.RegisterInput) error {
	raw, err := m.cloud.Register(ctx, in)
	if err != nil {
		return err
	}
	return m.SaveRemoteToken(ctx, raw)
}

// SaveRemoteToken 保存 remote token。已過期的 token 直接拒絕。
// 落地成功後嘗試取得個人資料；失敗時降級為 token subject（不讓登入整個失敗）。
func (m *Manager) SaveRemoteToken(ctx context.Context, raw string) error {
	if m.codec.IsExpired(raw, 0) {
		return sessionDomain.E(sessionDomain.KindAuthExpired, sessionDomain.ErrTokenExpired)
	}
	if err := m.store.Set(ctx, store.KeyRemoteToken, raw); err != nil {
		return err
	}
	m.mu.Lock()
	m.remoteToken = raw
	m.mu.Unlock()

	profile := sessionDomain.UserProfile{ID: m.codec.Subject(raw)}
	if m.cloud != nil {
		fetched, err := m.cloud.Profile(ctx)
		if err != nil {
			log.Printf("[Session] profile fetch failed, falling back to token subject: %v", err)
		} else {
			profile = fetched
		}
	}
	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()
	return nil
}

// SaveLocalToken 保存 local token。已過期的 token 直接拒絕。
func (m *Manager) SaveLocalToken(ctx context.Context, raw string) error {
	if m.codec.IsExpired(raw, 0) {
		return sessionDomain.E(sessionDomain.KindAuthExpired, sessionDomain.ErrTokenExpired)
	}
	if err := m.store.Set(ctx, store.KeyLocalToken, raw); err != nil {
		return err
	}
	m.mu.Lock()
	m.localToken = raw
	m.mu.Unlock()

	if m.onLocalToken != nil {
		m.onLocalToken(raw)
	}
	return nil
}

// SetPaired 持久化配對旗標；不負責建立或銷毀換發憑證。
func (m *Manager) SetPaired(ctx context.Context, paired bool) error {
	value := "false"
	if paired {
		value = "true"
	}
	if err := m.store.Set(ctx, store.KeyIsPaired, value); err != nil {
		return err
	}
	m.mu.Lock()
	m.paired = paired
	m.mu.Unlock()
	return nil
}

// ClearAll 完整登出：清空所有持久化 key 與記憶體狀態。
func (m *Manager) ClearAll(ctx context.Context) error {
	if err := m.store.ClearAll(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.remoteToken = ""
	m.localToken = ""
	m.profile = nil
	m.paired = false
	m.mu.Unlock()
	return nil
}

// ClearLocalOnly 解除配對：清掉 local token、配對旗標與換發憑證，
// 但保留 remote token 與個人資料。
func (m *Manager) ClearLocalOnly(ctx context.Context) error {
	err := m.store.Remove(ctx,
		store.KeyLocalToken,
		store.KeyIsPaired,
		store.KeyCarRefreshToken,
		store.KeyPayloadData,
	)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.localToken = ""
	m.paired = false
	m.mu.Unlock()
	return nil
}

// RefreshProfile 自雲端重新取得個人資料並更新快取。
func (m *Manager) RefreshProfile(ctx context.Context) (*sessionDomain.UserProfile, error) {
	if m.cloud == nil {
		return m.CurrentProfile(), nil
	}
	fetched, err := m.cloud.Profile(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.profile = &fetched
	m.mu.Unlock()
	cp := fetched
	return &cp, nil
}

// IsAuthenticated 每次都由 remote token 的有效性即時計算，不做快取。
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	raw := m.remoteToken
	m.mu.RUnlock()
	return raw != "" && !m.codec.IsExpired(raw, 0)
}

// IsPaired 回傳持久化的配對旗標；配對是長期關係，不由 token 有效性推導。
func (m *Manager) IsPaired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paired
}

// CurrentRemoteToken 回傳目前的 remote token（可能為空字串）。
func (m *Manager) CurrentRemoteToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remoteToken
}

// CurrentLocalToken 回傳目前的 local token（換發期間可能短暫為空）。
func (m *Manager) CurrentLocalToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.localToken
}

// CurrentProfile 回傳目前的使用者資料；未登入時為 nil。
func (m *Manager) CurrentProfile() *sessionDomain.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return nil
	}
	cp := *m.profile
	return &cp
}

// IsRefreshing 回報是否有換發進行中。
func (m *Manager) IsRefreshing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshing
}

// SetRefreshing 由換發協調器設定；外部不應直接呼叫。
func (m *Manager) SetRefreshing(v bool) {
	m.mu.Lock()
	m.refreshing = v
	m.mu.Unlock()
}

// Snapshot 回傳目前狀態的唯讀快照。
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	remote := m.remoteToken
	local := m.localToken
	paired := m.paired
	refreshing := m.refreshing
	var profile *sessionDomain.UserProfile
	if m.profile != nil {
		cp := *m.profile
		profile = &cp
	}
	m.mu.RUnlock()

	snap := Snapshot{
		Authenticated:  remote != "" && !m.codec.IsExpired(remote, 0),
		Paired:         paired,
		Refreshing:     refreshing,
		Profile:        profile,
		HasRemoteToken: remote != "",
		HasLocalToken:  local != "",
	}
	if exp, ok := m.codec.ExpiryTime(remote); ok {
		snap.RemoteExpiry = &exp
	}
	if exp, ok := m.codec.ExpiryTime(local); ok {
		snap.LocalExpiry = &exp
	}
	return snap
}

package cloud

import (
	"context"
	"errors"
	"net/http"

	sessionDomain "car-companion/internal/domain/session"
	"car-companion/internal/infrastructure/external/gateway"
)

// Client 封裝雲端身份後端的 REST API：登入、註冊、個人資料與配對驗證。
type Client struct {
	gw *gateway.Client
}

// NewClient 以雲端閘道建立 API 封裝。
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Gateway 回傳底層閘道（供組裝時設定 hook）。
func (c *Client) Gateway() *gateway.Client {
	return c.gw
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	ID        string            `json:"id"`
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	Email     string            `json:"email"`
	Settings  map[string]string `json:"settings"`
}

type verifyPairingRequest struct {
	Token   string `json:"token"`
	Payload string `json:"payload"`
}

type verifyPairingResponse struct {
	CarRefreshToken string `json:"carRefreshToken"`
	PayloadData     string `json:"payloadData"`
}

// Login 以帳密換取 remote token。
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out tokenResponse
	err := c.gw.Do(ctx, http.MethodPost, "/api/v1/auth/login", credentialsRequest{
		Username: username,
		Password: password,
	}, &out, gateway.NoAuth())
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", sessionDomain.E(sessionDomain.KindUnknown, errors.New("login response missing accessToken"))
	}
	return out.AccessToken, nil
}

// Register 建立新帳號並回傳 remote token。
func (c *Client) Register(ctx context.Context, in sessionDomain.RegisterInput) (string, error) {
	var out tokenResponse
	err := c.gw.Do(ctx, http.MethodPost, "/api/v1/auth/register", registerRequest{
		Username:  in.Username,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}, &out, gateway.NoAuth())
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", sessionDomain.E(sessionDomain.KindUnknown, errors.New("register response missing accessToken"))
	}
	return out.AccessToken, nil
}

// Profile 取得目前使用者的個人資料（需要 remote token）。
func (c *Client) Profile(ctx context.Context) (sessionDomain.UserProfile, error) {
	var out profileResponse
	if err := c.gw.Do(ctx, http.MethodGet, "/api/v1/users/me", nil, &out); err != nil {
		return sessionDomain.UserProfile{}, err
	}
	return sessionDomain.UserProfile{
		ID:        out.ID,
		FirstName: out.FirstName,
		LastName:  out.LastName,
		Email:     out.Email,
		Settings:  out.Settings,
	}, nil
}

// VerifyPairing 將車上後端發出的 pairing token 與車輛描述提交給雲端驗證，
// 綁定到目前使用者並取回長期換發憑證。
func (c *Client) VerifyPairing(ctx context.Context, pairingToken, descriptor string) (sessionDomain.PairingCredential, error) {
	var out verifyPairingResponse
	err := c.gw.Do(ctx, http.MethodPost, "/api/v1/pairing/verify", verifyPairingRequest{
		Token:   pairingToken,
		Payload: descriptor,
	}, &out, gateway.NoRetry())
	if err != nil {
		return sessionDomain.PairingCredential{}, err
	}
	return sessionDomain.PairingCredential{
		CarRefreshToken: out.CarRefreshToken,
		PayloadData:     out.PayloadData,
	}, nil
}

package vehicle

import (
	"context"
	"net/http"

	sessionDomain "car-companion/internal/domain/session"
	"car-companion/internal/infrastructure/external/gateway"
)

// Client 封裝車上後端的 REST API。位址由裝置探索決定（IP 輸入或 QR code），
// 可於執行期透過 SetAddress 更新。
type Client struct {
	gw *gateway.Client
}

// NewClient 以車上閘道建立 API 封裝。
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Gateway 回傳底層閘道（供組裝時設定換發協調器）。
func (c *Client) Gateway() *gateway.Client {
	return c.gw
}

// SetAddress 更新車上後端位址。
func (c *Client) SetAddress(addr string) {
	c.gw.SetBaseURL(addr)
}

// Address 回傳目前設定的車上後端位址。
func (c *Client) Address() string {
	return c.gw.BaseURL()
}

type pairingTokenResponse struct {
	Token string `json:"token"`
}

type registerTokenRequest struct {
	CarRefreshToken string `json:"carRefreshToken"`
	PayloadData     string `json:"payloadData"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Status 為車上後端回報的車輛狀態摘要。
type Status struct {
	VehicleID string `json:"vehicleId"`
	State     string `json:"state"`
	Range     int    `json:"range"`
}

// PairingToken 向車上後端索取短效配對 token（配對第一步，毋需認證）。
func (c *Client) PairingToken(ctx context.Context) (string, error) {
	var out pairingTokenResponse
	if err := c.gw.Do(ctx, http.MethodGet, "/api/v1/pairing/token", nil, &out, gateway.NoAuth()); err != nil {
		return "", err
	}
	return out.Token, nil
}

// RegisterToken 以換發憑證向車上後端換取 local token
// （配對第三步，同時也是每次換發的入口，毋需認證）。
func (c *Client) RegisterToken(ctx context.Context, cred sessionDomain.PairingCredential) (string, error) {
	var out tokenResponse
	err := c.gw.Do(ctx, http.MethodPost, "/api/v1/tokens", registerTokenRequest{
		CarRefreshToken: cred.CarRefreshToken,
		PayloadData:     cred.PayloadData,
	}, &out, gateway.NoAuth())
	if err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// VehicleStatus 查詢車輛狀態（受保護端點，帶 local token，401 時會換發重試）。
func (c *Client) VehicleStatus(ctx context.Context) (Status, error) {
	var out Status
	if err := c.gw.Do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return Status{}, err
	}
	return out, nil
}

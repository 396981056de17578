package vehicle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sessionDomain "car-companion/internal/domain/session"
	"car-companion/internal/infrastructure/external/gateway"
)

func newTestClient(baseURL, token string) *Client {
	gw := gateway.NewClient("vehicle", baseURL, 2*time.Second, func() string { return token })
	return NewClient(gw)
}

func TestClient_PairingToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/pairing/token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("pairing token request must not carry auth")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "pair-tok"})
	}))
	defer ts.Close()

	tok, err := newTestClient(ts.URL, "ignored").PairingToken(context.Background())
	if err != nil {
		t.Fatalf("PairingToken failed: %v", err)
	}
	if tok != "pair-tok" {
		t.Errorf("unexpected token: %s", tok)
	}
}

func TestClient_RegisterToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["carRefreshToken"] != "crt" || body["payloadData"] != "blob" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "local-token"})
	}))
	defer ts.Close()

	tok, err := newTestClient(ts.URL, "").RegisterToken(context.Background(), sessionDomain.PairingCredential{
		CarRefreshToken: "crt",
		PayloadData:     "blob",
	})
	if err != nil {
		t.Fatalf("RegisterToken failed: %v", err)
	}
	if tok != "local-token" {
		t.Errorf("unexpected token: %s", tok)
	}
}

func TestClient_VehicleStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer L1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Status{VehicleID: "veh-1", State: "parked", Range: 230})
	}))
	defer ts.Close()

	status, err := newTestClient(ts.URL, "L1").VehicleStatus(context.Background())
	if err != nil {
		t.Fatalf("VehicleStatus failed: %v", err)
	}
	if status.VehicleID != "veh-1" || status.Range != 230 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestClient_SetAddress(t *testing.T) {
	c := newTestClient("", "")
	c.SetAddress("http://192.168.4.1:8080")
	if c.Address() != "http://192.168.4.1:8080" {
		t.Errorf("unexpected address: %s", c.Address())
	}
}

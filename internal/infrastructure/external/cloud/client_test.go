package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"car-companion/internal/infrastructure/external/gateway"
)

func newTestClient(ts *httptest.Server, token string) *Client {
	gw := gateway.NewClient("cloud", ts.URL, 2*time.Second, func() string { return token })
	return NewClient(gw)
}

func TestClient_Login(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a token")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "u" || body["password"] != "p" {
			t.Errorf("unexpected credentials: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "remote-token"})
	}))
	defer ts.Close()

	tok, err := newTestClient(ts, "should-not-be-sent").Login(context.Background(), "u", "p")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if tok != "remote-token" {
		t.Errorf("unexpected token: %s", tok)
	}
}

func TestClient_LoginMissingToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer ts.Close()

	if _, err := newTestClient(ts, "").Login(context.Background(), "u", "p"); err == nil {
		t.Error("expected error for missing accessToken")
	}
}

func TestClient_Profile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer R1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":        "user-1",
			"firstName": "Ada",
			"lastName":  "Chen",
			"email":     "ada@example.com",
			"settings":  map[string]string{"units": "metric"},
		})
	}))
	defer ts.Close()

	profile, err := newTestClient(ts, "R1").Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.ID != "user-1" || profile.Email != "ada@example.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if profile.Settings["units"] != "metric" {
		t.Errorf("unexpected settings: %v", profile.Settings)
	}
}

func TestClient_VerifyPairing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/pairing/verify" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer R1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["token"] != "pair-tok" || body["payload"] != "VIN123" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"carRefreshToken": "crt",
			"payloadData":     "blob",
		})
	}))
	defer ts.Close()

	cred, err := newTestClient(ts, "R1").VerifyPairing(context.Background(), "pair-tok", "VIN123")
	if err != nil {
		t.Fatalf("VerifyPairing failed: %v", err)
	}
	if cred.CarRefreshToken != "crt" || cred.PayloadData != "blob" {
		t.Errorf("unexpected credential: %+v", cred)
	}
}

package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection refused")
	err := E(KindNetworkUnreachable, base)

	if KindOf(err) != KindNetworkUnreachable {
		t.Errorf("expected NETWORK_UNREACHABLE, got %s", KindOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("classified error must unwrap to the cause")
	}
	// 包一層仍要能辨識分類
	wrapped := fmt.Errorf("status query: %w", err)
	if KindOf(wrapped) != KindNetworkUnreachable {
		t.Errorf("expected NETWORK_UNREACHABLE through wrapping, got %s", KindOf(wrapped))
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Error("unclassified errors default to UNKNOWN")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil defaults to UNKNOWN")
	}
}

func TestErrorHandledFlag(t *testing.T) {
	err := E(KindAuthExpired, ErrTokenExpired)
	var se *Error
	if !errors.As(err, &se) {
		t.Fatal("expected *Error")
	}
	if !se.Handled {
		t.Error("engine errors are marked handled")
	}
}

func TestCredentialComplete(t *testing.T) {
	cases := []struct {
		cred PairingCredential
		want bool
	}{
		{PairingCredential{CarRefreshToken: "crt", PayloadData: "blob"}, true},
		{PairingCredential{CarRefreshToken: "crt"}, false},
		{PairingCredential{PayloadData: "blob"}, false},
		{PairingCredential{}, false},
	}
	for _, c := range cases {
		if got := c.cred.Complete(); got != c.want {
			t.Errorf("Complete(%+v) = %v, want %v", c.cred, got, c.want)
		}
	}
}

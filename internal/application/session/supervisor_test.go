package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"car-companion/internal/infrastructure/store"
	"car-companion/internal/infrastructure/token"
)

// remote token 過期：巡檢執行完整登出。
func TestSupervisor_ExpiredRemoteForcesLogout(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	codec := token.NewCodec()

	// 直接塞進 store 再 Restore，繞過 SaveRemoteToken 的過期檢查。
	_ = st.Set(ctx, store.KeyRemoteToken, signedToken(t, "u", time.Now().Add(-time.Minute)))
	_ = st.Set(ctx, store.KeyIsPaired, "true")

	m := NewManager(st, codec, &fakeCloud{})
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	ref := &countingRefresher{token: func() string { return "" }}
	coord := NewCoordinator(m, codec, ref, 5*time.Minute)
	defer coord.Stop()

	s := NewSupervisor(m, codec, coord, 5*time.Minute, time.Hour)
	s.runOnce()

	if m.CurrentRemoteToken() != "" || m.IsPaired() {
		t.Error("expected full logout after remote expiry")
	}
	if v, _ := st.Get(ctx, store.KeyRemoteToken); v != "" {
		t.Error("expected persisted state cleared")
	}
	if ref.calls != 0 {
		t.Errorf("logout sweep must not refresh, got %d calls", ref.calls)
	}
}

// local token 進入 skew 窗且已配對：巡檢補一次換發。
func TestSupervisor_RepairsLocalToken(t *testing.T) {
	m, _ := newTestManager(&fakeCloud{})
	ctx := context.Background()
	codec := token.NewCodec()

	_ = m.SaveRemoteToken(ctx, signedToken(t, "u", time.Now().Add(time.Hour)))
	_ = m.SaveLocalToken(ctx, signedToken(t, "veh", time.Now().Add(3*time.Minute)))
	_ = m.SetPaired(ctx, true)

	fresh := signedToken(t, "veh", time.Now().Add(time.Hour))
	ref := &countingRefresher{token: func() string { return fresh }}
	coord := NewCoordinator(m, codec, ref, 5*time.Minute)
	defer coord.Stop()

	s := NewSupervisor(m, codec, coord, 5*time.Minute, time.Hour)
	s.runOnce()

	if atomic.LoadInt32(&ref.calls) != 1 {
		t.Fatalf("expected one repair refresh, got %d", ref.calls)
	}
	if m.CurrentLocalToken() != fresh {
		t.Error("expected repaired local token")
	}
}

// 健康的 session：巡檢什麼都不做。
func TestSupervisor_HealthySessionUntouched(t *testing.T) {
	m, _ := newTestManager(&fakeCloud{})
	ctx := context.Background()
	codec := token.NewCodec()

	remote := signedToken(t, "u", time.Now().Add(time.Hour))
	local := signedToken(t, "veh", time.Now().Add(time.Hour))
	_ = m.SaveRemoteToken(ctx, remote)
	_ = m.SaveLocalToken(ctx, local)
	_ = m.SetPaired(ctx, true)

	ref := &countingRefresher{token: func() string { return "" }}
	coord := NewCoordinator(m, codec, ref, 5*time.Minute)
	defer coord.Stop()

	s := NewSupervisor(m, codec, coord, 5*time.Minute, time.Hour)
	s.runOnce()

	if ref.calls != 0 {
		t.Errorf("healthy session should not refresh, got %d calls", ref.calls)
	}
	if m.CurrentRemoteToken() != remote || m.CurrentLocalToken() != local {
		t.Error("healthy session state changed")
	}
}

func TestSupervisor_StartStop(t *testing.T) {
	m, _ := newTestManager(&fakeCloud{})
	codec := token.NewCodec()
	ref := &countingRefresher{token: func() string { return "" }}
	coord := NewCoordinator(m, codec, ref, 5*time.Minute)
	defer coord.Stop()

	s := NewSupervisor(m, codec, coord, 5*time.Minute, 10*time.Millisecond)
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()
}

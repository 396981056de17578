package session

import (
	"context"
	"log"
	"time"
)

// Supervisor 週期性巡檢 session 狀態：remote token 過期時執行完整登出、
// local token 進入 skew 窗時補一次換發。一次性排程可能因 process
// 休眠被吞掉，這個巡檢是自癒的後盾；重複觸發會被 single-flight 吸收。
type Supervisor struct {
	session  *Manager
	codec    TokenCodec
	coord    *Coordinator
	skew     time.Duration
	interval time.Duration
	stopChan chan struct{}
}

// NewSupervisor 建立背景巡檢。
func NewSupervisor(m *Manager, codec TokenCodec, coord *Coordinator, skew, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Supervisor{
		session:  m,
		codec:    codec,
		coord:    coord,
		skew:     skew,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 啟動巡檢迴圈。
func (s *Supervisor) Start() {
	log.Printf("[Supervisor] starting session sweep with interval: %v", s.interval)
	ticker := time.NewTicker(s.interval)
	go func() {
		// 啟動後立即執行一次
		s.runOnce()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop 停止巡檢迴圈。
func (s *Supervisor) Stop() {
	close(s.stopChan)
}

func (s *Supervisor) runOnce() {
	ctx := context.Background()

	// remote session 沒有換發流程，過期即終止
	if remote := s.session.CurrentRemoteToken(); remote != "" && s.codec.IsExpired(remote, 0) {
		log.Printf("[Supervisor] remote session expired, forcing logout")
		if err := s.session.ClearAll(ctx); err != nil {
			log.Printf("[Supervisor] logout failed: %v", err)
		}
		return
	}

	local := s.session.CurrentLocalToken()
	if local != "" && s.session.IsPaired() && s.codec.IsExpired(local, s.skew) {
		if _, err := s.coord.EnsureFreshLocalToken(ctx); err != nil {
			log.Printf("[Supervisor] local token refresh failed: %v", err)
		}
	}
}

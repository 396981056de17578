package session

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LocalTokenRefresher 實際執行 local token 換發（由 pairing orchestrator 實作）。
type LocalTokenRefresher interface {
	RefreshLocalToken(ctx context.Context) (string, error)
}

// Coordinator 讓 local token 換發在併發下安全：同一時間最多一個換發在途，
// 其餘呼叫端共乘同一個結果；另負責在過期前排程主動換發。
type Coordinator struct {
	session   *Manager
	codec     TokenCodec
	refresher LocalTokenRefresher
	skew      time.Duration

	group singleflight.Group

	mu    sync.Mutex
	timer *time.Timer
}

// NewCoordinator 建立換發協調器，並掛上 local token 落地後的排程回呼。
func NewCoordinator(m *Manager, codec TokenCodec, refresher LocalTokenRefresher, skew time.Duration) *Coordinator {
	c := &Coordinator{
		session:   m,
		codec:     codec,
		refresher: refresher,
		skew:      skew,
	}
	m.OnLocalTokenSaved(c.ScheduleProactiveRefresh)
	return c
}

// EnsureFreshLocalToken 回傳一個可用的 local token：
//  1. 已有換發在途時，共乘同一個結果；
//  2. 目前 token 在 skew 窗之外仍有效時直接回傳，不打網路;
//  3. 否則啟動一次換發；失敗時清掉本地配對狀態（fail closed，強制重新配對）。
func (c *Coordinator) EnsureFreshLocalToken(ctx context.Context) (string, error) {
	if !c.session.IsRefreshing() {
		if tok := c.session.CurrentLocalToken(); tok != "" && !c.codec.IsExpired(tok, c.skew) {
			return tok, nil
		}
	}

	v, err, _ := c.group.Do("local-token", func() (interface{}, error) {
		c.session.SetRefreshing(true)
		defer c.session.SetRefreshing(false)

		// 進入 flight 後再檢查一次，避免剛換發完又多打一次
		if tok := c.session.CurrentLocalToken(); tok != "" && !c.codec.IsExpired(tok, c.skew) {
			return tok, nil
		}

		raw, err := c.refresher.RefreshLocalToken(ctx)
		if err != nil {
			// 換發憑證視為失效，清掉本地配對狀態
			if cerr := c.session.ClearLocalOnly(ctx); cerr != nil {
				log.Printf("[Refresh] clear local session failed: %v", cerr)
			}
			return "", err
		}
		if err := c.session.SaveLocalToken(ctx, raw); err != nil {
			return "", err
		}
		return raw, nil
	})

	tok, _ := v.(string)
	return tok, err
}

// ScheduleProactiveRefresh 在 token 過期前 skew 時間點排一次性換發。
// 沒有有效過期窗的 token 不排程。重複呼叫會取代前一個排程。
func (c *Coordinator) ScheduleProactiveRefresh(raw string) {
	exp, ok := c.codec.ExpiryTime(raw)
	if !ok {
		return
	}
	delay := time.Until(exp.Add(-c.skew))
	if delay <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, func() {
		if _, err := c.EnsureFreshLocalToken(context.Background()); err != nil {
			log.Printf("[Refresh] proactive refresh failed: %v", err)
		}
	})
	log.Printf("[Refresh] proactive refresh scheduled in %v", delay.Round(time.Second))
}

// Stop 取消已排程的一次性換發。
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	sessionDomain "car-companion/internal/domain/session"
)

// TokenSource 提供目前要附掛的 token；空字串代表不附掛。
type TokenSource func() string

// Refresher 觸發一次協調過的 local token 換發（single-flight）。
type Refresher interface {
	EnsureFreshLocalToken(ctx context.Context) (string, error)
}

type callOptions struct {
	noAuth  bool
	noRetry bool
}

// Option 調整單次呼叫行為。
type Option func(*callOptions)

// NoAuth 標記公開端點：不附掛 token，也不進入換發重試。
func NoAuth() Option {
	return func(o *callOptions) { o.noAuth = true }
}

// NoRetry 停用 401 換發重試（配對/註冊呼叫使用）。
func NoRetry() Option {
	return func(o *callOptions) { o.noRetry = true }
}

// Client 包裝單一後端的 HTTP 呼叫：附掛 token、401 換發重試一次、
// 並把所有錯誤分類為固定的 taxonomy。每個後端各有一個實例，
// base address 與 timeout 獨立設定。
type Client struct {
	name       string
	httpClient *http.Client
	tokens     TokenSource

	mu      sync.RWMutex
	baseURL string

	// 僅 local（車上）後端設定：401 時嘗試換發重試。
	refresher Refresher
	paired    func() bool

	// 僅 remote（雲端）後端設定：401 時強制登出。
	onAuthExpired func(context.Context)
}

// NewClient 建立後端閘道。
func NewClient(name, baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		name:       name,
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBaseURL 更新後端位址；車上後端的位址由裝置探索決定，可於執行期改變。
func (c *Client) SetBaseURL(addr string) {
	c.mu.Lock()
	c.baseURL = addr
	c.mu.Unlock()
}

// BaseURL 回傳目前的後端位址。
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetTokenSource 設定 token 來源；session 管理器建立於閘道之後，
// 因此採後綁定。
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// SetRefresher 設定 401 換發重試所需的協調器與配對狀態查詢。
func (c *Client) SetRefresher(r Refresher, paired func() bool) {
	c.refresher = r
	c.paired = paired
}

// SetAuthExpiredHook 設定遠端 401 的強制登出回呼。
func (c *Client) SetAuthExpiredHook(fn func(context.Context)) {
	c.onAuthExpired = fn
}

// Do 送出 JSON 請求並解碼回應。body/out 可為 nil。
// 錯誤一律為 *session.Error，且已標記 handled。
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...Option) error {
	var opt callOptions
	for _, o := range opts {
		o(&opt)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return sessionDomain.E(sessionDomain.KindUnknown, fmt.Errorf("marshal request: %w", err))
		}
	}

	token := ""
	if !opt.noAuth && c.tokens != nil {
		token = c.tokens()
	}

	status, raw, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		// timeout 或連線失敗視為網路問題，絕不觸發換發或登出
		return sessionDomain.E(sessionDomain.KindNetworkUnreachable, err)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if c.canRetry(opt, token) {
			fresh, rerr := c.refresher.EnsureFreshLocalToken(ctx)
			if rerr == nil && fresh != "" {
				log.Printf("[Gateway] %s %s %s got %d, retrying once with refreshed token", c.name, method, path, status)
				status, raw, err = c.send(ctx, method, path, payload, fresh)
				if err != nil {
					return sessionDomain.E(sessionDomain.KindNetworkUnreachable, err)
				}
			}
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			if c.onAuthExpired != nil && status == http.StatusUnauthorized {
				log.Printf("[Gateway] %s session rejected, forcing logout", c.name)
				c.onAuthExpired(ctx)
			}
			return sessionDomain.E(sessionDomain.KindAuthExpired,
				fmt.Errorf("%s %s %s: status %d", c.name, method, path, status))
		}
	}

	if status >= 300 {
		return sessionDomain.E(sessionDomain.KindUnknown,
			fmt.Errorf("%s api error (status %d): %s", c.name, status, string(raw)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return sessionDomain.E(sessionDomain.KindUnknown, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// canRetry 判斷是否符合 401 換發重試條件：設有協調器、非配對/公開呼叫、
// 原請求帶有 token、且裝置目前為已配對狀態。
func (c *Client) canRetry(opt callOptions, token string) bool {
	if c.refresher == nil || opt.noRetry || opt.noAuth || token == "" {
		return false
	}
	return c.paired != nil && c.paired()
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	base := c.BaseURL()
	if base == "" {
		return 0, nil, errors.New("backend address not configured")
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

package token

import (
	"time"

	sessionDomain "car-companion/internal/domain/session"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 為從 token payload 解出的宣告內容。
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	Extra     map[string]interface{}
}

// Codec 解析 token payload 以讀取過期時間與 subject；純函式、不打網路。
// 不做簽章驗證，簽章由後端驗證。
type Codec struct {
	parser *jwt.Parser
	now    func() time.Time
}

// NewCodec 建立 token 解碼器。
func NewCodec() *Codec {
	return &Codec{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// Decode 解出 payload 內容；格式錯誤回傳 TokenMalformed 分類錯誤。
func (c *Codec) Decode(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(raw, claims); err != nil {
		return Claims{}, sessionDomain.E(sessionDomain.KindTokenMalformed, err)
	}

	out := Claims{Extra: map[string]interface{}(claims)}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// IsExpired 判斷 token 是否視為過期。空字串、解不開、缺 exp 一律視為過期
// （fail closed），否則以 now >= exp - skew 判定。
func (c *Codec) IsExpired(raw string, skew time.Duration) bool {
	if raw == "" {
		return true
	}
	claims, err := c.Decode(raw)
	if err != nil {
		return true
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Add(-skew))
}

// ExpiryTime 回傳 token 的過期時間；無法解析或缺 exp 時 ok 為 false。
func (c *Codec) ExpiryTime(raw string) (time.Time, bool) {
	claims, err := c.Decode(raw)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// Subject 回傳 token 的 subject 宣告；無法解析時回傳空字串。
func (c *Codec) Subject(raw string) string {
	claims, err := c.Decode(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}

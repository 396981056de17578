package store

import "context"

// 固定且版本化的 key 命名空間；換版時以前綴區隔避免讀到舊格式。
const (
	KeyRemoteToken     = "v1:remote_token"
	KeyLocalToken      = "v1:local_token"
	KeyIsPaired        = "v1:is_paired"
	KeyCarRefreshToken = "v1:car_refresh_token"
	KeyPayloadData     = "v1:payload_data"
	KeyVehicleAddress  = "v1:vehicle_address"
)

// Store 提供憑證的持久化 key-value 存取。寫入成功後記憶體狀態才算數，
// 確保重啟後可還原。Get 於 key 不存在時回傳空字串而非錯誤。
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
	ClearAll(ctx context.Context) error
}

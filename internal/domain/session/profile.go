package session

// UserProfile 描述雲端帳號的基本資料。
// 若 profile API 取用失敗，僅會填入 token subject 作為 ID（降級模式）。
type UserProfile struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Settings  map[string]string
}

// RegisterInput 為註冊新帳號所需的完整資料。
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

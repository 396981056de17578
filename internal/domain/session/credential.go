package session

// PairingCredential 為配對完成後長期保存的換發憑證，
// 兩個欄位必須同時存在，僅供換發 local token 使用。
type PairingCredential struct {
	CarRefreshToken string
	PayloadData     string
}

// Complete 檢查憑證兩個欄位是否齊全。
func (c PairingCredential) Complete() bool {
	return c.CarRefreshToken != "" && c.PayloadData != ""
}

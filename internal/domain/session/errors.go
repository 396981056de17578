package session

import (
	"errors"
	"fmt"
)

// Kind 將閘道與協調器對外的錯誤收斂成固定分類，
// 上層（UI、同步佇列）不需再檢視原始傳輸錯誤。
type Kind string

const (
	KindNetworkUnreachable        Kind = "NETWORK_UNREACHABLE"
	KindAuthExpired               Kind = "AUTH_EXPIRED"
	KindTokenMalformed            Kind = "TOKEN_MALFORMED"
	KindPairingUnreachable        Kind = "PAIRING_UNREACHABLE"
	KindPairingVerificationFailed Kind = "PAIRING_VERIFICATION_FAILED"
	KindPairingRegistrationFailed Kind = "PAIRING_REGISTRATION_FAILED"
	KindMissingCredential         Kind = "MISSING_CREDENTIAL"
	KindUnknown                   Kind = "UNKNOWN"
)

// ErrTokenExpired 在嘗試儲存已過期 token 時回傳。
var ErrTokenExpired = errors.New("token already expired")

// Error 為已分類的 session 層錯誤。Handled 表示本層已完成分類與復原，
// 上層不應再做第二次錯誤復原。
type Error struct {
	Kind    Kind
	Handled bool
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E 建立已分類且標記 handled 的錯誤。
func E(kind Kind, err error) *Error {
	return &Error{Kind: kind, Handled: true, Err: err}
}

// KindOf 取出錯誤的分類；非本型別時回傳 KindUnknown。
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

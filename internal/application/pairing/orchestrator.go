package pairing

import (
	"context"
	"errors"
	"log"

	sessionDomain "car-companion/internal/domain/session"
	"car-companion/internal/infrastructure/store"
)

// VehicleAPI 為車上後端的配對相關呼叫。
type VehicleAPI interface {
	PairingToken(ctx context.Context) (string, error)
	RegisterToken(ctx context.Context, cred sessionDomain.PairingCredential) (string, error)
}

// CloudAPI 為雲端後端的配對驗證呼叫（以 remote token 認證）。
type CloudAPI interface {
	VerifyPairing(ctx context.Context, pairingToken, descriptor string) (sessionDomain.PairingCredential, error)
}

// SessionWriter 為配對成功後需要更新的 session 狀態。
type SessionWriter interface {
	SaveLocalToken(ctx context.Context, raw string) error
	SetPaired(ctx context.Context, paired bool) error
}

// Orchestrator 驅動三步驟配對流程，並負責之後的 local token 換發。
// 流程為嚴格的 saga：任一步失敗即維持未配對狀態，不保留部分結果，
// 呼叫端需從第一步重來。
type Orchestrator struct {
	vehicle VehicleAPI
	cloud   CloudAPI
	store   store.Store
	session SessionWriter
}

// NewOrchestrator 建立配對協調器。
func NewOrchestrator(vehicle VehicleAPI, cloud CloudAPI, st store.Store, session SessionWriter) *Orchestrator {
	return &Orchestrator{vehicle: vehicle, cloud: cloud, store: st, session: session}
}

// Pair 執行配對：
//  1. 向車上後端索取短效 pairing token（網路可達即可，毋需認證）；
//  2. 提交雲端驗證並綁定使用者，取回長期換發憑證；
//  3. 以憑證向車上後端換取第一個 local token。
//
// 三步全數成功後才落地憑證、配對旗標與 token。
func (o *Orchestrator) Pair(ctx context.Context, descriptor string) error {
	pairingToken, err := o.vehicle.PairingToken(ctx)
	if err != nil {
		return sessionDomain.E(sessionDomain.KindPairingUnreachable, err)
	}

	cred, err := o.cloud.VerifyPairing(ctx, pairingToken, descriptor)
	if err != nil {
		return sessionDomain.E(sessionDomain.KindPairingVerificationFailed, err)
	}
	if !cred.Complete() {
		return sessionDomain.E(sessionDomain.KindPairingVerificationFailed,
			errors.New("verification response missing credential fields"))
	}

	localToken, err := o.vehicle.RegisterToken(ctx, cred)
	if err != nil {
		return sessionDomain.E(sessionDomain.KindPairingRegistrationFailed, err)
	}
	if localToken == "" {
		return sessionDomain.E(sessionDomain.KindPairingRegistrationFailed,
			errors.New("vehicle returned no token"))
	}

	// 憑證先落地，配對旗標才成立（isPaired 蘊含憑證存在）
	if err := o.store.Set(ctx, store.KeyCarRefreshToken, cred.CarRefreshToken); err != nil {
		return sessionDomain.E(sessionDomain.KindUnknown, err)
	}
	if err := o.store.Set(ctx, store.KeyPayloadData, cred.PayloadData); err != nil {
		return sessionDomain.E(sessionDomain.KindUnknown, err)
	}
	if err := o.session.SetPaired(ctx, true); err != nil {
		return sessionDomain.E(sessionDomain.KindUnknown, err)
	}
	if err := o.session.SaveLocalToken(ctx, localToken); err != nil {
		return err
	}
	log.Printf("[Pairing] device paired")
	return nil
}

// RefreshLocalToken 以持久化的換發憑證重跑第三步，換取新的 local token。
// 憑證缺漏（只可能發生在儲存被外部清掉時）回傳 MissingCredential，
// 視同未配對。
func (o *Orchestrator) RefreshLocalToken(ctx context.Context) (string, error) {
	refreshToken, err := o.store.Get(ctx, store.KeyCarRefreshToken)
	if err != nil {
		return "", sessionDomain.E(sessionDomain.KindUnknown, err)
	}
	payload, err := o.store.Get(ctx, store.KeyPayloadData)
	if err != nil {
		return "", sessionDomain.E(sessionDomain.KindUnknown, err)
	}

	cred := sessionDomain.PairingCredential{CarRefreshToken: refreshToken, PayloadData: payload}
	if !cred.Complete() {
		return "", sessionDomain.E(sessionDomain.KindMissingCredential,
			errors.New("pairing credential missing from store"))
	}

	raw, err := o.vehicle.RegisterToken(ctx, cred)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return "", sessionDomain.E(sessionDomain.KindPairingRegistrationFailed,
			errors.New("vehicle returned no token"))
	}
	return raw, nil
}

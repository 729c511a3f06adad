// Package token は通知メールに埋め込む管理/キャンセルリンク用の
// 署名付きトークンを提供する。
//
// ワイヤ形式は base64url(JSON{email,exp}) + "." + base64url(HMAC-SHA256(payload))
// で固定されており、既存のリンクと互換でなければならない。
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalid はトークンが構造不正・署名不一致・期限切れのいずれかの場合に
// 返される。呼び出し側が理由を区別する必要はないため1種類にまとめている。
var ErrInvalid = errors.New("token: invalid")

// payload はトークンに署名されるJSONペイロード。
type payload struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"` // Unix秒
}

// Signer は署名付きトークンの発行と検証を行う。
type Signer struct {
	secret []byte
}

// NewSigner はSignerの新しいインスタンスを生成する。
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign は指定メールアドレスと有効期限のトークンを発行する。
func (s *Signer) Sign(email string, expiresAt time.Time) (string, error) {
	data, err := json.Marshal(payload{Email: email, Exp: expiresAt.Unix()})
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	return encoded + "." + s.signature(encoded), nil
}

// Verify はトークンを検証し、有効であればメールアドレスを返す。
// 署名比較はタイミングセーフに行う。期限切れ、署名不一致、および
// あらゆる構造不正はパニックせずErrInvalidとして返す。
func (s *Signer) Verify(tok string, now time.Time) (string, error) {
	encoded, sig, ok := strings.Cut(tok, ".")
	if !ok || encoded == "" || sig == "" {
		return "", ErrInvalid
	}

	if !hmac.Equal([]byte(sig), []byte(s.signature(encoded))) {
		return "", ErrInvalid
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalid
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", ErrInvalid
	}
	if p.Email == "" || p.Exp == 0 {
		return "", ErrInvalid
	}
	if now.Unix() > p.Exp {
		return "", ErrInvalid
	}
	return p.Email, nil
}

// signature はペイロードのHMAC-SHA256署名をbase64urlで返す。
func (s *Signer) signature(encodedPayload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

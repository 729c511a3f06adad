// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ListingSanitizer はスクレイプしたリスティングテキストからHTMLを
// 取り除く。リテーラーのマークアップにはタグの混入やエスケープ漏れが
// 珍しくなく、そのままカタログや通知メールに流すのは危険なため、
// bluemondayの全除去ポリシーでプレーンテキストに落とす。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ListingSanitizer はスクレイプテキストのサニタイズ機能を提供する。
// 正規化パイプライン（internal/normalize）がリスティング名の処理前に使用する。
type ListingSanitizer struct {
	policy *bluemonday.Policy
}

// NewListingSanitizer はListingSanitizerの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。リスティング名に許可すべき
// マークアップは存在しない。
func NewListingSanitizer() *ListingSanitizer {
	return &ListingSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLタグを除去し、文字実体参照を復元したテキストを返す。
// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
func (s *ListingSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは実体参照をエスケープしたまま残すため、
	// 表示用テキストとしてアンエスケープして返す。
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// Package alert はアラートのライフサイクル管理とDealとのマッチングを提供する。
package alert

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/dealman/internal/model"
)

const (
	// maxDealsPerEvent は1通の通知メールに含めるDealの上限。
	// メールサイズを抑えるため、salePrice昇順の上位のみを残す。
	maxDealsPerEvent = 10
	// minSquashedLen はスカッシュ一致に要求する最低文字数。
	// 極端に短いトークンによる誤検知を避ける。
	minSquashedLen = 4
)

// tokenSplitRe はトークン分割に使用する区切り（空白・記号）にマッチする。
var tokenSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

// Matcher はカタログとアラートのマッチングを実行する。
// カタログは読み取り専用のスナップショットとして扱い、変更しない。
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher はMatcherの新しいインスタンスを生成する。
func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match は有効な各アラートについてマッチするDealを求め、通知イベントを返す。
//
// スキップ条件: キャンセル済み、30日失効、24時間クールダウン中。
// マッチ条件: ブランド一致 AND モデル一致 AND salePrice <= targetPrice。
// マッチ0件のアラートにはイベントを発行しない。
//
// 返されたイベントのアラートはlastNotifiedAt=nowの永続化が必要であり、
// その記帳は呼び出し元（パイプライン）が一括で行う。
// 個別アラートのデータ不正はログしてスキップし、バッチ全体を中断しない。
func (m *Matcher) Match(catalog []model.Deal, alerts []model.Alert, now time.Time) []model.NotificationEvent {
	var events []model.NotificationEvent

	for _, a := range alerts {
		if a.Email == "" || a.TargetPrice <= 0 {
			m.logger.Warn("不正なアラートをスキップします",
				slog.String("alert_id", a.ID),
			)
			continue
		}
		if !a.IsActive(now) || a.InCooldown(now) {
			continue
		}

		var matched []model.Deal
		for _, d := range catalog {
			if MatchDeal(&a, &d) {
				matched = append(matched, d)
			}
		}
		if len(matched) == 0 {
			continue
		}

		sort.SliceStable(matched, func(i, j int) bool {
			return effectiveSalePrice(&matched[i]) < effectiveSalePrice(&matched[j])
		})
		if len(matched) > maxDealsPerEvent {
			matched = matched[:maxDealsPerEvent]
		}

		events = append(events, model.NotificationEvent{
			Alert:         a,
			Deals:         matched,
			DaysRemaining: a.DaysRemaining(now),
		})
	}

	return events
}

// MatchDeal は1つのDealがアラートの条件をすべて満たすかを判定する。
func MatchDeal(a *model.Alert, d *model.Deal) bool {
	if !matchBrand(a.Brand, d.Brand) {
		return false
	}
	if !matchModel(a, d) {
		return false
	}
	if !matchGender(a.Gender, d.Gender) {
		return false
	}
	return matchPrice(a.TargetPrice, d)
}

// matchBrand はブランドの一致を判定する。
// アラートがブランドを指定しない場合は無条件に一致する。
// 指定がある場合は、正規化したトークン同士がどちらかの方向で
// 前置または包含の関係にあれば一致とみなす。
func matchBrand(alertBrand, dealBrand string) bool {
	alertTokens := tokenize(alertBrand)
	if len(alertTokens) == 0 {
		return true
	}
	return anyTokenMatch(alertTokens, tokenize(dealBrand))
}

// matchModel はモデルの一致を判定する。トークン一致が取れない場合は、
// アラートとDealそれぞれのモデル+ブランド連結をスカッシュした文字列の
// 包含チェックにフォールバックする。誤検知を避けるため、双方が
// minSquashedLen文字以上の場合のみフォールバックを適用する。
func matchModel(a *model.Alert, d *model.Deal) bool {
	alertTokens := tokenize(a.Model)
	if len(alertTokens) == 0 {
		return true
	}
	if anyTokenMatch(alertTokens, tokenize(d.Model)) {
		return true
	}

	as := Squash(a.Brand + a.Model)
	ds := Squash(d.Brand + d.Model)
	if len(as) < minSquashedLen || len(ds) < minSquashedLen {
		return false
	}
	return strings.Contains(ds, as) || strings.Contains(as, ds)
}

// matchGender は任意の性別フィルタを判定する。
// アラートが性別を指定しない場合は無条件に一致する。
// ユニセックスのDealはどちらの性別指定にも一致する。
func matchGender(alertGender model.Gender, dealGender model.Gender) bool {
	if alertGender == "" || alertGender == model.GenderUnknown {
		return true
	}
	return dealGender == alertGender || dealGender == model.GenderUnisex
}

// matchPrice はDealのセール価格が目標価格以下かを判定する。
// 範囲価格のDealは最安値（salePriceLow）で判定する。
func matchPrice(targetPrice int, d *model.Deal) bool {
	price, ok := salePriceOf(d)
	if !ok {
		return false
	}
	return price <= float64(targetPrice)
}

// salePriceOf はDealの判定用セール価格を返す。
func salePriceOf(d *model.Deal) (float64, bool) {
	if d.SalePrice != nil {
		return *d.SalePrice, true
	}
	if d.SalePriceLow != nil {
		return *d.SalePriceLow, true
	}
	return 0, false
}

// effectiveSalePrice は並び替え用のセール価格を返す。価格が無い場合は最大値。
func effectiveSalePrice(d *model.Deal) float64 {
	if p, ok := salePriceOf(d); ok {
		return p
	}
	return 1 << 30
}

// anyTokenMatch はアラート側とDeal側のトークンの組のいずれかが
// 前置または包含（双方向）の関係にあるかを判定する。
func anyTokenMatch(alertTokens, dealTokens []string) bool {
	for _, at := range alertTokens {
		for _, dt := range dealTokens {
			if strings.HasPrefix(at, dt) || strings.HasPrefix(dt, at) {
				return true
			}
		}
	}
	return false
}

// tokenize は文字列を小文字化し、空白・記号で分割したトークン列を返す。
func tokenize(s string) []string {
	var tokens []string
	for _, t := range tokenSplitRe.Split(strings.ToLower(s), -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Squash は英数字以外をすべて除去して小文字化した文字列を返す。
// ハイフンや空白の揺れを無視した緩い一致に使用する。
func Squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package normalize はソースごとに形の異なるスクレイプ結果を
// 正規化済みのDealに変換する。必須項目の検証、価格の妥当性チェック、
// ブランド/モデル分割、性別・シューズ種別の推論、カテゴリ除外を行う。
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/hitoshi/dealman/internal/model"
)

// RejectReason は正規化で拒否された理由コードを表す。
// バッチ呼び出し元がソースごとの診断情報を集計するために使用する。
type RejectReason string

const (
	// ReasonMissingListing はリスティング名またはURLが解決できなかった場合。
	ReasonMissingListing RejectReason = "missing_listing"
	// ReasonMissingPrice は価格ペアが確立できなかった場合。
	ReasonMissingPrice RejectReason = "missing_price"
	// ReasonAmbiguousPrice はテキストから4つ以上の価格が見つかった場合。
	ReasonAmbiguousPrice RejectReason = "ambiguous_price"
	// ReasonDiscountOutOfRange は割引率が5〜90%の範囲外の場合。
	ReasonDiscountOutOfRange RejectReason = "discount_out_of_range"
	// ReasonMissingImage は絶対URLとして有効な画像が無い場合。
	ReasonMissingImage RejectReason = "missing_image"
	// ReasonCategoryExcluded はアパレル・アクセサリ・キッズ等の除外対象の場合。
	ReasonCategoryExcluded RejectReason = "category_excluded"
)

const (
	// minDiscountPercent / maxDiscountPercent は離散価格から計算した
	// 割引率の許容範囲。範囲外はスクレイプミスとみなして拒否する。
	minDiscountPercent = 5
	maxDiscountPercent = 90
)

// Rejection は1レコードの正規化拒否を表す。正規化はエラーをパニックや
// 例外で伝播せず、必ず理由コード付きのRejectionとして返す。
type Rejection struct {
	Reason RejectReason
	Detail string
}

// SourceContext はソース固有の正規化ルールを保持する。
type SourceContext struct {
	// Store はカタログ上のストア名。
	Store string
	// BaseURL は相対URLの解決に使用するソースのベースURL。
	BaseURL string
	// DefaultShoeType はキーワードで判定できなかった場合の既定種別。
	// ロード専門店はShoeTypeRoadを設定する。未設定はShoeTypeUnknown。
	DefaultShoeType model.ShoeType
}

// TextSanitizer はスクレイプしたテキストからHTMLタグを除去する。
// internal/securityのListingSanitizerが実装する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Normalizer は生レコードを正規化する。ステートレスで並行利用可能。
type Normalizer struct {
	sanitizer TextSanitizer
}

// New はNormalizerの新しいインスタンスを生成する。
// sanitizerがnilの場合はタグ除去をスキップする。
func New(sanitizer TextSanitizer) *Normalizer {
	return &Normalizer{sanitizer: sanitizer}
}

// Normalize は生レコード1件を正規化する。
// 成功時はDealとnil、拒否時はnilと理由付きRejectionを返す。
// 不正な入力に対してもパニックせず、必ずどちらかを返す。
func (n *Normalizer) Normalize(raw model.RawRecord, ctx SourceContext) (*model.Deal, *Rejection) {
	now := time.Now()

	// 1. フィールドマッピング: リスティング識別子（名前+URL）の解決
	name := raw.ListingName
	if name == "" {
		name = raw.Title
	}
	if n.sanitizer != nil {
		name = n.sanitizer.Sanitize(name)
	}
	name = CleanListingName(name)
	if name == "" {
		return nil, &Rejection{Reason: ReasonMissingListing, Detail: "listing name is empty"}
	}

	listingURL := AbsolutizeURL(ctx.BaseURL, raw.URL)
	if listingURL == "" {
		return nil, &Rejection{Reason: ReasonMissingListing, Detail: "listing URL is not resolvable"}
	}

	deal := &model.Deal{
		ListingName: name,
		Store:       ctx.Store,
		ListingURL:  listingURL,
		ScrapedAt:   now,
		LastUpdated: now,
	}

	// 2. 価格の解決
	if rej := n.resolvePrices(raw, deal); rej != nil {
		return nil, rej
	}

	// 3〜4. ブランド/モデル分割（プロモ接頭辞の除去はCleanListingName済み）
	deal.Brand, deal.Model = SplitBrandModel(name)

	// 5. 性別の推論。DOM上の明示ラベルがあるソースは推論をバイパスする。
	if raw.GenderLabel != "" {
		deal.Gender = raw.GenderLabel
	} else {
		deal.Gender = InferGender(listingURL, name)
	}

	// 6. シューズ種別の推論
	deal.ShoeType = InferShoeType(name, ctx.DefaultShoeType)

	// 7. カテゴリ除外と画像URLの検証
	if word := MatchExcludedCategory(name); word != "" {
		return nil, &Rejection{Reason: ReasonCategoryExcluded, Detail: word}
	}
	deal.ImageURL = AbsolutizeURL(ctx.BaseURL, raw.ImageURL)
	if deal.ImageURL == "" {
		return nil, &Rejection{Reason: ReasonMissingImage, Detail: "image URL is not resolvable"}
	}

	return deal, nil
}

// resolvePrices は構造化価格、範囲価格、テキスト抽出の順で価格ペアを確立する。
func (n *Normalizer) resolvePrices(raw model.RawRecord, deal *model.Deal) *Rejection {
	// 範囲価格を持つソース
	if raw.SalePriceLow > 0 {
		return resolveRangePrices(raw, deal)
	}

	// 構造化された価格ペア
	if raw.SalePrice > 0 && raw.OriginalPrice > 0 {
		return applyPricePair(deal, raw.SalePrice, raw.OriginalPrice)
	}

	// 価格表示テキストからの抽出
	if strings.TrimSpace(raw.PriceText) != "" {
		sale, original, rej := ExtractPricePair(raw.PriceText, raw.CentsTexts)
		if rej != nil {
			return rej
		}
		return applyPricePair(deal, sale, original)
	}

	return &Rejection{Reason: ReasonMissingPrice, Detail: "no resolvable price pair"}
}

// applyPricePair は離散価格ペアを検証してDealに設定する。
// salePrice < originalPrice かつ割引率が5〜90%であることを要求する。
func applyPricePair(deal *model.Deal, sale, original float64) *Rejection {
	if sale <= 0 || original <= 0 || sale >= original {
		return &Rejection{Reason: ReasonDiscountOutOfRange, Detail: "sale price is not below original price"}
	}
	discount := DiscountPercent(sale, original)
	if discount < minDiscountPercent || discount > maxDiscountPercent {
		return &Rejection{Reason: ReasonDiscountOutOfRange, Detail: "discount outside 5-90%"}
	}
	deal.SalePrice = &sale
	deal.OriginalPrice = &original
	deal.DiscountPercent = &discount
	return nil
}

// resolveRangePrices は範囲価格を検証してDealに設定する。
// discountPercentは設定せず、並び替え用にdiscountPercentUpToを計算する。
func resolveRangePrices(raw model.RawRecord, deal *model.Deal) *Rejection {
	saleLow, saleHigh := raw.SalePriceLow, raw.SalePriceHigh
	origLow, origHigh := raw.OriginalPriceLow, raw.OriginalPriceHigh
	if saleHigh == 0 {
		saleHigh = saleLow
	}
	if origHigh == 0 {
		origHigh = origLow
	}
	if origHigh <= 0 || saleLow <= 0 || saleLow >= origHigh {
		return &Rejection{Reason: ReasonDiscountOutOfRange, Detail: "range sale low is not below range original high"}
	}

	upTo := DiscountPercent(saleLow, origHigh)
	deal.SalePriceLow = &saleLow
	deal.SalePriceHigh = &saleHigh
	if origLow > 0 {
		deal.OriginalPriceLow = &origLow
	}
	deal.OriginalPriceHigh = &origHigh
	deal.DiscountPercentUpTo = &upTo
	return nil
}

// DiscountPercent は割引率を四捨五入した整数で返す。
func DiscountPercent(sale, original float64) int {
	return int(math.Round((original - sale) / original * 100))
}

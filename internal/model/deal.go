// Package model はドメインモデルを定義する。
package model

import "time"

// Gender はシューズの対象性別を表す。
type Gender string

const (
	// GenderMens はメンズシューズ。
	GenderMens Gender = "mens"
	// GenderWomens はウィメンズシューズ。
	GenderWomens Gender = "womens"
	// GenderUnisex はユニセックスシューズ。
	GenderUnisex Gender = "unisex"
	// GenderUnknown は性別を判定できなかった場合。
	GenderUnknown Gender = "unknown"
)

// ShoeType はシューズの種別を表す。
type ShoeType string

const (
	// ShoeTypeRoad はロードランニングシューズ。
	ShoeTypeRoad ShoeType = "road"
	// ShoeTypeTrail はトレイルランニングシューズ。
	ShoeTypeTrail ShoeType = "trail"
	// ShoeTypeTrack はトラック（スパイク）シューズ。
	ShoeTypeTrack ShoeType = "track"
	// ShoeTypeUnknown は種別を判定できなかった場合。
	ShoeTypeUnknown ShoeType = "unknown"
)

// Deal は1件の正規化済みセール情報を表す。
// JSONフィールド名は外部コンシューマとのワイヤ契約であり変更してはならない。
// 価格が範囲（複数SKU）で報告されるソースの場合はSalePrice/OriginalPrice/
// DiscountPercentがnilになり、代わりに*Low/*High/DiscountPercentUpToが設定される。
type Deal struct {
	ListingName string `json:"listingName"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`

	SalePrice       *float64 `json:"salePrice"`
	OriginalPrice   *float64 `json:"originalPrice"`
	DiscountPercent *int     `json:"discountPercent"`

	SalePriceLow        *float64 `json:"salePriceLow"`
	SalePriceHigh       *float64 `json:"salePriceHigh"`
	OriginalPriceLow    *float64 `json:"originalPriceLow"`
	OriginalPriceHigh   *float64 `json:"originalPriceHigh"`
	DiscountPercentUpTo *int     `json:"discountPercentUpTo"`

	Store      string   `json:"store"`
	ListingURL string   `json:"listingURL"`
	ImageURL   string   `json:"imageURL"`
	Gender     Gender   `json:"gender"`
	ShoeType   ShoeType `json:"shoeType"`

	ScrapedAt   time.Time `json:"scrapedAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SortDiscount はカタログの並び替えに使用する割引率を返す。
// 単一価格の場合はDiscountPercent、範囲価格の場合はDiscountPercentUpToを使用する。
// どちらも未設定の場合は0を返す。
func (d *Deal) SortDiscount() int {
	if d.DiscountPercent != nil {
		return *d.DiscountPercent
	}
	if d.DiscountPercentUpTo != nil {
		return *d.DiscountPercentUpTo
	}
	return 0
}

// IsRange は価格が範囲で報告されたDealかどうかを返す。
func (d *Deal) IsRange() bool {
	return d.SalePrice == nil && d.SalePriceLow != nil
}

// DedupKey は重複排除キーを返す。
// (store, listingURL)の組で同一性を判定する。listingURLが空の場合は
// 空文字列とfalseを返し、呼び出し元は重複排除の対象外として扱う。
func (d *Deal) DedupKey() (string, bool) {
	if d.ListingURL == "" {
		return "", false
	}
	return d.Store + "|" + d.ListingURL, true
}

// RawRecord はソースごとのスクレイプ結果1件を表す。
// ソースによってフィールドの埋まり方が異なるため、すべて任意項目として扱い、
// 正規化処理（internal/normalize）で必須項目の検証を行う。
type RawRecord struct {
	// Title はリスティングの生テキスト。TitleとListingNameのどちらかが設定される。
	Title       string
	ListingName string

	// SalePrice/OriginalPriceは構造化された価格。0は未設定を意味する。
	SalePrice     float64
	OriginalPrice float64

	// 範囲価格。複数SKUをまとめて1リスティングで売るソースのみ設定する。
	SalePriceLow      float64
	SalePriceHigh     float64
	OriginalPriceLow  float64
	OriginalPriceHigh float64

	// PriceText は構造化価格が取れないソースの価格表示テキスト全体。
	// CentsTexts は小数部が別DOM要素に分かれているソースの補助テキスト。
	PriceText  string
	CentsTexts []string

	// URL/ImageURL はソースの生のリンク。相対URLの場合がある。
	URL      string
	ImageURL string

	// GenderLabel はDOM上に明示的な性別ラベルを持つソースのみ設定する。
	// 設定されている場合は推論をバイパスする。
	GenderLabel Gender
}

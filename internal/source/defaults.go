package source

import (
	"fmt"
	"log/slog"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
)

// DefaultSources は本番構成のリテーラーソース一覧を組み立てる。
// 登録順はマージの安定タイブレーク順になるため、並び替えは互換性に影響する。
func DefaultSources(fetcher *Fetcher, logger *slog.Logger) []Source {
	return []Source{
		// Running Warehouse: クリアランスページ（HTML、ページネーションあり）
		NewHTMLSource(
			normalize.SourceContext{
				Store:           "runningwarehouse",
				BaseURL:         "https://www.runningwarehouse.com",
				DefaultShoeType: model.ShoeTypeRoad,
			},
			fetcher, logger,
			Selectors{
				Item:      "div.cattable-wrap-cell",
				Name:      "div.cattable-wrap-cell-info-name",
				PriceText: "div.cattable-wrap-cell-info-price",
				Image:     "img.cattable-wrap-cell-img",
				Link:      "a.cattable-wrap-cell-link",
			},
			func(page int) string {
				return fmt.Sprintf("https://www.runningwarehouse.com/catpage-SALEMS.html?page=%d", page)
			},
			0,
		),

		// Joe's New Balance Outlet: セール一覧JSONエンドポイント
		NewJSONSource(
			normalize.SourceContext{
				Store:   "joesnewbalance",
				BaseURL: "https://www.joesnewbalanceoutlet.com",
			},
			fetcher, logger,
			"https://www.joesnewbalanceoutlet.com/api/collections/running-shoes-sale/products.json",
		),

		// Holabird Sports: クリアランスページ（HTML、セントが別要素）
		NewHTMLSource(
			normalize.SourceContext{
				Store:   "holabird",
				BaseURL: "https://www.holabirdsports.com",
			},
			fetcher, logger,
			Selectors{
				Item:        "div.product-card",
				Name:        "p.product-card__title",
				PriceText:   "span.price-item--sale",
				Cents:       "sup.price-item__cents",
				Image:       "img.product-card__image",
				Link:        "a.product-card__link",
				GenderLabel: "span.product-card__gender",
			},
			func(page int) string {
				return fmt.Sprintf("https://www.holabirdsports.com/collections/clearance-running-shoes?page=%d", page)
			},
			0,
		),

		// セール情報のRSSフィード（価格は説明文から抽出する）
		NewFeedSource(
			normalize.SourceContext{
				Store:   "runrepeatdeals",
				BaseURL: "https://runrepeat.com",
			},
			fetcher, logger,
			"https://runrepeat.com/deals/feed.rss",
		),
	}
}

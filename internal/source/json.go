package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
)

// JSONSource はJSON形式のセール一覧エンドポイントを持つリテーラー向けの
// ソース。ペイロードの形（deals/items/data.deals/素の配列）と
// フィールド名の揺れはこのアダプタ内で即座にRawRecordへ吸収し、
// 正規化パイプラインがペイロード形状で分岐しないようにする。
type JSONSource struct {
	ctx     normalize.SourceContext
	fetcher *Fetcher
	logger  *slog.Logger
	url     string
}

// NewJSONSource はJSONSourceの新しいインスタンスを生成する。
func NewJSONSource(ctx normalize.SourceContext, fetcher *Fetcher, logger *slog.Logger, url string) *JSONSource {
	return &JSONSource{ctx: ctx, fetcher: fetcher, logger: logger, url: url}
}

// Name はソースの識別名を返す。
func (s *JSONSource) Name() string { return s.ctx.Store }

// Context はこのソースの正規化ルールを返す。
func (s *JSONSource) Context() normalize.SourceContext { return s.ctx }

// Fetch はJSONペイロードを取得してRawRecordに変換する。
func (s *JSONSource) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	body, err := s.fetcher.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}

	entries, err := DecodeEntries(body)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, AdaptEntry(e))
	}

	s.logger.Info("ソースのフェッチが完了しました",
		slog.String("store", s.ctx.Store),
		slog.Int("record_count", len(records)),
	)
	return records, nil
}

// DecodeEntries はJSONペイロードからエントリ配列を取り出す。
// 対応する形: 素の配列、{"deals": [...]}, {"items": [...]}, {"data": {"deals": [...]}}。
func DecodeEntries(body []byte) ([]map[string]any, error) {
	var direct []map[string]any
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("JSONペイロードのパースに失敗: %w", err)
	}

	for _, key := range []string{"deals", "items"} {
		if raw, ok := wrapped[key]; ok {
			var entries []map[string]any
			if err := json.Unmarshal(raw, &entries); err != nil {
				return nil, fmt.Errorf("JSONペイロードの%s配列のパースに失敗: %w", key, err)
			}
			return entries, nil
		}
	}

	if raw, ok := wrapped["data"]; ok {
		return DecodeEntries(raw)
	}

	return nil, fmt.Errorf("JSONペイロードにエントリ配列が見つかりません")
}

// AdaptEntry は1エントリをRawRecordに変換する。
// フィールド名の揺れ（title/listingName/name、price/salePriceなど）を
// 吸収し、文字列で入っている数値も許容する。
func AdaptEntry(e map[string]any) model.RawRecord {
	rec := model.RawRecord{
		Title:         stringField(e, "listingName", "title", "name"),
		URL:           stringField(e, "listingURL", "url", "link"),
		ImageURL:      stringField(e, "imageURL", "image", "img"),
		PriceText:     stringField(e, "priceText"),
		SalePrice:     numberField(e, "salePrice", "price"),
		OriginalPrice: numberField(e, "originalPrice", "listPrice", "msrp"),

		SalePriceLow:      numberField(e, "salePriceLow"),
		SalePriceHigh:     numberField(e, "salePriceHigh"),
		OriginalPriceLow:  numberField(e, "originalPriceLow"),
		OriginalPriceHigh: numberField(e, "originalPriceHigh"),
	}
	if g := stringField(e, "gender"); g != "" {
		rec.GenderLabel = parseGenderLabel(g)
	}
	return rec
}

// stringField は候補キーのうち最初に見つかった文字列値を返す。
func stringField(e map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := e[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// numberField は候補キーのうち最初に見つかった数値を返す。
// JSONのnumberに加えて、数値が文字列で入っているソースも許容する。
func numberField(e map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := e[key].(type) {
		case float64:
			if v > 0 {
				return v
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
	}
	return 0
}

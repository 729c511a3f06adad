package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
)

// Selectors はHTMLソース1つ分のgoqueryセレクタ設定。
// リテーラーごとのマークアップ差異はすべてこの設定に閉じ込め、
// 抽出ロジック自体は共通化する。
type Selectors struct {
	// Item はリスティング1件を囲む要素。
	Item string
	// Name はItem内のリスティング名要素。
	Name string
	// PriceText はItem内の価格表示要素。複数一致した場合は連結する。
	PriceText string
	// Cents は小数部が別要素に分かれているソースの補助要素（任意）。
	Cents string
	// Image はItem内の画像要素。src、無ければdata-srcを読む。
	Image string
	// Link はItem内のリンク要素。hrefを読む。空の場合はItem自身のhrefを読む。
	Link string
	// GenderLabel は性別の明示ラベル要素（任意）。
	// 設定されている場合、このソースは性別推論をバイパスする。
	GenderLabel string
}

// HTMLSource はgoqueryでHTMLページからRawRecordを抽出するソース。
type HTMLSource struct {
	ctx      normalize.SourceContext
	fetcher  *Fetcher
	logger   *slog.Logger
	sel      Selectors
	pageURL  func(page int) string
	maxPages int
}

// NewHTMLSource はHTMLSourceの新しいインスタンスを生成する。
// pageURLはページ番号（1始まり）から取得URLを組み立てる。
// maxPagesが0以下の場合はDefaultMaxPagesを使用する。
func NewHTMLSource(ctx normalize.SourceContext, fetcher *Fetcher, logger *slog.Logger, sel Selectors, pageURL func(page int) string, maxPages int) *HTMLSource {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &HTMLSource{
		ctx:      ctx,
		fetcher:  fetcher,
		logger:   logger,
		sel:      sel,
		pageURL:  pageURL,
		maxPages: maxPages,
	}
}

// Name はソースの識別名を返す。
func (s *HTMLSource) Name() string { return s.ctx.Store }

// Context はこのソースの正規化ルールを返す。
func (s *HTMLSource) Context() normalize.SourceContext { return s.ctx }

// Fetch はページを順に取得してRawRecordを抽出する。
// レコードが1件も取れないページに達した時点で打ち切る。
// ページ数はmaxPagesで上限され、壊れたページネーションでも終了する。
func (s *HTMLSource) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	var records []model.RawRecord

	for page := 1; page <= s.maxPages; page++ {
		body, err := s.fetcher.Get(ctx, s.pageURL(page))
		if err != nil {
			// 1ページ目の失敗はソース障害。2ページ目以降はそこまでの結果を返す。
			if page == 1 {
				return nil, err
			}
			s.logger.Warn("ページ取得に失敗したため残りを打ち切ります",
				slog.String("store", s.ctx.Store),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			break
		}

		pageRecords, err := s.extract(body)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}
		if len(pageRecords) == 0 {
			break
		}
		records = append(records, pageRecords...)
	}

	s.logger.Info("ソースのフェッチが完了しました",
		slog.String("store", s.ctx.Store),
		slog.Int("record_count", len(records)),
	)
	return records, nil
}

// extract は1ページ分のHTMLからRawRecordを抽出する。
func (s *HTMLSource) extract(body []byte) ([]model.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTMLのパースに失敗: %w", err)
	}

	var records []model.RawRecord
	doc.Find(s.sel.Item).Each(func(_ int, item *goquery.Selection) {
		rec := model.RawRecord{
			Title: strings.TrimSpace(item.Find(s.sel.Name).First().Text()),
		}

		var priceParts []string
		item.Find(s.sel.PriceText).Each(func(_ int, sel *goquery.Selection) {
			priceParts = append(priceParts, strings.TrimSpace(sel.Text()))
		})
		rec.PriceText = strings.Join(priceParts, " ")

		if s.sel.Cents != "" {
			item.Find(s.sel.Cents).Each(func(_ int, sel *goquery.Selection) {
				rec.CentsTexts = append(rec.CentsTexts, strings.TrimSpace(sel.Text()))
			})
		}

		img := item.Find(s.sel.Image).First()
		rec.ImageURL = img.AttrOr("src", "")
		if rec.ImageURL == "" {
			rec.ImageURL = img.AttrOr("data-src", "")
		}

		if s.sel.Link != "" {
			rec.URL = item.Find(s.sel.Link).First().AttrOr("href", "")
		} else {
			rec.URL = item.AttrOr("href", "")
		}

		if s.sel.GenderLabel != "" {
			rec.GenderLabel = parseGenderLabel(item.Find(s.sel.GenderLabel).First().Text())
		}

		records = append(records, rec)
	})
	return records, nil
}

// parseGenderLabel はDOM上の明示ラベルをGenderに変換する。
// 判別できないラベルは空を返し、通常の推論に委ねる。
func parseGenderLabel(label string) model.Gender {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "men", "mens", "men's", "male":
		return model.GenderMens
	case "women", "womens", "women's", "female", "ladies":
		return model.GenderWomens
	case "unisex":
		return model.GenderUnisex
	default:
		return ""
	}
}

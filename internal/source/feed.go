package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
)

// FeedSource はセール情報をRSS/Atomフィードで公開しているリテーラー向けの
// ソース。フィードの各エントリを1リスティングとして扱い、価格は
// 説明文のテキストから抽出する。
type FeedSource struct {
	ctx     normalize.SourceContext
	fetcher *Fetcher
	logger  *slog.Logger
	feedURL string
}

// NewFeedSource はFeedSourceの新しいインスタンスを生成する。
func NewFeedSource(ctx normalize.SourceContext, fetcher *Fetcher, logger *slog.Logger, feedURL string) *FeedSource {
	return &FeedSource{ctx: ctx, fetcher: fetcher, logger: logger, feedURL: feedURL}
}

// Name はソースの識別名を返す。
func (s *FeedSource) Name() string { return s.ctx.Store }

// Context はこのソースの正規化ルールを返す。
func (s *FeedSource) Context() normalize.SourceContext { return s.ctx }

// Fetch はフィードを取得してRawRecordに変換する。
func (s *FeedSource) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	body, err := s.fetcher.Get(ctx, s.feedURL)
	if err != nil {
		return nil, err
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	records := make([]model.RawRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		rec := model.RawRecord{
			Title: item.Title,
			URL:   item.Link,
			// 説明文のHTMLをプレーンテキストに落としてから価格抽出に回す
			PriceText: extractText(item.Description),
		}
		if item.Image != nil {
			rec.ImageURL = item.Image.URL
		}
		if rec.ImageURL == "" {
			for _, enc := range item.Enclosures {
				if enc != nil && strings.HasPrefix(enc.Type, "image/") {
					rec.ImageURL = enc.URL
					break
				}
			}
		}
		records = append(records, rec)
	}

	s.logger.Info("ソースのフェッチが完了しました",
		slog.String("store", s.ctx.Store),
		slog.Int("record_count", len(records)),
	)
	return records, nil
}

// extractText はHTML断片からテキストノードのみを連結して返す。
// パースに失敗した場合は入力をそのまま返す（価格抽出の正規表現は
// タグ混じりでも動作するため、劣化はするが失敗にはしない）。
func extractText(fragment string) string {
	if fragment == "" {
		return ""
	}
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			text := strings.TrimSpace(b.String())
			if text == "" {
				return fragment
			}
			return text
		case html.TextToken:
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
}

// Package merge は全ソースの正規化結果を単一のカタログへ統合する。
// 重複排除、割引率順の並び替え、ソースごとの健全性統計の集計を行う。
package merge

import (
	"log/slog"
	"sort"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
)

// SourceBatch は1ソース分のフェッチ結果を表す。
// フェッチ自体が失敗したソースはFetchErrを設定し、Recordsは空にする。
type SourceBatch struct {
	Context  normalize.SourceContext
	Records  []model.RawRecord
	FetchErr error
}

// SourceStats は1ソースの受理/拒否件数と拒否理由の内訳。
type SourceStats struct {
	Accepted      int                               `json:"accepted"`
	Rejected      int                               `json:"rejected"`
	RejectReasons map[normalize.RejectReason]int    `json:"rejectReasons,omitempty"`
	FetchError    string                            `json:"fetchError,omitempty"`
}

// Stats はマージ全体の集計統計。可観測性のために収集する。
type Stats struct {
	TotalDeals   int                     `json:"totalDeals"`
	DealsByStore map[string]int          `json:"dealsByStore"`
	WithImage    int                     `json:"withImage"`
	AtLeast10Off int                     `json:"atLeast10Off"`
	AtLeast25Off int                     `json:"atLeast25Off"`
	AtLeast50Off int                     `json:"atLeast50Off"`
	Sources      map[string]*SourceStats `json:"sources"`
}

// Result はマージの出力。カタログとして永続化されるDealリストと統計。
type Result struct {
	Deals []model.Deal
	Stats Stats
}

// Engine はマージ処理を実行する。
// 重複排除・並び替え・統計は同期的でCPUバウンドであり、
// 構築中のリストへの排他アクセスを前提とする（単一ライター）。
type Engine struct {
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine(normalizer *normalize.Normalizer, logger *slog.Logger) *Engine {
	return &Engine{normalizer: normalizer, logger: logger}
}

// Merge は全ソースのバッチを正規化して単一カタログへ統合する。
//
// 重複排除は(store, listingURL)をキーとする先勝ち。URLを持たない
// レコードは互いに重複排除されず、すべて残る。並び順は割引率の降順
// （範囲価格はdiscountPercentUpToを使用）で、同率はバッチの到着順を
// 保存する安定ソート。同じ入力からは常に同一のカタログが得られる。
//
// 個別ソースのフェッチ失敗は統計に記録するだけで、他ソースの
// マージを中断しない。
func (e *Engine) Merge(batches []SourceBatch) Result {
	result := Result{
		Stats: Stats{
			DealsByStore: make(map[string]int),
			Sources:      make(map[string]*SourceStats),
		},
	}

	seen := make(map[string]bool)

	for _, batch := range batches {
		store := batch.Context.Store
		stats := &SourceStats{RejectReasons: make(map[normalize.RejectReason]int)}
		result.Stats.Sources[store] = stats

		if batch.FetchErr != nil {
			stats.FetchError = batch.FetchErr.Error()
			e.logger.Warn("ソースのフェッチに失敗したためマージから除外します",
				slog.String("store", store),
				slog.String("error", batch.FetchErr.Error()),
			)
			continue
		}

		for _, raw := range batch.Records {
			deal, rej := e.normalizer.Normalize(raw, batch.Context)
			if rej != nil {
				stats.Rejected++
				stats.RejectReasons[rej.Reason]++
				continue
			}

			if key, ok := deal.DedupKey(); ok {
				if seen[key] {
					continue
				}
				seen[key] = true
			}

			stats.Accepted++
			result.Deals = append(result.Deals, *deal)
		}
	}

	sort.SliceStable(result.Deals, func(i, j int) bool {
		return result.Deals[i].SortDiscount() > result.Deals[j].SortDiscount()
	})

	e.aggregate(&result)

	e.logger.Info("マージが完了しました",
		slog.Int("total_deals", result.Stats.TotalDeals),
		slog.Int("source_count", len(batches)),
		slog.Int("with_image", result.Stats.WithImage),
	)

	return result
}

// aggregate はカタログ全体の統計を集計する。
func (e *Engine) aggregate(result *Result) {
	for i := range result.Deals {
		d := &result.Deals[i]
		result.Stats.TotalDeals++
		result.Stats.DealsByStore[d.Store]++
		if d.ImageURL != "" {
			result.Stats.WithImage++
		}
		discount := d.SortDiscount()
		if discount >= 10 {
			result.Stats.AtLeast10Off++
		}
		if discount >= 25 {
			result.Stats.AtLeast25Off++
		}
		if discount >= 50 {
			result.Stats.AtLeast50Off++
		}
	}
}

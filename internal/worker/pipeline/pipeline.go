// Package pipeline はセール集約パイプラインのバッチ実行を提供する。
// 1回の実行で全ソースのフェッチ、正規化・マージ、カタログ保存、
// アラートマッチング、通知配信、通知記帳までを行う。
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/dealman/internal/alert"
	"github.com/hitoshi/dealman/internal/catalog"
	"github.com/hitoshi/dealman/internal/merge"
	"github.com/hitoshi/dealman/internal/metrics"
	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/notify"
	"github.com/hitoshi/dealman/internal/source"
)

// Pipeline はパイプライン1実行分の依存をまとめる。
type Pipeline struct {
	registry       *source.Registry
	enabled        map[string]bool
	engine         *merge.Engine
	catalogStore   *catalog.Store
	alertService   *alert.Service
	matcher        *alert.Matcher
	notifier       *notify.Notifier
	collector      metrics.PipelineCollector
	logger         *slog.Logger
	maxConcurrency int
}

// Config はPipelineの構築パラメータ。
type Config struct {
	// EnabledSources は今回の実行で有効にするソース名の集合。
	// 空の場合は全ソースが有効になる。プロセス全体のトグルではなく、
	// 実行単位のスコープを持つ。
	EnabledSources map[string]bool
	// MaxConcurrency はソースフェッチの最大並列数。0以下は4。
	MaxConcurrency int
}

// New はPipelineの新しいインスタンスを生成する。
func New(
	registry *source.Registry,
	engine *merge.Engine,
	catalogStore *catalog.Store,
	alertService *alert.Service,
	matcher *alert.Matcher,
	notifier *notify.Notifier,
	collector metrics.PipelineCollector,
	logger *slog.Logger,
	cfg Config,
) *Pipeline {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Pipeline{
		registry:       registry,
		enabled:        cfg.EnabledSources,
		engine:         engine,
		catalogStore:   catalogStore,
		alertService:   alertService,
		matcher:        matcher,
		notifier:       notifier,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// RunOnce はパイプラインを1回実行する。
//
// ソースは独立したネットワークI/Oのためsemaphoreパターンで並列に
// フェッチする。各ソースの結果は自分のスロットにのみ書き込み、
// 合流後のマージ・保存・マッチングは単一ゴルーチンで行う
// （fan-out/fan-in、結合は単一ライター）。
//
// 個別ソースの失敗は統計として記録され、実行は継続する。
// カタログ保存またはアラートドキュメント操作の失敗のみが
// 実行全体の失敗となり、次回のスケジュールで再試行される。
func (p *Pipeline) RunOnce(ctx context.Context) error {
	start := time.Now()
	sources := p.registry.Enabled(p.enabled)

	p.logger.Info("パイプライン実行を開始します",
		slog.Int("source_count", len(sources)),
		slog.Int("max_concurrency", p.maxConcurrency),
	)

	batches := p.fetchAll(ctx, sources)
	result := p.engine.Merge(batches)
	p.recordMergeMetrics(result)

	if err := p.catalogStore.Save(ctx, result.Deals, result.Stats.DealsByStore); err != nil {
		return err
	}

	now := time.Now().UTC()
	alerts, err := p.alertService.ListActive(ctx, now)
	if err != nil {
		return err
	}

	events := p.matcher.Match(result.Deals, alerts, now)
	notified := p.notifier.Deliver(ctx, events)
	p.collector.RecordNotificationsSent(len(notified))
	p.collector.RecordNotificationFailures(len(events) - len(notified))

	if err := p.alertService.MarkNotified(ctx, notified, now); err != nil {
		return err
	}

	duration := time.Since(start)
	p.collector.RecordRunDuration(duration)
	p.logger.Info("パイプライン実行が完了しました",
		slog.Int("total_deals", result.Stats.TotalDeals),
		slog.Int("active_alerts", len(alerts)),
		slog.Int("events", len(events)),
		slog.Int("notified", len(notified)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

// fetchAll は全ソースをsemaphoreパターンで並列フェッチする。
// 返り値のバッチ順はソースの登録順と一致し、マージの安定した
// タイブレーク順を保証する。
func (p *Pipeline) fetchAll(ctx context.Context, sources []source.Source) []merge.SourceBatch {
	batches := make([]merge.SourceBatch, len(sources))

	sem := make(chan struct{}, p.maxConcurrency)
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, src source.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			records, err := p.fetchOne(ctx, src)
			batches[i] = merge.SourceBatch{
				Context:  src.Context(),
				Records:  records,
				FetchErr: err,
			}
		}(i, src)
	}

	wg.Wait()
	return batches
}

// fetchOne は1ソースをフェッチする。ソース実装のパニックも
// ソース障害として回収し、実行全体を道連れにしない。
func (p *Pipeline) fetchOne(ctx context.Context, src source.Source) (records []model.RawRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ソースのフェッチでパニックが発生しました",
				slog.String("store", src.Name()),
				slog.Any("panic", r),
			)
			records = nil
			err = &sourcePanicError{store: src.Name()}
		}
	}()

	records, err = src.Fetch(ctx)
	if err != nil {
		p.collector.RecordSourceFailure(src.Name())
		return nil, err
	}
	p.collector.RecordSourceSuccess(src.Name())
	return records, nil
}

// recordMergeMetrics はマージ結果の統計をメトリクスに反映する。
func (p *Pipeline) recordMergeMetrics(result merge.Result) {
	p.collector.RecordDealsMerged(result.Stats.TotalDeals)
	for store, stats := range result.Stats.Sources {
		p.collector.RecordRecordsAccepted(store, stats.Accepted)
		for reason, count := range stats.RejectReasons {
			p.collector.RecordRecordsRejected(store, string(reason), count)
		}
	}
}

// sourcePanicError はソース実装のパニックをソース障害として表す。
type sourcePanicError struct {
	store string
}

func (e *sourcePanicError) Error() string {
	return "ソース " + e.store + " の実装がパニックしました"
}

package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler はパイプラインのティッカー実行を行う。
// 実行は1日1回程度のバッチであり、途中キャンセルはctxの取り消しのみ。
// 1回の実行が失敗しても次のティックで再試行される。
type Scheduler struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{pipeline: pipeline, logger: logger}
}

// Start は指定間隔のティッカーでパイプラインを定期実行する。
// 起動直後に1回実行し、以降はコンテキストがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("パイプラインスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	if err := s.pipeline.RunOnce(ctx); err != nil {
		s.logger.Error("パイプライン実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("パイプラインスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.pipeline.RunOnce(ctx); err != nil {
				s.logger.Error("パイプライン実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

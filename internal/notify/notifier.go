package notify

import (
	"context"
	"log/slog"

	"github.com/hitoshi/dealman/internal/model"
)

// Notifier は通知イベントの配信を実行する。
type Notifier struct {
	mailer   Mailer
	renderer *Renderer
	logger   *slog.Logger
}

// NewNotifier はNotifierの新しいインスタンスを生成する。
func NewNotifier(mailer Mailer, renderer *Renderer, logger *slog.Logger) *Notifier {
	return &Notifier{mailer: mailer, renderer: renderer, logger: logger}
}

// Deliver は通知イベントを順に配信し、配信に成功したアラートIDを返す。
//
// 個別イベントの配信失敗はログに記録して次へ進み、バッチ全体を
// 中断しない。失敗したイベントのアラートIDは返り値に含まれないため、
// 呼び出し元がlastNotifiedAtを記帳するのは実際に配信できたアラートに
// 限られる（配信失敗を成功として報告しない）。
func (n *Notifier) Deliver(ctx context.Context, events []model.NotificationEvent) []string {
	var notified []string

	for _, ev := range events {
		subject, htmlBody, plainBody, err := n.renderer.Render(ev)
		if err != nil {
			n.logger.Error("通知メールの組み立てに失敗しました",
				slog.String("alert_id", ev.Alert.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := n.mailer.Send(ctx, ev.Alert.Email, subject, htmlBody, plainBody); err != nil {
			n.logger.Error("通知メールの配信に失敗しました",
				slog.String("alert_id", ev.Alert.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		n.logger.Info("通知メールを配信しました",
			slog.String("alert_id", ev.Alert.ID),
			slog.Int("deal_count", len(ev.Deals)),
		)
		notified = append(notified, ev.Alert.ID)
	}

	return notified
}

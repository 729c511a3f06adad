package notify

import (
	"context"
	"log/slog"
)

// LogMailer は実際の送信を行わず、ログに記録するだけのMailer実装。
// SENDGRID_API_KEY未設定のdry-run運用とテストで使用する。
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer はLogMailerの新しいインスタンスを生成する。
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send はメール内容をログに記録する。常に成功する。
func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody, plainBody string) error {
	m.logger.Info("dry-run: メール送信をスキップしました",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("html_bytes", len(htmlBody)),
	)
	return nil
}

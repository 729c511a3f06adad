// Package notify は通知メールの組み立てと配信を提供する。
// 配信の成否はアラートのlastNotifiedAt記帳と分離され、
// 配信に失敗したアラートは通知済みとして報告されない。
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer はメール配信のインターフェース。テスト時にモックへ差し替える。
type Mailer interface {
	// Send は1通のメールを送信する。配信失敗はエラーとして返す。
	Send(ctx context.Context, to, subject, htmlBody, plainBody string) error
}

// SendGridMailer はSendGrid API v3によるMailerの実装。
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridMailer はSendGridMailerの新しいインスタンスを生成する。
func NewSendGridMailer(apiKey, fromName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// Send は1通のメールを送信する。
// SendGridが2xx以外を返した場合はエラーとして扱う。
func (m *SendGridMailer) Send(ctx context.Context, to, subject, htmlBody, plainBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.fromEmail),
		subject,
		mail.NewEmail("", to),
		plainBody,
		htmlBody,
	)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("SendGrid APIの呼び出しに失敗: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid APIがステータス %d を返しました", resp.StatusCode)
	}
	return nil
}

package model

import "time"

const (
	// AlertLifetime はアラートの有効期間。setAtからこの期間を過ぎると自動失効する。
	AlertLifetime = 30 * 24 * time.Hour
	// NotifyCooldown は同一アラートへの通知の最低間隔。
	NotifyCooldown = 24 * time.Hour
)

// Alert はユーザーの通知購読を表す。
// JSONフィールド名はアラートドキュメントのワイヤ契約。
type Alert struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	Gender Gender `json:"gender,omitempty"`

	// TargetPrice は整数ドル。salePrice <= TargetPriceのDealのみマッチする。
	TargetPrice int `json:"targetPrice"`

	SetAt          time.Time  `json:"setAt"`
	CancelledAt    *time.Time `json:"cancelledAt"`
	LastNotifiedAt *time.Time `json:"lastNotifiedAt"`
}

// IsActive はアラートが有効かどうかを返す。
// キャンセル済み、または設定から30日を経過したアラートは無効。
func (a *Alert) IsActive(now time.Time) bool {
	if a.CancelledAt != nil {
		return false
	}
	return now.Before(a.SetAt.Add(AlertLifetime))
}

// InCooldown は通知クールダウン中かどうかを返す。
// 最終通知から24時間未満の場合はtrue。
func (a *Alert) InCooldown(now time.Time) bool {
	if a.LastNotifiedAt == nil {
		return false
	}
	return now.Sub(*a.LastNotifiedAt) < NotifyCooldown
}

// DaysRemaining はアラートの残り有効日数を返す。負にはならない。
func (a *Alert) DaysRemaining(now time.Time) int {
	elapsed := int(now.Sub(a.SetAt).Hours() / 24)
	remaining := 30 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NotificationEvent はアラートにマッチするDealが見つかったことを表す通知イベント。
// 配信はinternal/notifyが担当し、配信の成否とlastNotifiedAtの記帳は分離される。
type NotificationEvent struct {
	Alert Alert
	// Deals はマッチしたDeal。salePrice昇順、メールサイズ制限のため上限件数まで。
	Deals []Deal
	// DaysRemaining はアラートの残り有効日数。メール本文に表示する。
	DaysRemaining int
}

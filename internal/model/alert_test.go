package model

import (
	"testing"
	"time"
)

func TestAlert_IsActive(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		alert Alert
		want  bool
	}{
		{
			name:  "設定直後は有効",
			alert: Alert{SetAt: now.Add(-time.Hour)},
			want:  true,
		},
		{
			name:  "30日直前は有効",
			alert: Alert{SetAt: now.Add(-30*24*time.Hour + time.Minute)},
			want:  true,
		},
		{
			name:  "ちょうど30日で失効",
			alert: Alert{SetAt: now.Add(-30 * 24 * time.Hour)},
			want:  false,
		},
		{
			name:  "31日経過は失効",
			alert: Alert{SetAt: now.Add(-31 * 24 * time.Hour)},
			want:  false,
		},
		{
			name: "キャンセル済みは期間内でも無効",
			alert: Alert{
				SetAt:       now.Add(-time.Hour),
				CancelledAt: timePtr(now.Add(-time.Minute)),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.alert.IsActive(now); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlert_InCooldown(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		alert Alert
		want  bool
	}{
		{
			name:  "未通知はクールダウンなし",
			alert: Alert{},
			want:  false,
		},
		{
			name:  "23時間前の通知はクールダウン中",
			alert: Alert{LastNotifiedAt: timePtr(now.Add(-23 * time.Hour))},
			want:  true,
		},
		{
			name:  "ちょうど24時間で解除",
			alert: Alert{LastNotifiedAt: timePtr(now.Add(-24 * time.Hour))},
			want:  false,
		},
		{
			name:  "25時間前は解除済み",
			alert: Alert{LastNotifiedAt: timePtr(now.Add(-25 * time.Hour))},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.alert.InCooldown(now); got != tt.want {
				t.Errorf("InCooldown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlert_DaysRemaining(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		setAt time.Time
		want  int
	}{
		{name: "設定直後は30日", setAt: now, want: 30},
		{name: "10日経過で20日", setAt: now.Add(-10 * 24 * time.Hour), want: 20},
		{name: "半端な経過は切り捨て", setAt: now.Add(-10*24*time.Hour - 12*time.Hour), want: 20},
		{name: "失効後は0未満にならない", setAt: now.Add(-40 * 24 * time.Hour), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Alert{SetAt: tt.setAt}
			if got := a.DaysRemaining(now); got != tt.want {
				t.Errorf("DaysRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

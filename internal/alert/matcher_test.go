package alert

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/dealman/internal/model"
)

func testMatcher() *Matcher {
	return NewMatcher(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func ptr(v float64) *float64 { return &v }

func discreteDeal(brand, shoeModel string, gender model.Gender, sale float64) model.Deal {
	return model.Deal{
		ListingName: brand + " " + shoeModel,
		Brand:       brand,
		Model:       shoeModel,
		Gender:      gender,
		SalePrice:   ptr(sale),
	}
}

func activeAlert(brand, shoeModel string, gender model.Gender, targetPrice int, now time.Time) model.Alert {
	return model.Alert{
		ID:          "alert-1",
		Email:       "runner@example.com",
		Brand:       brand,
		Model:       shoeModel,
		Gender:      gender,
		TargetPrice: targetPrice,
		SetAt:       now.Add(-time.Hour),
	}
}

func TestMatchDeal(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name  string
		alert model.Alert
		deal  model.Deal
		want  bool
	}{
		{
			name:  "完全一致",
			alert: activeAlert("Brooks", "Ghost", "", 100, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderMens, 82.95),
			want:  true,
		},
		{
			name:  "小文字・記号抜きの入力でも一致",
			alert: activeAlert("asics", "gt2000", "", 100, now),
			deal:  discreteDeal("Asics", "GT-2000 12", model.GenderMens, 79.95),
			want:  true,
		},
		{
			// モデル欄にブランドごと入力されてもスカッシュ一致で救済する
			name:  "ブランド込みモデル入力のスカッシュ一致",
			alert: activeAlert("", "asicsgt2000", "", 100, now),
			deal:  discreteDeal("Asics", "GT-2000 12", model.GenderMens, 79.95),
			want:  true,
		},
		{
			name:  "ブランド不一致",
			alert: activeAlert("Brooks", "Ghost", "", 100, now),
			deal:  discreteDeal("Saucony", "Ride 16", model.GenderMens, 82.95),
			want:  false,
		},
		{
			name:  "モデル不一致",
			alert: activeAlert("Brooks", "Glycerin", "", 100, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderMens, 82.95),
			want:  false,
		},
		{
			name:  "ブランド・モデル未指定はブランド横断で一致",
			alert: activeAlert("", "", "", 100, now),
			deal:  discreteDeal("Hoka", "Clifton 9", model.GenderWomens, 90),
			want:  true,
		},
		{
			name:  "目標価格ちょうどは一致",
			alert: activeAlert("Brooks", "Ghost", "", 82, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderMens, 82),
			want:  true,
		},
		{
			name:  "目標価格超過は不一致",
			alert: activeAlert("Brooks", "Ghost", "", 80, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderMens, 82.95),
			want:  false,
		},
		{
			name:  "性別フィルタ一致",
			alert: activeAlert("Brooks", "Ghost", model.GenderWomens, 100, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderWomens, 82.95),
			want:  true,
		},
		{
			name:  "性別フィルタ不一致",
			alert: activeAlert("Brooks", "Ghost", model.GenderWomens, 100, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderMens, 82.95),
			want:  false,
		},
		{
			name:  "ユニセックスDealはどの性別指定にも一致",
			alert: activeAlert("Brooks", "Ghost", model.GenderMens, 100, now),
			deal:  discreteDeal("Brooks", "Ghost 15", model.GenderUnisex, 82.95),
			want:  true,
		},
		{
			name:  "価格情報のないDealは不一致",
			alert: activeAlert("Brooks", "Ghost", "", 100, now),
			deal: model.Deal{
				Brand: "Brooks",
				Model: "Ghost 15",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchDeal(&tt.alert, &tt.deal); got != tt.want {
				t.Errorf("MatchDeal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchDeal_RangePriceUsesLowEnd(t *testing.T) {
	now := time.Now().UTC()
	a := activeAlert("Asics", "Nimbus", "", 100, now)
	d := model.Deal{
		Brand:        "Asics",
		Model:        "Gel-Nimbus 25",
		SalePriceLow: ptr(99.95),
	}

	if !MatchDeal(&a, &d) {
		t.Error("範囲価格のDealはsalePriceLowで判定されるべきです")
	}

	a.TargetPrice = 90
	if MatchDeal(&a, &d) {
		t.Error("salePriceLowが目標を超える場合は不一致のはずです")
	}
}

func TestMatch_SkipsInactiveAndCooldown(t *testing.T) {
	m := testMatcher()
	now := time.Now().UTC()
	catalog := []model.Deal{discreteDeal("Brooks", "Ghost 15", model.GenderMens, 80)}

	cancelled := activeAlert("Brooks", "Ghost", "", 100, now)
	cancelledAt := now.Add(-time.Hour)
	cancelled.CancelledAt = &cancelledAt

	expired := activeAlert("Brooks", "Ghost", "", 100, now)
	expired.SetAt = now.Add(-31 * 24 * time.Hour)

	cooling := activeAlert("Brooks", "Ghost", "", 100, now)
	lastNotified := now.Add(-23 * time.Hour)
	cooling.LastNotifiedAt = &lastNotified

	cooled := activeAlert("Brooks", "Ghost", "", 100, now)
	cooled.ID = "alert-cooled"
	longAgo := now.Add(-25 * time.Hour)
	cooled.LastNotifiedAt = &longAgo

	events := m.Match(catalog, []model.Alert{cancelled, expired, cooling, cooled}, now)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Alert.ID != "alert-cooled" {
		t.Errorf("通知対象 = %s, want alert-cooled", events[0].Alert.ID)
	}
}

func TestMatch_InvalidAlertDoesNotAbortBatch(t *testing.T) {
	m := testMatcher()
	now := time.Now().UTC()
	catalog := []model.Deal{discreteDeal("Brooks", "Ghost 15", model.GenderMens, 80)}

	broken := activeAlert("Brooks", "Ghost", "", 100, now)
	broken.Email = ""

	healthy := activeAlert("Brooks", "Ghost", "", 100, now)
	healthy.ID = "alert-healthy"

	events := m.Match(catalog, []model.Alert{broken, healthy}, now)
	if len(events) != 1 || events[0].Alert.ID != "alert-healthy" {
		t.Fatalf("不正アラートの混入でバッチが壊れています: %+v", events)
	}
}

func TestMatch_CapsAndSortsDeals(t *testing.T) {
	m := testMatcher()
	now := time.Now().UTC()

	// 12件中、salePrice昇順の上位10件だけが残る
	var catalog []model.Deal
	for i := 0; i < 12; i++ {
		d := discreteDeal("Brooks", "Ghost 15", model.GenderMens, float64(100-i))
		d.ListingURL = fmt.Sprintf("https://example.com/ghost-%d", i)
		catalog = append(catalog, d)
	}

	a := activeAlert("Brooks", "Ghost", "", 100, now)
	events := m.Match(catalog, []model.Alert{a}, now)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}

	deals := events[0].Deals
	if len(deals) != 10 {
		t.Fatalf("deals = %d, want 10", len(deals))
	}
	for i := 1; i < len(deals); i++ {
		if *deals[i-1].SalePrice > *deals[i].SalePrice {
			t.Fatalf("salePrice昇順になっていません: %v > %v",
				*deals[i-1].SalePrice, *deals[i].SalePrice)
		}
	}
	// 最安の89〜98が残り、99と100は落ちる
	if *deals[0].SalePrice != 89 || *deals[9].SalePrice != 98 {
		t.Errorf("上限超過時は高額側から切り捨てるべきです: %v .. %v",
			*deals[0].SalePrice, *deals[9].SalePrice)
	}
}

func TestMatch_NoEventWithoutMatches(t *testing.T) {
	m := testMatcher()
	now := time.Now().UTC()
	catalog := []model.Deal{discreteDeal("Saucony", "Ride 16", model.GenderMens, 80)}

	a := activeAlert("Brooks", "Ghost", "", 100, now)
	events := m.Match(catalog, []model.Alert{a}, now)
	if len(events) != 0 {
		t.Errorf("マッチ0件のアラートにイベントを発行してはいけません: %d", len(events))
	}
}

func TestMatch_DaysRemaining(t *testing.T) {
	m := testMatcher()
	now := time.Now().UTC()
	catalog := []model.Deal{discreteDeal("Brooks", "Ghost 15", model.GenderMens, 80)}

	a := activeAlert("Brooks", "Ghost", "", 100, now)
	a.SetAt = now.Add(-10 * 24 * time.Hour)

	events := m.Match(catalog, []model.Alert{a}, now)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].DaysRemaining != 20 {
		t.Errorf("daysRemaining = %d, want 20", events[0].DaysRemaining)
	}
}

func TestSquash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GT-2000 12", "gt200012"},
		{"Gel-Kayano", "gelkayano"},
		{"  Ghost 15  ", "ghost15"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Squash(tt.in); got != tt.want {
			t.Errorf("Squash(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package model

import "testing"

func ptrF(v float64) *float64 { return &v }

func ptrI(v int) *int { return &v }

func TestDeal_SortDiscount(t *testing.T) {
	tests := []struct {
		name string
		deal Deal
		want int
	}{
		{
			name: "離散価格はdiscountPercent",
			deal: Deal{DiscountPercent: ptrI(41)},
			want: 41,
		},
		{
			name: "範囲価格はdiscountPercentUpTo",
			deal: Deal{DiscountPercentUpTo: ptrI(38)},
			want: 38,
		},
		{
			name: "両方設定なら離散側を優先",
			deal: Deal{DiscountPercent: ptrI(41), DiscountPercentUpTo: ptrI(38)},
			want: 41,
		},
		{
			name: "未設定は0",
			deal: Deal{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.deal.SortDiscount(); got != tt.want {
				t.Errorf("SortDiscount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeal_IsRange(t *testing.T) {
	discrete := Deal{SalePrice: ptrF(82.95)}
	if discrete.IsRange() {
		t.Error("離散価格のDealがIsRange=true")
	}

	ranged := Deal{SalePriceLow: ptrF(99.95), SalePriceHigh: ptrF(119.95)}
	if !ranged.IsRange() {
		t.Error("範囲価格のDealがIsRange=false")
	}

	empty := Deal{}
	if empty.IsRange() {
		t.Error("価格なしのDealがIsRange=true")
	}
}

func TestDeal_DedupKey(t *testing.T) {
	d := Deal{Store: "runningwarehouse", ListingURL: "https://example.com/ghost-15"}
	key, ok := d.DedupKey()
	if !ok {
		t.Fatal("URLがあるのにDedupKeyがfalse")
	}
	if key != "runningwarehouse|https://example.com/ghost-15" {
		t.Errorf("key = %q", key)
	}

	// ストアが違えばキーも違う
	other := Deal{Store: "holabird", ListingURL: "https://example.com/ghost-15"}
	otherKey, _ := other.DedupKey()
	if key == otherKey {
		t.Error("ストアが異なるのにキーが一致しています")
	}

	// URLなしは重複排除の対象外
	noURL := Deal{Store: "runningwarehouse"}
	if _, ok := noURL.DedupKey(); ok {
		t.Error("URLなしのDealがDedupKey=true")
	}
}

package normalize

import "testing"

func TestCleanListingName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "プロモ接頭辞の除去",
			in:   "Extra 20% off Nike Pegasus 40",
			want: "Nike Pegasus 40",
		},
		{
			name: "Clearance接頭辞",
			in:   "Clearance: Brooks Ghost 15",
			want: "Brooks Ghost 15",
		},
		{
			name: "接頭辞の多重適用",
			in:   "Sale! Extra 15% off Saucony Ride 16",
			want: "Saucony Ride 16",
		},
		{
			name: "Final Sale",
			in:   "Final Sale - Altra Torin 7",
			want: "Altra Torin 7",
		},
		{
			name: "空白の畳み込み",
			in:   "  Hoka   Clifton\t9  ",
			want: "Hoka Clifton 9",
		},
		{
			// 文中の"sale"は販促接頭辞ではないため保存する
			name: "接頭辞以外は変更しない",
			in:   "Nike Pegasus 40 (on sale)",
			want: "Nike Pegasus 40 (on sale)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanListingName(tt.in); got != tt.want {
				t.Errorf("CleanListingName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

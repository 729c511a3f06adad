package normalize

import (
	"testing"

	"github.com/hitoshi/dealman/internal/model"
)

func TestInferShoeType(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		defaultType model.ShoeType
		want        model.ShoeType
	}{
		{
			name: "trailキーワード",
			text: "Salomon Trail Running Shoe",
			want: model.ShoeTypeTrail,
		},
		{
			name: "トレイルのモデル名レキシコン",
			text: "Hoka Speedgoat 5",
			want: model.ShoeTypeTrail,
		},
		{
			name: "トラックスパイク",
			text: "Nike Dragonfly 2",
			want: model.ShoeTypeTrack,
		},
		{
			name: "roadキーワード",
			text: "Adidas Adizero Racing Shoe",
			want: model.ShoeTypeRoad,
		},
		{
			name:        "キーワードなしはソース既定値",
			text:        "Brooks Ghost 15",
			defaultType: model.ShoeTypeRoad,
			want:        model.ShoeTypeRoad,
		},
		{
			name: "キーワードも既定値もない場合はunknown",
			text: "Brooks Ghost 15",
			want: model.ShoeTypeUnknown,
		},
		{
			// トレイルの明示キーワードはソース既定値より強い
			name:        "キーワードは既定値を上書き",
			text:        "Saucony Peregrine 13",
			defaultType: model.ShoeTypeRoad,
			want:        model.ShoeTypeTrail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferShoeType(tt.text, tt.defaultType); got != tt.want {
				t.Errorf("InferShoeType(%q, %q) = %q, want %q", tt.text, tt.defaultType, got, tt.want)
			}
		})
	}
}

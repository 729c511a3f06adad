package normalize

import (
	"regexp"

	"github.com/hitoshi/dealman/internal/model"
)

// シューズ種別推論のキーワードとモデル名レキシコン。
// トレイル/トラックを優先的に判定し、ロードはキーワードの積極一致が
// ある場合のみ採用する。判定できない場合はソース既定値に委ねる。
var (
	trailRe = regexp.MustCompile(`(?i)\b(?:trail|speedgoat|peregrine|cascadia|caldera|challenger atr|hierro|terrex|wildhorse|ultraventure|lone peak|sense ride|mafate)\b`)
	trackRe = regexp.MustCompile(`(?i)\b(?:track|spikes?|xc|dragonfly|maxfly|ja fly|md distance)\b`)
	roadRe  = regexp.MustCompile(`(?i)\b(?:road|racer|racing|marathon|tempo)\b`)
)

// InferShoeType はリスティングテキストからシューズ種別を推論する。
// トレイル・トラックのレキシコンが優先され、次にロードの積極キーワードを
// 確認する。どれにも一致しない場合はdefaultTypeを返す（推測はしない）。
func InferShoeType(text string, defaultType model.ShoeType) model.ShoeType {
	switch {
	case trailRe.MatchString(text):
		return model.ShoeTypeTrail
	case trackRe.MatchString(text):
		return model.ShoeTypeTrack
	case roadRe.MatchString(text):
		return model.ShoeTypeRoad
	}
	if defaultType == "" {
		return model.ShoeTypeUnknown
	}
	return defaultType
}

package normalize

import (
	"regexp"

	"github.com/hitoshi/dealman/internal/model"
)

// 性別推論のキーワードパターン。URLパスとリスティングテキストの双方に適用する。
// "womens" は "mens" を部分文字列として含むため、必ずウィメンズを先に判定する。
var (
	womensRe = regexp.MustCompile(`(?i)(?:\bwomen'?s?\b|\bwomens\b|\bfemale\b|\bladies\b|/womens?(?:[-/]|$))`)
	mensRe   = regexp.MustCompile(`(?i)(?:\bmen'?s?\b|\bmens\b|\bmale\b|/mens?(?:[-/]|$))`)
	unisexRe = regexp.MustCompile(`(?i)\bunisex\b`)
)

// InferGender はURLパスとリスティングテキストから対象性別を推論する。
// どのキーワードにも一致しない場合はGenderUnknownを返す。
func InferGender(listingURL, text string) model.Gender {
	combined := listingURL + " " + text
	switch {
	case unisexRe.MatchString(combined):
		return model.GenderUnisex
	case womensRe.MatchString(combined):
		return model.GenderWomens
	case mensRe.MatchString(combined):
		return model.GenderMens
	default:
		return model.GenderUnknown
	}
}

package normalize

import "regexp"

// excludedCategoryRe はシューズ以外（アパレル・アクセサリ・キッズ）の
// リスティングにマッチする除外レキシコン。ここに一致したレコードは
// カタログに入れずcategory_excludedとして拒否する。
var excludedCategoryRe = regexp.MustCompile(`(?i)\b(?:socks?|apparel|shirt|tee|tank|shorts|tights?|pants|jacket|hoodie|hats?|caps?|beanie|gloves?|visor|insoles?|inserts?|bags?|backpack|pack|vest|bra|belt|laces|gaiters?|bottles?|hydration|nutrition|gels?|watch|sunglasses|headband|kids?|kid's|youth|junior|toddler|infant|sandals?|slides?)\b`)

// MatchExcludedCategory はリスティングテキストが除外カテゴリに一致する場合、
// 一致した語を返す。一致しない場合は空文字列を返す。
func MatchExcludedCategory(text string) string {
	return excludedCategoryRe.FindString(text)
}

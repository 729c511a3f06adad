package normalize

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// UnknownBrand はブランドレキシコンに一致しなかった場合のブランド名。
const UnknownBrand = "Unknown"

// knownBrands はランニングシューズの既知ブランドレキシコン。
// 初期化時に長い順へ並び替えて部分一致の曖昧さを避ける
// （"New Balance" を "Balance" より先に試す）。
var knownBrands = []string{
	"Nike",
	"Adidas",
	"New Balance",
	"Brooks",
	"Asics",
	"Saucony",
	"Hoka One One",
	"Hoka",
	"On",
	"Altra",
	"Mizuno",
	"Salomon",
	"La Sportiva",
	"Topo Athletic",
	"Under Armour",
	"Puma",
	"Reebok",
	"Karhu",
	"Diadora",
	"Newton",
	"Skechers",
	"Inov-8",
	"Scarpa",
	"Merrell",
	"The North Face",
	"Craft",
	"Tracksmith",
	"NNormal",
	"361 Degrees",
}

// genderTokenRe はモデル名導出時に取り除く性別トークンにマッチする。
var genderTokenRe = regexp.MustCompile(`(?i)\b(?:men's|mens|men|women's|womens|women|unisex|ladies|male|female)\b`)

var (
	brandPatternsOnce sync.Once
	brandPatterns     []brandPattern
)

type brandPattern struct {
	name string
	re   *regexp.Regexp
}

// initBrandPatterns はブランドごとの語境界つきパターンを構築する。
// 長いブランド名を先に試すため、名前の長さ降順に並べる。
func initBrandPatterns() {
	sorted := make([]string, len(knownBrands))
	copy(sorted, knownBrands)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	brandPatterns = make([]brandPattern, 0, len(sorted))
	for _, b := range sorted {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(b) + `\b`)
		brandPatterns = append(brandPatterns, brandPattern{name: b, re: re})
	}
}

// SplitBrandModel はリスティング名をブランドとモデルに分割する。
// ブランドは既知レキシコンとの語境界つき一致で判定し、一致した
// ブランドと性別トークンを取り除いた残りをモデル名とする。
// どのブランドにも一致しない場合はブランド"Unknown"、モデルは
// 性別トークンのみを除去したテキストになる。
func SplitBrandModel(name string) (brand, model string) {
	brandPatternsOnce.Do(initBrandPatterns)

	brand = UnknownBrand
	rest := name
	for _, p := range brandPatterns {
		if p.re.MatchString(rest) {
			brand = p.name
			rest = p.re.ReplaceAllString(rest, " ")
			break
		}
	}

	rest = genderTokenRe.ReplaceAllString(rest, " ")
	rest = whitespaceRe.ReplaceAllString(rest, " ")
	rest = strings.Trim(rest, " -–|,/")
	return brand, rest
}

package normalize

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// dollarAmountRe は価格表示テキスト中のドル金額にマッチする。
// "$165.00"、"$1,299.99"、"$89" のいずれの形式も対象。
var dollarAmountRe = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// bareAmountRe はcents補助要素中のドル記号なし金額にマッチする。
// 上付き表示のセント部が "99" や ".99" として別要素に分かれるソース向け。
var bareAmountRe = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// percentOffRe はテキスト中の "40% off" 等の割引率告知にマッチする。
var percentOffRe = regexp.MustCompile(`([0-9]{1,2})\s*%\s*(?:off)?`)

// ExtractPricePair は自由テキストからセール価格と元価格のペアを抽出する。
// ドル金額をすべて収集して重複を除去し、件数に応じた決定表を適用する:
//
//	0〜1件: ペアを確立できないため拒否（missing_price）
//	2件:   高い方が元価格、低い方がセール価格
//	3件:   最大値を元価格とし、残り2つから「値引き額」または告知された
//	       割引率に一致する方を特定してセール価格を決める。どちらの
//	       ヒューリスティックも解決しない場合は残り2つの大きい方を採用する。
//	4件〜: 曖昧なため拒否（ambiguous_price）
//
// 割引率の5〜90%検証は呼び出し元（applyPricePair）が行う。
func ExtractPricePair(priceText string, centsTexts []string) (sale, original float64, rej *Rejection) {
	amounts := extractAmounts(priceText, dollarAmountRe)
	for _, cents := range centsTexts {
		amounts = append(amounts, extractAmounts(cents, bareAmountRe)...)
	}
	amounts = dedupeAmounts(amounts)

	switch len(amounts) {
	case 0, 1:
		return 0, 0, &Rejection{Reason: ReasonMissingPrice, Detail: "fewer than 2 distinct prices in text"}
	case 2:
		return amounts[0], amounts[1], nil
	case 3:
		sale := resolveThreePrices(amounts, priceText)
		return sale, amounts[2], nil
	default:
		return 0, 0, &Rejection{Reason: ReasonAmbiguousPrice, Detail: "more than 3 distinct prices in text"}
	}
}

// resolveThreePrices は昇順3価格からセール価格を特定する。
// 最大値（amounts[2]）は元価格として確定しているものとする。
func resolveThreePrices(amounts []float64, priceText string) float64 {
	low, mid, max := amounts[0], amounts[1], amounts[2]

	// ヒューリスティック1: 残り2つのどちらかが「値引き額」
	// （元価格 - もう一方）に一致するなら、それはセール価格ではない。
	if approxEqual(max-low, mid) {
		return low
	}
	if approxEqual(max-mid, low) {
		return mid
	}

	// ヒューリスティック2: テキストに "N% off" の告知があり、
	// どちらか一方だけがその割引率を再現するならそちらを採用する。
	if m := percentOffRe.FindStringSubmatch(priceText); m != nil {
		announced, _ := strconv.Atoi(m[1])
		lowMatches := DiscountPercent(low, max) == announced
		midMatches := DiscountPercent(mid, max) == announced
		if lowMatches != midMatches {
			if lowMatches {
				return low
			}
			return mid
		}
	}

	// フォールバック: 残り2つの大きい方。元実装の挙動を踏襲している。
	return mid
}

// extractAmounts はテキストからパターンに一致する金額を抽出する。
func extractAmounts(text string, re *regexp.Regexp) []float64 {
	var amounts []float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		cleaned := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || v <= 0 {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}

// dedupeAmounts は金額の重複を除去して昇順で返す。
func dedupeAmounts(amounts []float64) []float64 {
	seen := make(map[float64]bool, len(amounts))
	var out []float64
	for _, v := range amounts {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// approxEqual は浮動小数の丸め誤差を許容した等価判定。1セント未満の差は同値とみなす。
func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

package normalize

import (
	"regexp"
	"strings"
)

// promoPrefixRe はリスティング名先頭のプロモ文言にマッチする。
// "Extra 20% off Nike Pegasus" → "Nike Pegasus" のように、
// ブランド/モデルの意味を変えずに販促接頭辞のみを取り除く。
var promoPrefixRe = regexp.MustCompile(`(?i)^(?:(?:extra|additional)\s+[0-9]{1,2}%\s+off|sale|clearance|final\s+sale|deal\s+of\s+the\s+day)[:!\s-]*`)

// whitespaceRe は連続する空白文字にマッチする。
var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanListingName はリスティング名の余分な空白を畳み込み、
// 先頭のプロモ接頭辞を除去する。除去は意味を保存する範囲に限る。
func CleanListingName(name string) string {
	name = whitespaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	for {
		stripped := promoPrefixRe.ReplaceAllString(name, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == name {
			return name
		}
		name = stripped
	}
}

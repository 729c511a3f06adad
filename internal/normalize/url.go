package normalize

import (
	"net/url"
	"strings"
)

// AbsolutizeURL は生のURLをソースのベースURLに対して絶対化する。
// プロトコル相対（//host/path）とルート相対（/path）の両方を解決する。
// 解決できない、またはhttp/https以外のスキームになる場合は空文字列を返す。
func AbsolutizeURL(baseURL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if !u.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil || !base.IsAbs() {
			return ""
		}
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}

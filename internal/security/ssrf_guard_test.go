package security

import (
	"strings"
	"testing"
)

func TestValidateURL_Allowed(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []string{
		"https://www.runningwarehouse.com/catpage-SALEMS.html",
		"http://example.com/deals.json",
		"https://8.8.8.8/feed.rss",
	}
	for _, rawURL := range tests {
		if err := guard.ValidateURL(rawURL); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", rawURL, err)
		}
	}
}

func TestValidateURL_Blocked(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		rawURL  string
		wantMsg string
	}{
		{name: "空URL", rawURL: "", wantMsg: "empty URL"},
		{name: "ftpスキーム", rawURL: "ftp://example.com/file", wantMsg: "disallowed scheme"},
		{name: "fileスキーム", rawURL: "file:///etc/passwd", wantMsg: "disallowed scheme"},
		{name: "ホストなし", rawURL: "https:///path", wantMsg: "empty host"},
		{name: "ループバックIP", rawURL: "http://127.0.0.1/admin", wantMsg: "blocked IP"},
		{name: "プライベートIP 10系", rawURL: "http://10.0.0.5/internal", wantMsg: "blocked IP"},
		{name: "プライベートIP 172系", rawURL: "http://172.16.0.1/", wantMsg: "blocked IP"},
		{name: "プライベートIP 192系", rawURL: "http://192.168.1.1/", wantMsg: "blocked IP"},
		{name: "クラウドメタデータIP", rawURL: "http://169.254.169.254/latest/meta-data/", wantMsg: "blocked IP"},
		{name: "IPv6ループバック", rawURL: "http://[::1]/", wantMsg: "blocked IP"},
		{name: "localhost", rawURL: "http://localhost:8080/", wantMsg: "blocked host"},
		{name: "localhost大文字", rawURL: "http://LOCALHOST/", wantMsg: "blocked host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.rawURL)
			if err == nil {
				t.Fatalf("ValidateURL(%q) = nil, want error", tt.rawURL)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want %q を含む", err, tt.wantMsg)
			}
		})
	}
}

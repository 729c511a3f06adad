package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/dealman/internal/security"
)

const (
	// defaultTimeout は1リクエストあたりのタイムアウト。
	defaultTimeout = 30 * time.Second
	// defaultMaxBodySize はレスポンスボディの最大読み取りサイズ。
	defaultMaxBodySize = 5 * 1024 * 1024
	// defaultRequestDelay は同一ドメインへの連続リクエストの最低間隔。
	// ページネーションを速く叩きすぎるとBANされるリテーラーがあるため、
	// ドメイン単位でこの間隔を空ける。
	defaultRequestDelay = 4 * time.Second
	// DefaultMaxPages は1ソースあたりのページ取得上限。
	// ページネーションが壊れたソースに対しても終了を保証する。
	DefaultMaxPages = 10
)

// userAgent はスクレイプリクエストのUser-Agentヘッダ。
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Fetcher はソース共通のHTTPフェッチ機能を提供する。
// SSRF防止付きクライアント、ドメイン単位のレート制御、
// ボディサイズ制限を一括して適用する。並行利用可能。
type Fetcher struct {
	client      *http.Client
	guard       security.SSRFGuardService
	logger      *slog.Logger
	maxBodySize int64
	delay       time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // ドメイン -> リミッター
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// timeoutが0の場合は30秒、maxBodySizeが0の場合は5MiBを使用する。
func NewFetcher(guard security.SSRFGuardService, logger *slog.Logger, timeout time.Duration, maxBodySize int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &Fetcher{
		client:      guard.NewSafeClient(timeout, maxBodySize),
		guard:       guard,
		logger:      logger,
		maxBodySize: maxBodySize,
		delay:       defaultRequestDelay,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Get は指定URLをフェッチしてボディを返す。
// SSRF検証、同一ドメインのレート待機、ステータス検証を行う。
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.guard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	if err := f.waitForDomain(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTPステータス %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	f.logger.Debug("フェッチ完了",
		slog.String("url", rawURL),
		slog.Int("bytes", len(body)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return body, nil
}

// waitForDomain は同一ドメインへの連続リクエスト間隔を空ける。
// ドメインごとにrate.Limiterを保持し、初回は待機なしで通す。
func (f *Fetcher) waitForDomain(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URLのパースに失敗: %w", err)
	}

	f.mu.Lock()
	limiter, ok := f.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(f.delay), 1)
		f.limiters[u.Host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}

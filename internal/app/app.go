package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/dealman/internal/alert"
	"github.com/hitoshi/dealman/internal/blob"
	"github.com/hitoshi/dealman/internal/catalog"
	"github.com/hitoshi/dealman/internal/config"
	"github.com/hitoshi/dealman/internal/database"
	"github.com/hitoshi/dealman/internal/handler"
	"github.com/hitoshi/dealman/internal/logger"
	"github.com/hitoshi/dealman/internal/merge"
	"github.com/hitoshi/dealman/internal/metrics"
	"github.com/hitoshi/dealman/internal/middleware"
	"github.com/hitoshi/dealman/internal/normalize"
	"github.com/hitoshi/dealman/internal/notify"
	"github.com/hitoshi/dealman/internal/security"
	"github.com/hitoshi/dealman/internal/source"
	"github.com/hitoshi/dealman/internal/token"
	"github.com/hitoshi/dealman/internal/worker/pipeline"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandPurge:
		return runPurge(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. ストアの初期化
	blobs := blob.NewPostgresStore(db)
	alertStore := alert.NewStore(blobs, slog.Default())
	alertService := alert.NewService(alertStore, slog.Default(), cfg.MaxAlertsPerEmail)
	catalogStore := catalog.NewStore(blobs)

	// 3. 署名トークンの初期化
	signer := token.NewSigner([]byte(cfg.TokenSecret))

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレートはreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AlertRegRate = rate.Limit(float64(cfg.RateLimitAlertReg) / 60.0)
	rateLimiterCfg.AlertRegBurst = cfg.RateLimitAlertReg
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AlertService:  alertService,
		TokenVerifier: signer,

		CatalogLoader: catalogStore,

		MetricsHandler: metrics.Handler(prometheus.DefaultGatherer),
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.NewLoggingMiddleware(slog.Default())(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はパイプラインワーカーモードで起動する。
// DB接続を開き、セール集約パイプラインのスケジューラを起動する。
// メトリクスとヘルスチェック用の軽量HTTPサーバーも同時に起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. ストアの初期化
	blobs := blob.NewPostgresStore(db)
	alertStore := alert.NewStore(blobs, slog.Default())
	alertService := alert.NewService(alertStore, slog.Default(), cfg.MaxAlertsPerEmail)
	catalogStore := catalog.NewStore(blobs)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewListingSanitizer()

	// 4. 正規化・マージエンジンの初期化
	normalizer := normalize.New(sanitizer)
	engine := merge.NewEngine(normalizer, slog.Default())

	// 5. ソースの初期化
	fetcher := source.NewFetcher(ssrfGuard, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize)
	registry := source.NewRegistry(source.DefaultSources(fetcher, slog.Default())...)

	slog.Info("sources registered",
		slog.Any("sources", registry.Names()),
	)

	// 6. 通知系の初期化
	signer := token.NewSigner([]byte(cfg.TokenSecret))
	renderer := notify.NewRenderer(signer, cfg.BaseURL)

	var mailer notify.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromEmail)
	} else {
		// APIキー未設定時は送信せずログのみ（ローカル開発とステージング用）
		slog.Warn("SENDGRID_API_KEY is not set; running mail delivery in dry-run mode")
		mailer = notify.NewLogMailer(slog.Default())
	}
	notifier := notify.NewNotifier(mailer, renderer, slog.Default())

	// 7. メトリクスの初期化
	registryProm := prometheus.NewRegistry()
	collector := metrics.NewCollector(registryProm)

	// 8. パイプラインの構築
	matcher := alert.NewMatcher(slog.Default())
	pipe := pipeline.New(
		registry, engine, catalogStore, alertService, matcher, notifier,
		collector, slog.Default(),
		pipeline.Config{
			EnabledSources: cfg.EnabledSources,
			MaxConcurrency: cfg.FetchMaxConcurrent,
		},
	)
	scheduler := pipeline.NewScheduler(pipe, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// メトリクスとヘルスチェック用の軽量HTTPサーバーをバックグラウンドで起動
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handler.Healthz)
	mux.Handle("/metrics", metrics.Handler(registryProm))
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: mux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker starting",
		slog.Duration("pipeline_interval", cfg.PipelineInterval),
		slog.Int("max_concurrent", cfg.FetchMaxConcurrent),
	)

	// パイプラインスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.PipelineInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runPurge はキャンセル済み・失効アラートを物理削除する管理コマンド。
// パイプラインは論理状態（キャンセル・失効）だけを見るため、
// 物理削除はこのコマンドを明示的に実行した場合にのみ起こる。
func runPurge(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	blobs := blob.NewPostgresStore(db)
	alertStore := alert.NewStore(blobs, slog.Default())
	alertService := alert.NewService(alertStore, slog.Default(), cfg.MaxAlertsPerEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := alertService.Purge(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	slog.Info("purge completed",
		slog.Int("removed", removed),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/dealman/internal/alert"
	"github.com/hitoshi/dealman/internal/blob"
	"github.com/hitoshi/dealman/internal/catalog"
	"github.com/hitoshi/dealman/internal/merge"
	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
	"github.com/hitoshi/dealman/internal/notify"
	"github.com/hitoshi/dealman/internal/source"
	"github.com/hitoshi/dealman/internal/token"
)

// stubSource は固定レコード（またはエラー・パニック）を返すテスト用ソース。
type stubSource struct {
	name    string
	records []model.RawRecord
	err     error
	panics  bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Context() normalize.SourceContext {
	return normalize.SourceContext{Store: s.name, BaseURL: "https://" + s.name + ".example.com"}
}

func (s *stubSource) Fetch(_ context.Context) ([]model.RawRecord, error) {
	if s.panics {
		panic("stub source panic")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// stubCollector はメトリクス呼び出しを記録するテスト用コレクタ。
type stubCollector struct {
	mu            sync.Mutex
	sourceSuccess map[string]int
	sourceFailure map[string]int
	dealsMerged   int
	sent          int
	failed        int
	durations     int
}

func newStubCollector() *stubCollector {
	return &stubCollector{
		sourceSuccess: make(map[string]int),
		sourceFailure: make(map[string]int),
	}
}

func (c *stubCollector) RecordSourceSuccess(store string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceSuccess[store]++
}

func (c *stubCollector) RecordSourceFailure(store string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceFailure[store]++
}

func (c *stubCollector) RecordRecordsAccepted(string, int) {}

func (c *stubCollector) RecordRecordsRejected(string, string, int) {}

func (c *stubCollector) RecordDealsMerged(count int) { c.dealsMerged = count }

func (c *stubCollector) RecordNotificationsSent(count int) { c.sent += count }

func (c *stubCollector) RecordNotificationFailures(count int) { c.failed += count }

func (c *stubCollector) RecordRunDuration(time.Duration) { c.durations++ }

// recordingMailer は送信先を記録するテスト用Mailer。
type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody, plainBody string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

type fixture struct {
	pipeline     *Pipeline
	alertService *alert.Service
	alertStore   *alert.Store
	catalogStore *catalog.Store
	collector    *stubCollector
	mailer       *recordingMailer
}

func newFixture(t *testing.T, sources ...source.Source) *fixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	blobs := blob.NewMemoryStore()

	alertStore := alert.NewStore(blobs, logger)
	alertService := alert.NewService(alertStore, logger, 0)
	catalogStore := catalog.NewStore(blobs)
	collector := newStubCollector()
	mailer := &recordingMailer{}
	renderer := notify.NewRenderer(token.NewSigner([]byte("test-secret")), "https://deals.example.com")

	p := New(
		source.NewRegistry(sources...),
		merge.NewEngine(normalize.New(nil), logger),
		catalogStore,
		alertService,
		alert.NewMatcher(logger),
		notify.NewNotifier(mailer, renderer, logger),
		collector,
		logger,
		Config{MaxConcurrency: 2},
	)
	return &fixture{
		pipeline:     p,
		alertService: alertService,
		alertStore:   alertStore,
		catalogStore: catalogStore,
		collector:    collector,
		mailer:       mailer,
	}
}

func rawGhost(sale float64) model.RawRecord {
	return model.RawRecord{
		ListingName:   "Brooks Ghost 15 Men's",
		SalePrice:     sale,
		OriginalPrice: 139.95,
		URL:           "https://example.com/ghost-15",
		ImageURL:      "https://cdn.example.com/ghost.jpg",
	}
}

func TestRunOnce_WritesCatalog(t *testing.T) {
	f := newFixture(t,
		&stubSource{name: "storea", records: []model.RawRecord{rawGhost(82.95)}},
		&stubSource{name: "storeb", records: []model.RawRecord{
			{
				ListingName:   "Hoka Clifton 9",
				SalePrice:     99,
				OriginalPrice: 144,
				URL:           "https://storeb.example.com/clifton-9",
				ImageURL:      "https://cdn.example.com/clifton.jpg",
			},
		}},
	)

	if err := f.pipeline.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	doc, err := f.catalogStore.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.TotalDeals != 2 {
		t.Errorf("totalDeals = %d, want 2", doc.TotalDeals)
	}
	if doc.DealsByStore["storea"] != 1 || doc.DealsByStore["storeb"] != 1 {
		t.Errorf("dealsByStore = %v", doc.DealsByStore)
	}
	if f.collector.dealsMerged != 2 {
		t.Errorf("dealsMerged = %d, want 2", f.collector.dealsMerged)
	}
}

func TestRunOnce_NotifiesAndMarks(t *testing.T) {
	f := newFixture(t,
		&stubSource{name: "storea", records: []model.RawRecord{rawGhost(82.95)}},
	)
	ctx := context.Background()

	a, err := f.alertService.Create(ctx, "runner@example.com", "Brooks", "Ghost", "", 90)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// 目標価格を下回らないアラートは通知されない
	if _, err := f.alertService.Create(ctx, "cheap@example.com", "Brooks", "Ghost", "", 50); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.pipeline.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(f.mailer.sent) != 1 || f.mailer.sent[0] != "runner@example.com" {
		t.Errorf("sent = %v, want [runner@example.com]", f.mailer.sent)
	}
	if f.collector.sent != 1 || f.collector.failed != 0 {
		t.Errorf("sent/failed = %d/%d, want 1/0", f.collector.sent, f.collector.failed)
	}

	// 配信済みアラートのlastNotifiedAtが記帳される
	doc, err := f.alertStore.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, stored := range doc.Alerts {
		if stored.ID == a.ID && stored.LastNotifiedAt == nil {
			t.Error("lastNotifiedAtが記帳されていません")
		}
		if stored.Email == "cheap@example.com" && stored.LastNotifiedAt != nil {
			t.Error("マッチしないアラートが記帳されています")
		}
	}
}

func TestRunOnce_SecondRunRespectsCooldown(t *testing.T) {
	f := newFixture(t,
		&stubSource{name: "storea", records: []model.RawRecord{rawGhost(82.95)}},
	)
	ctx := context.Background()

	if _, err := f.alertService.Create(ctx, "runner@example.com", "Brooks", "Ghost", "", 90); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.pipeline.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce(1): %v", err)
	}
	if err := f.pipeline.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce(2): %v", err)
	}

	if len(f.mailer.sent) != 1 {
		t.Errorf("sent = %v, want 1通のみ（クールダウン）", f.mailer.sent)
	}
}

func TestRunOnce_SourceFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t,
		&stubSource{name: "broken", err: errors.New("connection refused")},
		&stubSource{name: "panicky", panics: true},
		&stubSource{name: "healthy", records: []model.RawRecord{rawGhost(82.95)}},
	)

	if err := f.pipeline.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	doc, err := f.catalogStore.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.TotalDeals != 1 {
		t.Errorf("totalDeals = %d, want 1", doc.TotalDeals)
	}
	if f.collector.sourceFailure["broken"] != 1 {
		t.Errorf("brokenの失敗が記録されていません: %v", f.collector.sourceFailure)
	}
	if f.collector.sourceSuccess["healthy"] != 1 {
		t.Errorf("healthyの成功が記録されていません: %v", f.collector.sourceSuccess)
	}
}

func TestRunOnce_DeliveryFailureNotMarked(t *testing.T) {
	f := newFixture(t,
		&stubSource{name: "storea", records: []model.RawRecord{rawGhost(82.95)}},
	)
	f.mailer.err = errors.New("smtp: connection reset")
	ctx := context.Background()

	if _, err := f.alertService.Create(ctx, "runner@example.com", "Brooks", "Ghost", "", 90); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.pipeline.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if f.collector.sent != 0 || f.collector.failed != 1 {
		t.Errorf("sent/failed = %d/%d, want 0/1", f.collector.sent, f.collector.failed)
	}

	// 配信できなかったアラートは記帳されず、次回再試行される
	doc, _ := f.alertStore.Load(ctx)
	if doc.Alerts[0].LastNotifiedAt != nil {
		t.Error("配信失敗がlastNotifiedAtとして記帳されています")
	}
}

func TestRunOnce_EnabledSourcesScope(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	blobs := blob.NewMemoryStore()
	catalogStore := catalog.NewStore(blobs)
	collector := newStubCollector()
	mailer := &recordingMailer{}
	renderer := notify.NewRenderer(token.NewSigner([]byte("test-secret")), "https://deals.example.com")

	p := New(
		source.NewRegistry(
			&stubSource{name: "storea", records: []model.RawRecord{rawGhost(82.95)}},
			&stubSource{name: "storeb", records: []model.RawRecord{
				{
					ListingName:   "Hoka Clifton 9",
					SalePrice:     99,
					OriginalPrice: 144,
					URL:           "https://storeb.example.com/clifton-9",
					ImageURL:      "https://cdn.example.com/clifton.jpg",
				},
			}},
		),
		merge.NewEngine(normalize.New(nil), logger),
		catalogStore,
		alert.NewService(alert.NewStore(blobs, logger), logger, 0),
		alert.NewMatcher(logger),
		notify.NewNotifier(mailer, renderer, logger),
		collector,
		logger,
		Config{EnabledSources: map[string]bool{"storea": true}},
	)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	doc, err := catalogStore.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.TotalDeals != 1 || doc.DealsByStore["storeb"] != 0 {
		t.Errorf("有効化されていないソースが実行されています: %v", doc.DealsByStore)
	}
}

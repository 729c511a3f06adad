package alert

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/dealman/internal/model"
)

// DefaultMaxPerEmail は1メールアドレスあたりの有効アラート数の既定上限。
const DefaultMaxPerEmail = 5

// emailRe はメールアドレスの形式検証に使用する。厳密なRFC検証ではなく、
// 明らかな入力ミスを弾くことが目的。
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service はアラートのライフサイクル（作成・キャンセル・価格更新・削除）を
// 管理する。ストアへの書き込みはすべてドキュメント全体の置き換えであり、
// 並行呼び出しはサポートしない（単一ライター前提）。
type Service struct {
	store       *Store
	logger      *slog.Logger
	maxPerEmail int
}

// NewService はServiceの新しいインスタンスを生成する。
// maxPerEmailが0以下の場合はDefaultMaxPerEmailを使用する。
func NewService(store *Store, logger *slog.Logger, maxPerEmail int) *Service {
	if maxPerEmail <= 0 {
		maxPerEmail = DefaultMaxPerEmail
	}
	return &Service{store: store, logger: logger, maxPerEmail: maxPerEmail}
}

// Create は新しいアラートを作成する。
// メールアドレスは小文字に正規化される。1メールアドレスあたりの
// 有効アラート数が上限に達している場合はALERT_LIMITエラーを返す。
func (s *Service) Create(ctx context.Context, email, brand, shoeModel string, gender model.Gender, targetPrice int) (*model.Alert, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return nil, model.NewInvalidEmailError(email)
	}
	if targetPrice <= 0 {
		return nil, model.NewInvalidPriceError(targetPrice)
	}
	if gender != "" && gender != model.GenderMens && gender != model.GenderWomens && gender != model.GenderUnisex {
		return nil, model.NewInvalidGenderError(string(gender))
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	active := 0
	for i := range doc.Alerts {
		if doc.Alerts[i].Email == email && doc.Alerts[i].IsActive(now) {
			active++
		}
	}
	if active >= s.maxPerEmail {
		return nil, model.NewAlertLimitError(s.maxPerEmail)
	}

	a := model.Alert{
		ID:          uuid.New().String(),
		Email:       email,
		Brand:       strings.TrimSpace(brand),
		Model:       strings.TrimSpace(shoeModel),
		Gender:      gender,
		TargetPrice: targetPrice,
		SetAt:       now,
	}
	doc.Alerts = append(doc.Alerts, a)

	if err := s.store.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("アラートを作成しました",
		slog.String("alert_id", a.ID),
		slog.String("brand", a.Brand),
		slog.Int("target_price", a.TargetPrice),
	)
	return &a, nil
}

// CancelByEmail は指定メールアドレスの有効アラートをすべてキャンセルする。
// 署名付き管理リンク経由の操作で、リンクのトークンはメールアドレスのみを
// 含むため、アラート単位ではなくアドレス単位で取り消す。
// キャンセルした件数を返す。
func (s *Service) CancelByEmail(ctx context.Context, email string) (int, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	doc, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	cancelled := 0
	for i := range doc.Alerts {
		a := &doc.Alerts[i]
		if a.Email == email && a.CancelledAt == nil {
			t := now
			a.CancelledAt = &t
			cancelled++
		}
	}
	if cancelled == 0 {
		return 0, nil
	}

	if err := s.store.Save(ctx, doc); err != nil {
		return 0, err
	}

	s.logger.Info("アラートをキャンセルしました",
		slog.Int("cancelled", cancelled),
	)
	return cancelled, nil
}

// UpdateTargetPrice は有効なアラートの目標価格を更新する。
// 更新はsetAtをリセットし（有効期間の再スタート）、lastNotifiedAtを
// クリアして次回実行から新しい条件で通知できるようにする。
func (s *Service) UpdateTargetPrice(ctx context.Context, id string, targetPrice int) (*model.Alert, error) {
	if targetPrice <= 0 {
		return nil, model.NewInvalidPriceError(targetPrice)
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range doc.Alerts {
		a := &doc.Alerts[i]
		if a.ID != id {
			continue
		}
		if !a.IsActive(now) {
			return nil, model.NewAlertNotFoundError(id)
		}
		a.TargetPrice = targetPrice
		a.SetAt = now
		a.LastNotifiedAt = nil

		if err := s.store.Save(ctx, doc); err != nil {
			return nil, err
		}
		updated := *a
		return &updated, nil
	}
	return nil, model.NewAlertNotFoundError(id)
}

// MarkNotified は通知済みアラートのlastNotifiedAtを一括で記帳する。
// 1回のパイプライン実行分をまとめて1回の置き換え書き込みで永続化し、
// 並行部分書き込みによる更新消失を避ける。
func (s *Service) MarkNotified(ctx context.Context, ids []string, notifiedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	for i := range doc.Alerts {
		if idSet[doc.Alerts[i].ID] {
			t := notifiedAt
			doc.Alerts[i].LastNotifiedAt = &t
		}
	}

	return s.store.Save(ctx, doc)
}

// Purge はキャンセル済みまたは失効したアラートを物理削除する。
// 削除した件数を返す。
func (s *Service) Purge(ctx context.Context, now time.Time) (int, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	kept := doc.Alerts[:0]
	removed := 0
	for _, a := range doc.Alerts {
		if a.IsActive(now) {
			kept = append(kept, a)
		} else {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	doc.Alerts = kept

	if err := s.store.Save(ctx, doc); err != nil {
		return 0, err
	}

	s.logger.Info("失効アラートを削除しました",
		slog.Int("removed", removed),
	)
	return removed, nil
}

// ListActive は有効なアラートの一覧を返す。
func (s *Service) ListActive(ctx context.Context, now time.Time) ([]model.Alert, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	var active []model.Alert
	for _, a := range doc.Alerts {
		if a.IsActive(now) {
			active = append(active, a)
		}
	}
	return active, nil
}

package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/dealman/internal/blob"
	"github.com/hitoshi/dealman/internal/model"
)

// DocumentKey はアラートドキュメントのブロブキー。
const DocumentKey = "alerts.json"

// Document はアラートドキュメントのワイヤ形式。
// 全アラートを1つのJSONドキュメントとして置き換え保存する。
type Document struct {
	Alerts      []model.Alert `json:"alerts"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// Store はアラートドキュメントのブロブストア上の読み書きを提供する。
// ドキュメント全体の置き換え保存のため、1回の実行につき単一の
// ライターがread-modify-writeサイクルを所有しなければならない。
type Store struct {
	blobs  blob.Store
	logger *slog.Logger
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(blobs blob.Store, logger *slog.Logger) *Store {
	return &Store{blobs: blobs, logger: logger}
}

// Load はアラートドキュメントを読み込む。
// ドキュメントが存在しない、またはパースできない場合は空のドキュメントを
// 返し、パイプラインを部分書き込みから自己回復させる。
func (s *Store) Load(ctx context.Context) (*Document, error) {
	content, err := s.blobs.Get(ctx, DocumentKey)
	if err == blob.ErrNotFound {
		return &Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アラートドキュメントの読み込みに失敗: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		s.logger.Warn("アラートドキュメントのパースに失敗したため空として扱います",
			slog.String("error", err.Error()),
		)
		return &Document{}, nil
	}
	return &doc, nil
}

// Save はアラートドキュメント全体を置き換え保存する。
func (s *Store) Save(ctx context.Context, doc *Document) error {
	doc.LastUpdated = time.Now().UTC()
	if doc.Alerts == nil {
		doc.Alerts = []model.Alert{}
	}
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("アラートドキュメントのエンコードに失敗: %w", err)
	}
	if err := s.blobs.Put(ctx, DocumentKey, content); err != nil {
		return fmt.Errorf("アラートドキュメントの保存に失敗: %w", err)
	}
	return nil
}

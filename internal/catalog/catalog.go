// Package catalog はマージ済みDealカタログの永続化を提供する。
// カタログはブロブストア上の単一JSONドキュメントであり、
// パイプライン実行ごとに全体が置き換えられる。
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/dealman/internal/blob"
	"github.com/hitoshi/dealman/internal/model"
)

// DocumentKey はカタログドキュメントのブロブキー。
const DocumentKey = "deals.json"

// Document はカタログドキュメントのワイヤ形式。
// フィールド名は読み取り側コンシューマとの契約。
type Document struct {
	LastUpdated  time.Time      `json:"lastUpdated"`
	TotalDeals   int            `json:"totalDeals"`
	DealsByStore map[string]int `json:"dealsByStore"`
	Deals        []model.Deal   `json:"deals"`
}

// Store はカタログドキュメントのブロブストア上の読み書きを提供する。
type Store struct {
	blobs blob.Store
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Save はカタログドキュメント全体を置き換え保存する。
func (s *Store) Save(ctx context.Context, deals []model.Deal, dealsByStore map[string]int) error {
	if deals == nil {
		deals = []model.Deal{}
	}
	if dealsByStore == nil {
		dealsByStore = map[string]int{}
	}
	doc := Document{
		LastUpdated:  time.Now().UTC(),
		TotalDeals:   len(deals),
		DealsByStore: dealsByStore,
		Deals:        deals,
	}
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("カタログドキュメントのエンコードに失敗: %w", err)
	}
	if err := s.blobs.Put(ctx, DocumentKey, content); err != nil {
		return fmt.Errorf("カタログドキュメントの保存に失敗: %w", err)
	}
	return nil
}

// Load はカタログドキュメントを読み込む。
// ドキュメントが存在しない場合はCATALOG_NOT_FOUNDエラーを返す
// （パイプラインが一度も完走していない状態のみ致命的として扱う）。
// deals配列が欠けている場合は空として扱い、自己回復させる。
func (s *Store) Load(ctx context.Context) (*Document, error) {
	content, err := s.blobs.Get(ctx, DocumentKey)
	if err == blob.ErrNotFound {
		return nil, model.NewCatalogNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("カタログドキュメントの読み込みに失敗: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("カタログドキュメントのパースに失敗: %w", err)
	}
	if doc.Deals == nil {
		doc.Deals = []model.Deal{}
	}
	if doc.DealsByStore == nil {
		doc.DealsByStore = map[string]int{}
	}
	return &doc, nil
}

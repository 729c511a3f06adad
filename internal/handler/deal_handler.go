package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/dealman/internal/catalog"
)

// CatalogLoader はカタログドキュメントの読み込みインターフェース。
type CatalogLoader interface {
	// Load はカタログドキュメントを読み込む。
	Load(ctx context.Context) (*catalog.Document, error)
}

// DealHandler はセールカタログ閲覧のHTTPハンドラー。
type DealHandler struct {
	loader CatalogLoader
}

// NewDealHandler はDealHandlerを生成する。
func NewDealHandler(loader CatalogLoader) *DealHandler {
	return &DealHandler{loader: loader}
}

// ListDeals はマージ済みカタログ全体を返す。
// カタログが未生成の場合（パイプラインが一度も完走していない場合）は
// CATALOG_NOT_FOUNDを返す。
// GET /api/deals
func (h *DealHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	doc, err := h.loader.Load(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

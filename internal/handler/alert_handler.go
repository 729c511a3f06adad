package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/token"
)

// AlertServiceInterface はアラートハンドラーが必要とするサービスインターフェース。
type AlertServiceInterface interface {
	// Create は新しいアラートを作成する。
	Create(ctx context.Context, email, brand, shoeModel string, gender model.Gender, targetPrice int) (*model.Alert, error)
	// CancelByEmail は指定メールアドレスの有効アラートをすべてキャンセルする。
	CancelByEmail(ctx context.Context, email string) (int, error)
	// UpdateTargetPrice は有効なアラートの目標価格を更新する。
	UpdateTargetPrice(ctx context.Context, id string, targetPrice int) (*model.Alert, error)
}

// TokenVerifier は署名付きキャンセルリンクのトークン検証インターフェース。
type TokenVerifier interface {
	// Verify はトークンを検証し、有効であればメールアドレスを返す。
	Verify(tok string, now time.Time) (string, error)
}

// AlertHandler はアラート管理のHTTPハンドラー。
type AlertHandler struct {
	service  AlertServiceInterface
	verifier TokenVerifier
}

// NewAlertHandler はAlertHandlerを生成する。
func NewAlertHandler(service AlertServiceInterface, verifier TokenVerifier) *AlertHandler {
	return &AlertHandler{
		service:  service,
		verifier: verifier,
	}
}

// createAlertRequest はアラート作成リクエストのボディ。
type createAlertRequest struct {
	Email       string `json:"email"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Gender      string `json:"gender"`
	TargetPrice int    `json:"targetPrice"`
}

// updateAlertRequest は目標価格更新リクエストのボディ。
type updateAlertRequest struct {
	TargetPrice int `json:"targetPrice"`
}

// cancelResponse はキャンセル結果のAPIレスポンス。
type cancelResponse struct {
	Cancelled int    `json:"cancelled"`
	Message   string `json:"message"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateAlert はアラート登録を処理する。
// POST /api/alerts
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	a, err := h.service.Create(r.Context(), req.Email, req.Brand, req.Model, model.Gender(req.Gender), req.TargetPrice)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

// UpdateAlert は目標価格の更新を処理する。
// PUT /api/alerts/:id
func (h *AlertHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	a, err := h.service.UpdateTargetPrice(r.Context(), id, req.TargetPrice)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// CancelAlerts は署名付きリンク経由のキャンセルを処理する。
// トークンはメールアドレスのみを含むため、アドレスに紐づく有効アラートを
// すべてキャンセルする。
// GET /alerts/cancel?token=
func (h *AlertHandler) CancelAlerts(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTokenError())
		return
	}

	email, err := h.verifier.Verify(tok, time.Now().UTC())
	if err != nil {
		if errors.Is(err, token.ErrInvalid) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTokenError())
			return
		}
		handleServiceError(w, err)
		return
	}

	cancelled, err := h.service.CancelByEmail(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cancelResponse{
		Cancelled: cancelled,
		Message:   fmt.Sprintf("%d件のアラートをキャンセルしました。", cancelled),
	})
}

// --- ヘルパー関数 ---

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidEmail, model.ErrCodeInvalidPrice, model.ErrCodeInvalidGender, model.ErrCodeInvalidToken:
		return http.StatusBadRequest
	case model.ErrCodeAlertLimit:
		return http.StatusConflict
	case model.ErrCodeAlertNotFound:
		return http.StatusNotFound
	case model.ErrCodeCatalogNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

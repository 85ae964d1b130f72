// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kawase/torihiki/internal/deal"
	"github.com/kawase/torihiki/internal/middleware"
	"github.com/kawase/torihiki/internal/model"
)

// DealServiceInterface は案件ハンドラーが必要とするサービスインターフェース。
type DealServiceInterface interface {
	List(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error)
	Get(ctx context.Context, caller *model.User, id string) (*model.Deal, error)
	Create(ctx context.Context, caller *model.User, input deal.CreateInput) (*model.Deal, error)
	Update(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error)
	Delete(ctx context.Context, caller *model.User, id string) error
}

// CallerResolver は認証済みユーザーIDからユーザーを解決するインターフェース。
type CallerResolver interface {
	Resolve(ctx context.Context, id string) (*model.User, error)
}

// DealHandler は案件管理のHTTPハンドラー。
type DealHandler struct {
	service  DealServiceInterface
	resolver CallerResolver
}

// NewDealHandler はDealHandlerを生成する。
func NewDealHandler(service DealServiceInterface, resolver CallerResolver) *DealHandler {
	return &DealHandler{
		service:  service,
		resolver: resolver,
	}
}

// createDealRequest は案件作成リクエストのボディ。
// scoreとrankはサーバー側で導出するため受け取らない。
type createDealRequest struct {
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	ClientName    string     `json:"clientName"`
	Stage         string     `json:"stage"`
	AmountYen     int64      `json:"amountYen"`
	NextAction    string     `json:"nextAction"`
	NextActionDue *time.Time `json:"nextActionDue"`
	AssignedToID  string     `json:"assignedToId"`
}

// updateDealRequest は案件の部分更新リクエストのボディ。
// nilのフィールドは変更しない。種別（type）は変更できない。
// nextActionDueはnull指定（期日のクリア）とキー省略（変更なし）を区別するため
// RawMessageで受け取る。
type updateDealRequest struct {
	Title         *string         `json:"title"`
	ClientName    *string         `json:"clientName"`
	Stage         *string         `json:"stage"`
	AmountYen     *int64          `json:"amountYen"`
	NextAction    *string         `json:"nextAction"`
	NextActionDue json.RawMessage `json:"nextActionDue"`
	AssignedToID  *string         `json:"assignedToId"`
}

// dealResponse は案件情報のAPIレスポンス。
type dealResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	ClientName    string     `json:"clientName"`
	Stage         string     `json:"stage"`
	Score         int        `json:"score"`
	Rank          string     `json:"rank"`
	AmountYen     int64      `json:"amountYen"`
	NextAction    string     `json:"nextAction"`
	NextActionDue *time.Time `json:"nextActionDue"`
	AssignedToID  string     `json:"assignedToId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ListDeals は案件一覧を返す。
// GET /api/deals?type=&stage=&rank=&assignedTo=&search=
func (h *DealHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := deal.ListFilter{
		Type:         model.DealType(q.Get("type")),
		Stage:        model.DealStage(q.Get("stage")),
		Rank:         model.Rank(q.Get("rank")),
		AssignedToID: q.Get("assignedTo"),
		Search:       q.Get("search"),
	}

	// 列挙型フィルタはDBのenumキャストに到達する前にここで弾く
	if violations := validateListFilter(filter); len(violations) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(violations))
		return
	}

	deals, err := h.service.List(r.Context(), caller, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]dealResponse, 0, len(deals))
	for _, d := range deals {
		responses = append(responses, toDealResponse(d))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetDeal は案件詳細を返す。
// GET /api/deals/{id}
func (h *DealHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	dealID := chi.URLParam(r, "id")

	d, err := h.service.Get(r.Context(), caller, dealID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDealResponse(d))
}

// CreateDeal は案件を作成する。
// POST /api/deals
func (h *DealHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req createDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	d, err := h.service.Create(r.Context(), caller, deal.CreateInput{
		Type:          model.DealType(req.Type),
		Title:         req.Title,
		ClientName:    req.ClientName,
		Stage:         model.DealStage(req.Stage),
		AmountYen:     req.AmountYen,
		NextAction:    req.NextAction,
		NextActionDue: req.NextActionDue,
		AssignedToID:  req.AssignedToID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDealResponse(d))
}

// UpdateDeal は案件を部分更新する。
// PUT /api/deals/{id}
func (h *DealHandler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	dealID := chi.URLParam(r, "id")

	var req updateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	input := deal.UpdateInput{
		Title:        req.Title,
		ClientName:   req.ClientName,
		AmountYen:    req.AmountYen,
		NextAction:   req.NextAction,
		AssignedToID: req.AssignedToID,
	}
	if req.Stage != nil {
		stage := model.DealStage(*req.Stage)
		input.Stage = &stage
	}
	if len(req.NextActionDue) > 0 {
		if string(req.NextActionDue) == "null" {
			// 明示的なnullは期日のクリア
			var cleared *time.Time
			input.NextActionDue = &cleared
		} else {
			var due time.Time
			if err := json.Unmarshal(req.NextActionDue, &due); err != nil {
				writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
				return
			}
			duePtr := &due
			input.NextActionDue = &duePtr
		}
	}

	d, err := h.service.Update(r.Context(), caller, dealID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDealResponse(d))
}

// DeleteDeal は案件を削除する。
// DELETE /api/deals/{id}
func (h *DealHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	dealID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), caller, dealID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireCaller はリクエストコンテキストの認証済みユーザーIDから
// 呼び出し元ユーザーを解決する。失敗時はエラーレスポンスを書き込みfalseを返す。
func (h *DealHandler) requireCaller(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	return resolveCaller(w, r, h.resolver)
}

// --- ヘルパー関数 ---

// toDealResponse はmodel.DealからAPIレスポンスに変換する。
func toDealResponse(d *model.Deal) dealResponse {
	return dealResponse{
		ID:            d.ID,
		Type:          string(d.Type),
		Title:         d.Title,
		ClientName:    d.ClientName,
		Stage:         string(d.Stage),
		Score:         d.Score,
		Rank:          string(d.Rank),
		AmountYen:     d.AmountYen,
		NextAction:    d.NextAction,
		NextActionDue: d.NextActionDue,
		AssignedToID:  d.AssignedToID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// validateListFilter は一覧取得の列挙型フィルタ値を検証し、失敗項目の一覧を返す。
// 空文字列は「絞り込みなし」を意味するため検証しない。
func validateListFilter(filter deal.ListFilter) []model.FieldViolation {
	var violations []model.FieldViolation

	if filter.Type != "" && !filter.Type.IsValid() {
		violations = append(violations, model.FieldViolation{
			Field:  "type",
			Reason: "RENTAL または SALES を指定してください",
		})
	}
	if filter.Stage != "" && !filter.Stage.IsValid() {
		violations = append(violations, model.FieldViolation{
			Field:  "stage",
			Reason: "定義済みのステージを指定してください",
		})
	}
	if filter.Rank != "" && !filter.Rank.IsValid() {
		violations = append(violations, model.FieldViolation{
			Field:  "rank",
			Reason: "A、B、C のいずれかを指定してください",
		})
	}

	return violations
}

// resolveCaller はコンテキストのユーザーIDから呼び出し元ユーザーを解決する共通処理。
func resolveCaller(w http.ResponseWriter, r *http.Request, resolver CallerResolver) (*model.User, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}

	caller, err := resolver.Resolve(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return caller, true
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
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
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeDealNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidDealType,
		model.ErrCodeInvalidRole, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

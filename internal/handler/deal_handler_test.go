package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kawase/torihiki/internal/deal"
	"github.com/kawase/torihiki/internal/middleware"
	"github.com/kawase/torihiki/internal/model"
	"github.com/kawase/torihiki/internal/repository"
)

// --- モック定義 ---

// mockDealService はDealServiceInterfaceのモック実装。
type mockDealService struct {
	listFn   func(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error)
	getFn    func(ctx context.Context, caller *model.User, id string) (*model.Deal, error)
	createFn func(ctx context.Context, caller *model.User, input deal.CreateInput) (*model.Deal, error)
	updateFn func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error)
	deleteFn func(ctx context.Context, caller *model.User, id string) error
}

func (m *mockDealService) List(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error) {
	if m.listFn != nil {
		return m.listFn(ctx, caller, filter)
	}
	return nil, nil
}

func (m *mockDealService) Get(ctx context.Context, caller *model.User, id string) (*model.Deal, error) {
	if m.getFn != nil {
		return m.getFn(ctx, caller, id)
	}
	return nil, nil
}

func (m *mockDealService) Create(ctx context.Context, caller *model.User, input deal.CreateInput) (*model.Deal, error) {
	if m.createFn != nil {
		return m.createFn(ctx, caller, input)
	}
	return nil, nil
}

func (m *mockDealService) Update(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, caller, id, input)
	}
	return nil, nil
}

func (m *mockDealService) Delete(ctx context.Context, caller *model.User, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, caller, id)
	}
	return nil
}

// recordingDealRepo は永続化された案件を記録するDealRepositoryの実装。
// モックサービスを介さず、実サービスを通したハンドラー境界のテストに使う。
type recordingDealRepo struct {
	created *model.Deal
}

func (r *recordingDealRepo) FindByID(ctx context.Context, id string) (*model.Deal, error) {
	return nil, nil
}
func (r *recordingDealRepo) List(ctx context.Context, filter repository.DealFilter) ([]*model.Deal, error) {
	return nil, nil
}
func (r *recordingDealRepo) Create(ctx context.Context, d *model.Deal) error {
	r.created = d
	return nil
}
func (r *recordingDealRepo) Update(ctx context.Context, d *model.Deal) error { return nil }
func (r *recordingDealRepo) Delete(ctx context.Context, id string) error     { return nil }

// mockResolver はCallerResolverのモック実装。
type mockResolver struct {
	resolveFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockResolver) Resolve(ctx context.Context, id string) (*model.User, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError()
}

// fixedResolver は常に指定ユーザーを返すCallerResolverを生成するヘルパー。
func fixedResolver(u *model.User) *mockResolver {
	return &mockResolver{
		resolveFn: func(ctx context.Context, id string) (*model.User, error) {
			return u, nil
		},
	}
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseErrorBody はレスポンスボディから統一エラーフォーマットをパースするヘルパー。
func parseErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func testAgent() *model.User {
	return &model.User{ID: "agent-1", Email: "agent@example.com", Role: model.RoleAgent}
}

// --- GET /api/deals テスト ---

// TestDealHandler_ListDeals_Success は一覧取得が案件の配列を返すことを検証する。
func TestDealHandler_ListDeals_Success(t *testing.T) {
	svc := &mockDealService{
		listFn: func(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error) {
			if caller.ID != "agent-1" {
				t.Errorf("caller.ID = %q, want %q", caller.ID, "agent-1")
			}
			return []*model.Deal{
				{ID: "deal-1", Type: model.DealTypeRental, Title: "中野レジデンス202", Stage: model.StageRentalApp, Score: 25, Rank: model.RankC},
				{ID: "deal-2", Type: model.DealTypeSales, Title: "杉並戸建て", Stage: model.StageSalesLOI, Score: 20, Rank: model.RankC},
			}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals", nil)
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.ListDeals(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []dealResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(deals) = %d, want 2", len(got))
	}
	if got[0].ID != "deal-1" || got[0].Score != 25 {
		t.Errorf("deals[0] = %+v, want ID=deal-1 Score=25", got[0])
	}
}

// TestDealHandler_ListDeals_PassesQueryFilters はクエリパラメータがフィルターに変換されることを検証する。
func TestDealHandler_ListDeals_PassesQueryFilters(t *testing.T) {
	var gotFilter deal.ListFilter
	svc := &mockDealService{
		listFn: func(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error) {
			gotFilter = filter
			return []*model.Deal{}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals?type=RENTAL&stage=R_APP&rank=B&assignedTo=agent-2&search=中野", nil)
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.ListDeals(w, req)

	if gotFilter.Type != model.DealTypeRental {
		t.Errorf("filter.Type = %q, want RENTAL", gotFilter.Type)
	}
	if gotFilter.Stage != model.StageRentalApp {
		t.Errorf("filter.Stage = %q, want R_APP", gotFilter.Stage)
	}
	if gotFilter.Rank != model.RankB {
		t.Errorf("filter.Rank = %q, want B", gotFilter.Rank)
	}
	if gotFilter.AssignedToID != "agent-2" {
		t.Errorf("filter.AssignedToID = %q, want agent-2", gotFilter.AssignedToID)
	}
	if gotFilter.Search != "中野" {
		t.Errorf("filter.Search = %q, want 中野", gotFilter.Search)
	}
}

// TestDealHandler_ListDeals_EmptyResult_ReturnsEmptyArray は結果0件でもnullではなく空配列を返すことを検証する。
func TestDealHandler_ListDeals_EmptyResult_ReturnsEmptyArray(t *testing.T) {
	svc := &mockDealService{
		listFn: func(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error) {
			return nil, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals", nil)
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.ListDeals(w, req)

	body := bytes.TrimSpace(w.Body.Bytes())
	if string(body) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

// TestDealHandler_ListDeals_NoSession_Returns401 は未認証リクエストが401を返すことを検証する。
func TestDealHandler_ListDeals_NoSession_Returns401(t *testing.T) {
	called := false
	svc := &mockDealService{
		listFn: func(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error) {
			called = true
			return nil, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals", nil)
	w := httptest.NewRecorder()

	h.ListDeals(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("service should not be called without session")
	}
	body := parseErrorBody(t, w)
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}

// TestDealHandler_ListDeals_InvalidEnumFilters_Returns400 は列挙型フィルタの
// 不正値がDBに到達せず400で弾かれることを検証する。
func TestDealHandler_ListDeals_InvalidEnumFilters_Returns400(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantField string
	}{
		{"不正なランク", "?rank=Z", "rank"},
		{"不正な種別", "?type=LEASE", "type"},
		{"不正なステージ", "?stage=R_UNKNOWN", "stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockDealService{
				listFn: func(ctx context.Context, caller *model.User, filter deal.ListFilter) ([]*model.Deal, error) {
					called = true
					return nil, nil
				},
			}

			h := NewDealHandler(svc, fixedResolver(testAgent()))

			req := httptest.NewRequest(http.MethodGet, "/api/deals"+tt.query, nil)
			req = withUserID(req, "agent-1")
			w := httptest.NewRecorder()

			h.ListDeals(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if called {
				t.Error("service should not be called with an invalid filter value")
			}

			body := parseErrorBody(t, w)
			if body.Code != model.ErrCodeValidationFailed {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidationFailed)
			}
			if len(body.Fields) != 1 || body.Fields[0].Field != tt.wantField {
				t.Errorf("fields = %+v, want single violation on %q", body.Fields, tt.wantField)
			}
		})
	}
}

// TestDealHandler_ListDeals_DeletedUser_Returns404 はセッションは有効だがユーザーが存在しない場合に404を返すことを検証する。
func TestDealHandler_ListDeals_DeletedUser_Returns404(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}

	h := NewDealHandler(&mockDealService{}, resolver)

	req := httptest.NewRequest(http.MethodGet, "/api/deals", nil)
	req = withUserID(req, "gone-user")
	w := httptest.NewRecorder()

	h.ListDeals(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	body := parseErrorBody(t, w)
	if body.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUserNotFound)
	}
}

// --- GET /api/deals/{id} テスト ---

// TestDealHandler_GetDeal_Success は案件詳細の取得を検証する。
func TestDealHandler_GetDeal_Success(t *testing.T) {
	svc := &mockDealService{
		getFn: func(ctx context.Context, caller *model.User, id string) (*model.Deal, error) {
			if id != "deal-1" {
				t.Errorf("id = %q, want deal-1", id)
			}
			return &model.Deal{
				ID:         "deal-1",
				Type:       model.DealTypeSales,
				Title:      "杉並戸建て",
				ClientName: "山田太郎",
				Stage:      model.StageSalesContract,
				Score:      80,
				Rank:       model.RankA,
				AmountYen:  48000000,
			}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals/deal-1", nil)
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.GetDeal(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got dealResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Rank != "A" || got.AmountYen != 48000000 {
		t.Errorf("response = %+v, want Rank=A AmountYen=48000000", got)
	}
}

// TestDealHandler_GetDeal_NotFound_Returns404 は存在しない案件IDで404を返すことを検証する。
func TestDealHandler_GetDeal_NotFound_Returns404(t *testing.T) {
	svc := &mockDealService{
		getFn: func(ctx context.Context, caller *model.User, id string) (*model.Deal, error) {
			return nil, model.NewDealNotFoundError(id)
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals/missing", nil)
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.GetDeal(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	body := parseErrorBody(t, w)
	if body.Code != model.ErrCodeDealNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeDealNotFound)
	}
}

// TestDealHandler_GetDeal_PermissionDenied_Returns403 は権限外の案件アクセスで403を返すことを検証する。
func TestDealHandler_GetDeal_PermissionDenied_Returns403(t *testing.T) {
	svc := &mockDealService{
		getFn: func(ctx context.Context, caller *model.User, id string) (*model.Deal, error) {
			return nil, model.NewPermissionDeniedError()
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals/deal-9", nil)
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-9")
	w := httptest.NewRecorder()

	h.GetDeal(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// --- POST /api/deals テスト ---

// TestDealHandler_CreateDeal_Success は案件作成が201とサーバー導出のスコアを返すことを検証する。
func TestDealHandler_CreateDeal_Success(t *testing.T) {
	svc := &mockDealService{
		createFn: func(ctx context.Context, caller *model.User, input deal.CreateInput) (*model.Deal, error) {
			if input.Type != model.DealTypeRental {
				t.Errorf("input.Type = %q, want RENTAL", input.Type)
			}
			if input.Title != "中野レジデンス202" {
				t.Errorf("input.Title = %q, want 中野レジデンス202", input.Title)
			}
			if input.AmountYen != 120000 {
				t.Errorf("input.AmountYen = %d, want 120000", input.AmountYen)
			}
			return &model.Deal{
				ID:           "deal-new",
				Type:         input.Type,
				Title:        input.Title,
				ClientName:   input.ClientName,
				Stage:        input.Stage,
				Score:        80,
				Rank:         model.RankB,
				AmountYen:    input.AmountYen,
				AssignedToID: caller.ID,
			}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	body := `{"type":"RENTAL","title":"中野レジデンス202","clientName":"佐藤花子","stage":"R_CONTRACT","amountYen":120000}`
	req := httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.CreateDeal(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var got dealResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Score != 80 || got.Rank != "B" {
		t.Errorf("score/rank = %d/%s, want 80/B", got.Score, got.Rank)
	}
	if got.AssignedToID != "agent-1" {
		t.Errorf("assignedToId = %q, want agent-1", got.AssignedToID)
	}
}

// TestDealHandler_CreateDeal_InvalidJSON_Returns400 は不正なJSONボディで400を返すことを検証する。
func TestDealHandler_CreateDeal_InvalidJSON_Returns400(t *testing.T) {
	called := false
	svc := &mockDealService{
		createFn: func(ctx context.Context, caller *model.User, input deal.CreateInput) (*model.Deal, error) {
			called = true
			return nil, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewBufferString(`{invalid`))
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.CreateDeal(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("service should not be called with invalid JSON")
	}
}

// TestDealHandler_CreateDeal_ValidationFailed_ReturnsFieldViolations は検証エラーが違反フィールドの一覧を含むことを検証する。
func TestDealHandler_CreateDeal_ValidationFailed_ReturnsFieldViolations(t *testing.T) {
	svc := &mockDealService{
		createFn: func(ctx context.Context, caller *model.User, input deal.CreateInput) (*model.Deal, error) {
			return nil, model.NewValidationError([]model.FieldViolation{
				{Field: "title", Reason: "タイトルは必須です。"},
				{Field: "amountYen", Reason: "金額は0以上で指定してください。"},
			})
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	body := `{"type":"RENTAL","stage":"R_ENQUIRY","amountYen":-1}`
	req := httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewBufferString(body))
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.CreateDeal(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	errBody := parseErrorBody(t, w)
	if errBody.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", errBody.Code, model.ErrCodeValidationFailed)
	}
	if len(errBody.Fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2", len(errBody.Fields))
	}
	if errBody.Fields[0].Field != "title" {
		t.Errorf("fields[0].field = %q, want title", errBody.Fields[0].Field)
	}
}

// TestDealHandler_CreateDeal_IgnoresClientSuppliedScoreAndRank はリクエストボディに
// scoreとrankを含めても無視され、サーバー側の導出値で永続化されることを検証する。
// 実サービス経由で、レスポンスと永続化レコードの両方を確認する。
func TestDealHandler_CreateDeal_IgnoresClientSuppliedScoreAndRank(t *testing.T) {
	repo := &recordingDealRepo{}
	svc := deal.NewService(repo, nil, deal.Config{})
	h := NewDealHandler(svc, fixedResolver(testAgent()))

	body := `{"type":"RENTAL","title":"初回問い合わせ","clientName":"佐藤花子","stage":"R_ENQUIRY","amountYen":120000,"score":999,"rank":"A"}`
	req := httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "agent-1")
	w := httptest.NewRecorder()

	h.CreateDeal(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var got dealResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// R_ENQUIRYの導出値はscore=0, rank=C。クライアント指定の999/Aは反映されない
	if got.Score != 0 || got.Rank != "C" {
		t.Errorf("response score/rank = %d/%s, want 0/C", got.Score, got.Rank)
	}

	if repo.created == nil {
		t.Fatal("expected deal to be persisted")
	}
	if repo.created.Score != 0 || repo.created.Rank != model.RankC {
		t.Errorf("persisted score/rank = %d/%s, want 0/C", repo.created.Score, repo.created.Rank)
	}
}

// --- PUT /api/deals/{id} テスト ---

// TestDealHandler_UpdateDeal_Success は部分更新で指定フィールドのみがポインタとして渡ることを検証する。
func TestDealHandler_UpdateDeal_Success(t *testing.T) {
	var gotInput deal.UpdateInput
	svc := &mockDealService{
		updateFn: func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
			gotInput = input
			return &model.Deal{
				ID:    id,
				Type:  model.DealTypeRental,
				Stage: model.StageRentalContract,
				Score: 80,
				Rank:  model.RankB,
			}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	body := `{"stage":"R_CONTRACT"}`
	req := httptest.NewRequest(http.MethodPut, "/api/deals/deal-1", bytes.NewBufferString(body))
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.UpdateDeal(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotInput.Stage == nil || *gotInput.Stage != model.StageRentalContract {
		t.Errorf("input.Stage = %v, want R_CONTRACT", gotInput.Stage)
	}
	if gotInput.Title != nil {
		t.Errorf("input.Title = %v, want nil", gotInput.Title)
	}
	if gotInput.AmountYen != nil {
		t.Errorf("input.AmountYen = %v, want nil", gotInput.AmountYen)
	}

	var got dealResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Score != 80 || got.Rank != "B" {
		t.Errorf("score/rank = %d/%s, want 80/B", got.Score, got.Rank)
	}
}

// TestDealHandler_UpdateDeal_NextActionDueNull_PassesClear はnextActionDue:nullが
// 期日クリアの指示としてサービスに渡ることを検証する。
func TestDealHandler_UpdateDeal_NextActionDueNull_PassesClear(t *testing.T) {
	var gotInput deal.UpdateInput
	svc := &mockDealService{
		updateFn: func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
			gotInput = input
			return &model.Deal{ID: id, Type: model.DealTypeRental, Stage: model.StageRentalApp}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodPut, "/api/deals/deal-1", bytes.NewBufferString(`{"nextActionDue":null}`))
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.UpdateDeal(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotInput.NextActionDue == nil {
		t.Fatal("input.NextActionDue = nil, want clear instruction")
	}
	if *gotInput.NextActionDue != nil {
		t.Errorf("*input.NextActionDue = %v, want nil (clear)", *gotInput.NextActionDue)
	}
}

// TestDealHandler_UpdateDeal_NextActionDueOmitted_PassesUnchanged はキー省略が
// 「変更なし」としてサービスに渡ることを検証する。
func TestDealHandler_UpdateDeal_NextActionDueOmitted_PassesUnchanged(t *testing.T) {
	var gotInput deal.UpdateInput
	svc := &mockDealService{
		updateFn: func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
			gotInput = input
			return &model.Deal{ID: id, Type: model.DealTypeRental, Stage: model.StageRentalApp}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodPut, "/api/deals/deal-1", bytes.NewBufferString(`{"nextAction":"内見日程の調整"}`))
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.UpdateDeal(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotInput.NextActionDue != nil {
		t.Errorf("input.NextActionDue = %v, want nil (unchanged)", gotInput.NextActionDue)
	}
}

// TestDealHandler_UpdateDeal_NextActionDueSet_PassesValue は日時指定で
// 新しい期日がサービスに渡ることを検証する。
func TestDealHandler_UpdateDeal_NextActionDueSet_PassesValue(t *testing.T) {
	var gotInput deal.UpdateInput
	svc := &mockDealService{
		updateFn: func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
			gotInput = input
			return &model.Deal{ID: id, Type: model.DealTypeRental, Stage: model.StageRentalApp}, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodPut, "/api/deals/deal-1", bytes.NewBufferString(`{"nextActionDue":"2026-09-15T10:00:00Z"}`))
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.UpdateDeal(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotInput.NextActionDue == nil || *gotInput.NextActionDue == nil {
		t.Fatal("expected nextActionDue to be set")
	}
	want := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	if !(*gotInput.NextActionDue).Equal(want) {
		t.Errorf("nextActionDue = %v, want %v", *gotInput.NextActionDue, want)
	}
}

// TestDealHandler_UpdateDeal_InvalidNextActionDue_Returns400 は日時として解釈できない
// nextActionDueで400を返すことを検証する。
func TestDealHandler_UpdateDeal_InvalidNextActionDue_Returns400(t *testing.T) {
	called := false
	svc := &mockDealService{
		updateFn: func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
			called = true
			return nil, nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodPut, "/api/deals/deal-1", bytes.NewBufferString(`{"nextActionDue":"来週中"}`))
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.UpdateDeal(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("service should not be called with an unparsable due date")
	}
}

// TestDealHandler_UpdateDeal_NotFound_Returns404 は存在しない案件の更新で404を返すことを検証する。
func TestDealHandler_UpdateDeal_NotFound_Returns404(t *testing.T) {
	svc := &mockDealService{
		updateFn: func(ctx context.Context, caller *model.User, id string, input deal.UpdateInput) (*model.Deal, error) {
			return nil, model.NewDealNotFoundError(id)
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodPut, "/api/deals/missing", bytes.NewBufferString(`{"title":"x"}`))
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.UpdateDeal(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- DELETE /api/deals/{id} テスト ---

// TestDealHandler_DeleteDeal_Success は削除成功が204を返すことを検証する。
func TestDealHandler_DeleteDeal_Success(t *testing.T) {
	deletedID := ""
	svc := &mockDealService{
		deleteFn: func(ctx context.Context, caller *model.User, id string) error {
			deletedID = id
			return nil
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodDelete, "/api/deals/deal-1", nil)
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.DeleteDeal(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedID != "deal-1" {
		t.Errorf("deleted id = %q, want deal-1", deletedID)
	}
}

// TestDealHandler_DeleteDeal_PermissionDenied_Returns403 は権限外の削除で403を返すことを検証する。
func TestDealHandler_DeleteDeal_PermissionDenied_Returns403(t *testing.T) {
	svc := &mockDealService{
		deleteFn: func(ctx context.Context, caller *model.User, id string) error {
			return model.NewPermissionDeniedError()
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodDelete, "/api/deals/deal-1", nil)
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.DeleteDeal(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// --- エラーマッピングのテスト ---

// TestHandleServiceError_UnknownError_Returns500 はAPIError以外のエラーが500になることを検証する。
func TestHandleServiceError_UnknownError_Returns500(t *testing.T) {
	svc := &mockDealService{
		getFn: func(ctx context.Context, caller *model.User, id string) (*model.Deal, error) {
			return nil, errors.New("connection reset")
		},
	}

	h := NewDealHandler(svc, fixedResolver(testAgent()))

	req := httptest.NewRequest(http.MethodGet, "/api/deals/deal-1", nil)
	req = withUserID(req, "agent-1")
	req = withChiURLParam(req, "id", "deal-1")
	w := httptest.NewRecorder()

	h.GetDeal(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := parseErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}

// TestMapAPIErrorToHTTPStatus はエラーコードとHTTPステータスの対応を検証する。
func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeUnauthorized, http.StatusUnauthorized},
		{model.ErrCodePermissionDenied, http.StatusForbidden},
		{model.ErrCodeDealNotFound, http.StatusNotFound},
		{model.ErrCodeUserNotFound, http.StatusNotFound},
		{model.ErrCodeValidationFailed, http.StatusBadRequest},
		{model.ErrCodeInvalidDealType, http.StatusBadRequest},
		{model.ErrCodeInvalidRole, http.StatusBadRequest},
		{model.ErrCodeInvalidRequest, http.StatusBadRequest},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code})
		if got != tt.want {
			t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

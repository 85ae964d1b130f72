package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kawase/torihiki/internal/analytics"
	"github.com/kawase/torihiki/internal/model"
)

// AnalyticsServiceInterface は分析ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	Stats(ctx context.Context, caller *model.User) (*analytics.Stats, error)
	StageDistribution(ctx context.Context, caller *model.User, dealType model.DealType) ([]analytics.StageCount, error)
}

// AnalyticsHandler は分析のHTTPハンドラー。
type AnalyticsHandler struct {
	service  AnalyticsServiceInterface
	resolver CallerResolver
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsServiceInterface, resolver CallerResolver) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:  service,
		resolver: resolver,
	}
}

// GetStats はダッシュボード向けの集計値を返す。
// GET /api/analytics/stats
func (h *AnalyticsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveCaller(w, r, h.resolver)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), caller)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetStageDistribution は指定種別のステージ別案件数を返す。
// GET /api/analytics/stage-distribution/{type}
func (h *AnalyticsHandler) GetStageDistribution(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveCaller(w, r, h.resolver)
	if !ok {
		return
	}

	dealType := model.DealType(chi.URLParam(r, "type"))

	distribution, err := h.service.StageDistribution(r.Context(), caller, dealType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(distribution)
}

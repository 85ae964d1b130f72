// Package analytics は案件の集計・分析ロジックを提供する。
//
// 集計値はリクエストごとに現在のストア状態から再計算する。
// 一覧・取得と同じ役割ベースの絞り込みを適用し、全範囲の閲覧権限を
// 持たない呼び出し元には自分が担当する案件のみを集計対象にする。
package analytics

import (
	"context"
	"fmt"

	"github.com/kawase/torihiki/internal/authz"
	"github.com/kawase/torihiki/internal/model"
	"github.com/kawase/torihiki/internal/repository"
)

// Stats はダッシュボード向けの集計値を表す。
type Stats struct {
	TotalDeals     int   `json:"totalDeals"`
	ARankDeals     int   `json:"aRankDeals"`
	OverdueActions int   `json:"overdueActions"`
	TotalRevenue   int64 `json:"totalRevenue"`
}

// StageCount はステージ別の案件数を表す。
type StageCount struct {
	Stage model.DealStage `json:"stage"`
	Count int             `json:"count"`
}

// Service は分析のサービス層。
type Service struct {
	repo repository.AnalyticsRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AnalyticsRepository) *Service {
	return &Service{repo: repo}
}

// Stats は呼び出し元の閲覧範囲における案件の集計値を返す。
func (s *Service) Stats(ctx context.Context, caller *model.User) (*Stats, error) {
	assignedToID, err := scopeAssignee(caller)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, assignedToID)
	if err != nil {
		return nil, fmt.Errorf("集計値の取得に失敗しました: %w", err)
	}

	return &Stats{
		TotalDeals:     stats.TotalDeals,
		ARankDeals:     stats.ARankDeals,
		OverdueActions: stats.OverdueActions,
		TotalRevenue:   stats.TotalRevenue,
	}, nil
}

// StageDistribution は指定種別のステージ別案件数をフロー順で返す。
// 件数0のステージも必ず含める（パイプラインの全段が揃った分布を返す）。
func (s *Service) StageDistribution(ctx context.Context, caller *model.User, dealType model.DealType) ([]StageCount, error) {
	if !dealType.IsValid() {
		return nil, model.NewInvalidDealTypeError(string(dealType))
	}

	assignedToID, err := scopeAssignee(caller)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.StageCounts(ctx, dealType, assignedToID)
	if err != nil {
		return nil, fmt.Errorf("ステージ分布の取得に失敗しました: %w", err)
	}

	stages := model.StagesFor(dealType)
	distribution := make([]StageCount, 0, len(stages))
	for _, stage := range stages {
		distribution = append(distribution, StageCount{
			Stage: stage,
			Count: counts[stage],
		})
	}
	return distribution, nil
}

// scopeAssignee は呼び出し元の閲覧範囲に応じた担当者絞り込みを返す。
// 空文字列は絞り込みなし（全案件）を意味する。
func scopeAssignee(caller *model.User) (string, error) {
	if authz.HasPermission(caller.Role, authz.ActionRead, authz.ScopeAll) {
		return "", nil
	}
	if !authz.HasPermission(caller.Role, authz.ActionRead, authz.ScopeOwn) {
		return "", model.NewPermissionDeniedError()
	}
	return caller.ID, nil
}

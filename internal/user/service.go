// Package user はユーザー参照のドメインロジックを提供する。
//
// ユーザーレコードの作成・更新は外部のID基盤の責務であり、
// この層は認証済みユーザーの解決と一覧の参照のみを行う。
package user

import (
	"context"
	"fmt"

	"github.com/kawase/torihiki/internal/authz"
	"github.com/kawase/torihiki/internal/model"
	"github.com/kawase/torihiki/internal/repository"
)

// Service はユーザー参照のサービス層。
type Service struct {
	repo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.UserRepository) *Service {
	return &Service{repo: repo}
}

// Resolve は指定IDのユーザーを取得する。
// セッションは有効だがユーザーレコードが存在しない場合（ID基盤側で削除済み等）は
// 未検出エラーを返す。
func (s *Service) Resolve(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// List はユーザーの一覧を返す。roleが空でない場合はその役割に絞り込む。
// 案件の担当者割り当てに使うため、チーム範囲の閲覧権限を要求する。
func (s *Service) List(ctx context.Context, caller *model.User, role string) ([]*model.User, error) {
	if !authz.HasPermission(caller.Role, authz.ActionRead, authz.ScopeTeam) {
		return nil, model.NewPermissionDeniedError()
	}

	if role == "" {
		users, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
		}
		return users, nil
	}

	r := model.Role(role)
	if !r.IsValid() {
		return nil, model.NewInvalidRoleError(role)
	}
	users, err := s.repo.ListByRole(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

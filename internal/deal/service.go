// Package deal は案件管理のドメインロジックを提供する。
//
// 書き込み時のスコア・ランク再計算、部分更新のマージ、役割ベースの
// アクセス制御の適用はすべてこの層で行う。導出フィールド（score, rank）は
// 入力として一切受け取らず、常に(種別, ステージ)から計算し直す。
package deal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kawase/torihiki/internal/authz"
	"github.com/kawase/torihiki/internal/model"
	"github.com/kawase/torihiki/internal/repository"
	"github.com/kawase/torihiki/internal/scoring"
)

// OpsRecorder は案件操作のメトリクス記録インターフェース。
type OpsRecorder interface {
	RecordDealCreated(dealType model.DealType)
	RecordDealUpdated(dealType model.DealType)
	RecordDealDeleted(dealType model.DealType)
}

// Config は案件サービスの設定。
type Config struct {
	// DefaultAssigneeID は全範囲の書き込み権限を持つ呼び出し元が担当者を
	// 指定しなかった場合の割り当て先。空の場合は呼び出し元自身を割り当てる。
	DefaultAssigneeID string
}

// Service は案件管理のサービス層。
type Service struct {
	repo     repository.DealRepository
	recorder OpsRecorder
	config   Config
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい（メトリクス記録をスキップする）。
func NewService(repo repository.DealRepository, recorder OpsRecorder, config Config) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		config:   config,
	}
}

// CreateInput は案件作成の入力を表す。
// scoreとrankは書き込み可能フィールドに含めない。導出値はサーバー側で計算する。
type CreateInput struct {
	Type          model.DealType
	Title         string
	ClientName    string
	Stage         model.DealStage
	AmountYen     int64
	NextAction    string
	NextActionDue *time.Time
	AssignedToID  string
}

// UpdateInput は案件の部分更新の入力を表す。
// nilのフィールドは変更しない。種別（Type）は作成後に変更できないため含めない。
// NextActionDueは二重ポインタで、外側nil=変更なし、内側nil=期日のクリアを表す。
type UpdateInput struct {
	Title         *string
	ClientName    *string
	Stage         *model.DealStage
	AmountYen     *int64
	NextAction    *string
	NextActionDue **time.Time
	AssignedToID  *string
}

// ListFilter は案件一覧の絞り込み条件を表す。
type ListFilter struct {
	Type         model.DealType
	Stage        model.DealStage
	Rank         model.Rank
	AssignedToID string
	Search       string
}

// List は呼び出し元の権限で閲覧可能な案件の一覧を返す。
// 全範囲の閲覧権限を持たない呼び出し元には自分が担当する案件のみを返す。
func (s *Service) List(ctx context.Context, caller *model.User, filter ListFilter) ([]*model.Deal, error) {
	repoFilter := repository.DealFilter{
		Type:         filter.Type,
		Stage:        filter.Stage,
		Rank:         filter.Rank,
		AssignedToID: filter.AssignedToID,
		Search:       strings.TrimSpace(filter.Search),
	}

	if !authz.HasPermission(caller.Role, authz.ActionRead, authz.ScopeAll) {
		if !authz.HasPermission(caller.Role, authz.ActionRead, authz.ScopeOwn) {
			return nil, model.NewPermissionDeniedError()
		}
		// 自分の案件に絞り込む。呼び出し元が指定した担当者フィルタは無視する。
		repoFilter.AssignedToID = caller.ID
	}

	deals, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("案件一覧の取得に失敗しました: %w", err)
	}
	return deals, nil
}

// Get は指定IDの案件を返す。
// 全範囲の閲覧権限を持たない呼び出し元は自分が担当する案件のみ取得できる。
func (s *Service) Get(ctx context.Context, caller *model.User, id string) (*model.Deal, error) {
	deal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("案件の取得に失敗しました: %w", err)
	}
	if deal == nil {
		return nil, model.NewDealNotFoundError(id)
	}

	if !authz.HasPermission(caller.Role, authz.ActionRead, authz.ScopeAll) && deal.AssignedToID != caller.ID {
		return nil, model.NewPermissionDeniedError()
	}

	return deal, nil
}

// Create は案件を作成する。
// 自分の案件の書き込み権限を持たない呼び出し元は拒否する。
// 全範囲の書き込み権限を持たない呼び出し元には、リクエスト内容にかかわらず
// 呼び出し元自身を担当者として強制する（リクエストボディ経由の権限昇格を防ぐ）。
func (s *Service) Create(ctx context.Context, caller *model.User, input CreateInput) (*model.Deal, error) {
	if !authz.HasPermission(caller.Role, authz.ActionWrite, authz.ScopeOwn) {
		return nil, model.NewPermissionDeniedError()
	}

	if violations := validateCreate(input); len(violations) > 0 {
		return nil, model.NewValidationError(violations)
	}

	assignedToID := s.resolveAssignee(caller, input.AssignedToID)

	now := time.Now()
	score := scoring.Score(input.Type, input.Stage)
	deal := &model.Deal{
		ID:            uuid.NewString(),
		Type:          input.Type,
		Title:         input.Title,
		ClientName:    input.ClientName,
		Stage:         input.Stage,
		Score:         score,
		Rank:          scoring.Rank(input.Type, score),
		AmountYen:     input.AmountYen,
		NextAction:    input.NextAction,
		NextActionDue: input.NextActionDue,
		AssignedToID:  assignedToID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, deal); err != nil {
		return nil, fmt.Errorf("案件の作成に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordDealCreated(deal.Type)
	}
	slog.Info("deal created",
		slog.String("deal_id", deal.ID),
		slog.String("type", string(deal.Type)),
		slog.String("stage", string(deal.Stage)),
		slog.String("assigned_to", deal.AssignedToID),
	)

	return deal, nil
}

// Update は案件を部分更新する。
// 既存レコードと入力をマージしてから検証・スコア再計算を行うため、
// 再計算は常にマージ後の(種別, ステージ)を参照する。
// 更新は全範囲の書き込み権限を持つか、対象案件の担当者であることを要求する。
func (s *Service) Update(ctx context.Context, caller *model.User, id string, input UpdateInput) (*model.Deal, error) {
	if !authz.HasPermission(caller.Role, authz.ActionWrite, authz.ScopeOwn) {
		return nil, model.NewPermissionDeniedError()
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("案件の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewDealNotFoundError(id)
	}

	hasAllWrite := authz.HasPermission(caller.Role, authz.ActionWrite, authz.ScopeAll)
	if !hasAllWrite && existing.AssignedToID != caller.ID {
		return nil, model.NewPermissionDeniedError()
	}

	merged := *existing
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.ClientName != nil {
		merged.ClientName = *input.ClientName
	}
	if input.Stage != nil {
		merged.Stage = *input.Stage
	}
	if input.AmountYen != nil {
		merged.AmountYen = *input.AmountYen
	}
	if input.NextAction != nil {
		merged.NextAction = *input.NextAction
	}
	if input.NextActionDue != nil {
		merged.NextActionDue = *input.NextActionDue
	}
	if input.AssignedToID != nil && hasAllWrite {
		// 担当者の付け替えは全範囲の書き込み権限を持つ場合のみ許可する
		merged.AssignedToID = *input.AssignedToID
	}

	if violations := validateDeal(&merged); len(violations) > 0 {
		return nil, model.NewValidationError(violations)
	}

	// マージ後の(種別, ステージ)からスコアとランクを同一書き込み内で再計算する
	merged.Score = scoring.Score(merged.Type, merged.Stage)
	merged.Rank = scoring.Rank(merged.Type, merged.Score)
	merged.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("案件の更新に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordDealUpdated(merged.Type)
	}
	slog.Info("deal updated",
		slog.String("deal_id", merged.ID),
		slog.String("stage", string(merged.Stage)),
		slog.Int("score", merged.Score),
		slog.String("rank", string(merged.Rank)),
	)

	return &merged, nil
}

// Delete は案件を削除する。
// 削除は全範囲の書き込み権限を持つか、対象案件の担当者であることを要求する。
func (s *Service) Delete(ctx context.Context, caller *model.User, id string) error {
	if !authz.HasPermission(caller.Role, authz.ActionWrite, authz.ScopeOwn) {
		return model.NewPermissionDeniedError()
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("案件の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return model.NewDealNotFoundError(id)
	}

	if !authz.HasPermission(caller.Role, authz.ActionWrite, authz.ScopeAll) && existing.AssignedToID != caller.ID {
		return model.NewPermissionDeniedError()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("案件の削除に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordDealDeleted(existing.Type)
	}
	slog.Info("deal deleted",
		slog.String("deal_id", id),
	)

	return nil
}

// resolveAssignee は作成時の担当者を決定する。
// 全範囲の書き込み権限を持たない呼び出し元は常に自分自身が担当者になる。
// 権限を持つ場合は指定値 → 設定のデフォルト担当者 → 呼び出し元の順で解決する。
func (s *Service) resolveAssignee(caller *model.User, requested string) string {
	if !authz.HasPermission(caller.Role, authz.ActionWrite, authz.ScopeAll) {
		return caller.ID
	}
	if requested != "" {
		return requested
	}
	if s.config.DefaultAssigneeID != "" {
		return s.config.DefaultAssigneeID
	}
	return caller.ID
}

// validateCreate は作成入力を検証し、失敗項目の一覧を返す。
func validateCreate(input CreateInput) []model.FieldViolation {
	var violations []model.FieldViolation

	if !input.Type.IsValid() {
		violations = append(violations, model.FieldViolation{
			Field:  "type",
			Reason: "RENTAL または SALES を指定してください",
		})
	}
	violations = append(violations, validateCommon(input.Type, input.Title, input.ClientName, input.Stage, input.AmountYen)...)

	return violations
}

// validateDeal はマージ済みの案件レコードを検証し、失敗項目の一覧を返す。
func validateDeal(deal *model.Deal) []model.FieldViolation {
	return validateCommon(deal.Type, deal.Title, deal.ClientName, deal.Stage, deal.AmountYen)
}

// validateCommon は作成・更新で共通の検証を行う。
func validateCommon(dealType model.DealType, title, clientName string, stage model.DealStage, amountYen int64) []model.FieldViolation {
	var violations []model.FieldViolation

	if strings.TrimSpace(title) == "" {
		violations = append(violations, model.FieldViolation{
			Field:  "title",
			Reason: "タイトルは必須です",
		})
	}
	if strings.TrimSpace(clientName) == "" {
		violations = append(violations, model.FieldViolation{
			Field:  "clientName",
			Reason: "顧客名は必須です",
		})
	}
	if stage == "" {
		violations = append(violations, model.FieldViolation{
			Field:  "stage",
			Reason: "ステージは必須です",
		})
	} else if dealType.IsValid() && !stage.BelongsTo(dealType) {
		violations = append(violations, model.FieldViolation{
			Field:  "stage",
			Reason: fmt.Sprintf("ステージ %s は種別 %s のパイプラインに属していません", stage, dealType),
		})
	}
	if amountYen <= 0 {
		violations = append(violations, model.FieldViolation{
			Field:  "amountYen",
			Reason: "金額は正の整数で指定してください",
		})
	}

	return violations
}

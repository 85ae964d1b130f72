// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/kawase/torihiki/internal/model"
)

// DealFilter は案件一覧の絞り込み条件を表す。
// ゼロ値のフィールドは条件として適用されない。
type DealFilter struct {
	Type         model.DealType
	Stage        model.DealStage
	Rank         model.Rank
	AssignedToID string
	// Search はタイトルと顧客名に対する大文字小文字を区別しない部分一致検索。
	Search string
}

// DealStats は案件全体の集計値を表す。
type DealStats struct {
	TotalDeals     int
	ARankDeals     int
	OverdueActions int
	TotalRevenue   int64
}

// DealRepository は案件データの永続化インターフェース。
type DealRepository interface {
	// FindByID は指定IDの案件を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Deal, error)

	// List はフィルタ条件に一致する案件を作成日時の降順で返す。
	List(ctx context.Context, filter DealFilter) ([]*model.Deal, error)

	// Create は案件を作成する。ID・スコア・ランク・タイムスタンプは
	// 呼び出し側（サービス層）が設定済みであること。
	Create(ctx context.Context, deal *model.Deal) error

	// Update は案件レコード全体を上書き更新する。
	// 部分更新のマージはサービス層の責務であり、リポジトリは常に全列を書き込む。
	Update(ctx context.Context, deal *model.Deal) error

	// Delete は指定IDの案件を削除する。対象が存在しない場合もエラーにしない。
	Delete(ctx context.Context, id string) error
}

// AnalyticsRepository は案件の集計クエリのインターフェース。
// 集計はリクエストごとに現在のストア状態から再計算する（キャッシュしない）。
type AnalyticsRepository interface {
	// Stats は案件全体の集計値を返す。
	// assignedToIDが空でない場合はその担当者の案件に限定する。
	Stats(ctx context.Context, assignedToID string) (*DealStats, error)

	// StageCounts は指定種別のステージ別案件数を返す。
	// 件数0のステージはマップに含まれない（ゼロ埋めはサービス層で行う）。
	// assignedToIDが空でない場合はその担当者の案件に限定する。
	StageCounts(ctx context.Context, dealType model.DealType, assignedToID string) (map[model.DealStage]int, error)
}

// UserRepository はユーザーデータの参照インターフェース。
// ユーザーレコードの作成・更新は外部のID基盤の責務であり、本サービスは参照のみ行う。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// List は全ユーザーを返す。
	List(ctx context.Context) ([]*model.User, error)

	// ListByRole は指定役割のユーザーを返す。
	ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
}

// SessionRepository はセッションデータの参照インターフェース。
// セッションの作成・破棄はID基盤側の責務であり、本サービスは検証のみ行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kawase/torihiki/internal/model"
)

// PostgresAnalyticsRepo はPostgreSQLを使用した案件集計リポジトリ。
// dealsテーブルに対する読み取り専用の集計クエリのみを発行する。
type PostgresAnalyticsRepo struct {
	db *sql.DB
}

// NewPostgresAnalyticsRepo はPostgresAnalyticsRepoを生成する。
func NewPostgresAnalyticsRepo(db *sql.DB) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{db: db}
}

// Stats は案件全体の集計値を返す。
// 期限超過はnext_action_dueが設定済みかつ現在時刻より過去であることを意味する。
func (r *PostgresAnalyticsRepo) Stats(ctx context.Context, assignedToID string) (*DealStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE rank = 'A'),
		COUNT(*) FILTER (WHERE next_action_due IS NOT NULL AND next_action_due < now()),
		COALESCE(SUM(amount_yen), 0)
	 FROM deals`

	var args []any
	if assignedToID != "" {
		query += ` WHERE assigned_to_id = $1`
		args = append(args, assignedToID)
	}

	stats := &DealStats{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalDeals, &stats.ARankDeals, &stats.OverdueActions, &stats.TotalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal stats: %w", err)
	}

	return stats, nil
}

// StageCounts は指定種別のステージ別案件数を返す。
func (r *PostgresAnalyticsRepo) StageCounts(ctx context.Context, dealType model.DealType, assignedToID string) (map[model.DealStage]int, error) {
	query := `SELECT stage, COUNT(*) FROM deals WHERE type = $1`
	args := []any{string(dealType)}

	if assignedToID != "" {
		query += ` AND assigned_to_id = $2`
		args = append(args, assignedToID)
	}
	query += ` GROUP BY stage`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.DealStage]int)
	for rows.Next() {
		var stage model.DealStage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		counts[stage] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage counts: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)

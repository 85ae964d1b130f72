package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kawase/torihiki/internal/model"
)

// PostgresDealRepo はPostgreSQLを使用した案件リポジトリ。
type PostgresDealRepo struct {
	db *sql.DB
}

// NewPostgresDealRepo はPostgresDealRepoを生成する。
func NewPostgresDealRepo(db *sql.DB) *PostgresDealRepo {
	return &PostgresDealRepo{db: db}
}

const dealColumns = `id, type, title, client_name, stage, score, rank, amount_yen,
	next_action, next_action_due, assigned_to_id, created_at, updated_at`

// FindByID は指定IDの案件を取得する。見つからない場合はnilを返す。
func (r *PostgresDealRepo) FindByID(ctx context.Context, id string) (*model.Deal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE id = $1`,
		id,
	)

	deal, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deal by ID: %w", err)
	}

	return deal, nil
}

// List はフィルタ条件に一致する案件を作成日時の降順で返す。
func (r *PostgresDealRepo) List(ctx context.Context, filter DealFilter) ([]*model.Deal, error) {
	var conditions []string
	var args []any

	addCondition := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Type != "" {
		addCondition("type = $%d", string(filter.Type))
	}
	if filter.Stage != "" {
		addCondition("stage = $%d", string(filter.Stage))
	}
	if filter.Rank != "" {
		addCondition("rank = $%d", string(filter.Rank))
	}
	if filter.AssignedToID != "" {
		addCondition("assigned_to_id = $%d", filter.AssignedToID)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLikePattern(filter.Search) + "%"
		args = append(args, pattern)
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR client_name ILIKE $%d)", n, n))
	}

	query := `SELECT ` + dealColumns + ` FROM deals`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	var deals []*model.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deals: %w", err)
	}

	return deals, nil
}

// Create は案件を作成する。
func (r *PostgresDealRepo) Create(ctx context.Context, deal *model.Deal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deals (id, type, title, client_name, stage, score, rank, amount_yen,
			next_action, next_action_due, assigned_to_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		deal.ID, string(deal.Type), deal.Title, deal.ClientName, string(deal.Stage),
		deal.Score, string(deal.Rank), deal.AmountYen,
		deal.NextAction, deal.NextActionDue, nullString(deal.AssignedToID),
		deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deal: %w", err)
	}
	return nil
}

// Update は案件レコード全体を上書き更新する。
// 行単位の整合性はストレージエンジンの単一行更新に委ねる。
func (r *PostgresDealRepo) Update(ctx context.Context, deal *model.Deal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deals
		 SET type = $2, title = $3, client_name = $4, stage = $5, score = $6, rank = $7,
			 amount_yen = $8, next_action = $9, next_action_due = $10,
			 assigned_to_id = $11, updated_at = $12
		 WHERE id = $1`,
		deal.ID, string(deal.Type), deal.Title, deal.ClientName, string(deal.Stage),
		deal.Score, string(deal.Rank), deal.AmountYen,
		deal.NextAction, deal.NextActionDue, nullString(deal.AssignedToID),
		deal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	return nil
}

// Delete は指定IDの案件を削除する。
func (r *PostgresDealRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM deals WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeal は1行を読み取りmodel.Dealに変換する。
func scanDeal(row rowScanner) (*model.Deal, error) {
	deal := &model.Deal{}
	var nextActionDue sql.NullTime
	var assignedToID sql.NullString

	err := row.Scan(
		&deal.ID, &deal.Type, &deal.Title, &deal.ClientName, &deal.Stage,
		&deal.Score, &deal.Rank, &deal.AmountYen,
		&deal.NextAction, &nextActionDue, &assignedToID,
		&deal.CreatedAt, &deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextActionDue.Valid {
		due := nextActionDue.Time
		deal.NextActionDue = &due
	}
	if assignedToID.Valid {
		deal.AssignedToID = assignedToID.String
	}

	return deal, nil
}

// nullString は空文字列をNULLとして書き込むための変換。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// escapeLikePattern はLIKE/ILIKEのメタ文字をエスケープする。
// 検索語はリテラルの部分一致として扱う。
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// compile-time interface check
var _ DealRepository = (*PostgresDealRepo)(nil)

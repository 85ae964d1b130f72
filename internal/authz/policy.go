// Package authz は役割ベースのアクセス制御ポリシーを提供する。
//
// ポリシーは静的な許可表と純粋な照会関数のみで構成する。グローバルな権限状態は
// 持たず、呼び出し側が必ず対象ユーザーの役割を明示的に渡す。
package authz

import "github.com/kawase/torihiki/internal/model"

// Action は許可表で扱う操作の種類を表す。
type Action string

const (
	// ActionRead は案件の閲覧操作。
	ActionRead Action = "read"
	// ActionWrite は案件の作成・更新・削除操作。
	ActionWrite Action = "write"
)

// Scope は操作の及ぶ範囲を表す。
type Scope string

const (
	// ScopeOwn は自分が担当する案件のみ。
	ScopeOwn Scope = "own"
	// ScopeTeam はチームの案件（ユーザー一覧の閲覧を含む）。
	ScopeTeam Scope = "team"
	// ScopeAll は全案件。
	ScopeAll Scope = "all"
)

// permissions は役割ごとの許可表。
//
//	役割     | read            | write
//	ADMIN    | own, team, all  | own, all
//	MANAGER  | own, team       | own, all
//	AGENT    | own             | own
//	VIEWER   | own             | （なし）
var permissions = map[model.Role]map[Action][]Scope{
	model.RoleAdmin: {
		ActionRead:  {ScopeOwn, ScopeTeam, ScopeAll},
		ActionWrite: {ScopeOwn, ScopeAll},
	},
	model.RoleManager: {
		ActionRead:  {ScopeOwn, ScopeTeam},
		ActionWrite: {ScopeOwn, ScopeAll},
	},
	model.RoleAgent: {
		ActionRead:  {ScopeOwn},
		ActionWrite: {ScopeOwn},
	},
	model.RoleViewer: {
		ActionRead: {ScopeOwn},
	},
}

// HasPermission は役割が指定の操作・範囲を許可されているかどうかを返す。
// 未定義の役割・操作・範囲にはfalseを返す。エラーは返さない。
func HasPermission(role model.Role, action Action, scope Scope) bool {
	actions, ok := permissions[role]
	if !ok {
		return false
	}
	for _, s := range actions[action] {
		if s == scope {
			return true
		}
	}
	return false
}

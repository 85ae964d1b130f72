// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
// 役割の管理は外部のID基盤が行い、本サービスからは変更できない。
type Role string

const (
	// RoleAdmin は全案件の閲覧・更新が可能な管理者。
	RoleAdmin Role = "ADMIN"
	// RoleManager は自分とチームの案件を閲覧し、全案件を更新できるマネージャー。
	RoleManager Role = "MANAGER"
	// RoleAgent は自分の案件のみを扱う担当者。
	RoleAgent Role = "AGENT"
	// RoleViewer は自分の案件の閲覧のみが可能な閲覧者。
	RoleViewer Role = "VIEWER"
)

// IsValid は役割が定義済みの値かどうかを判定する。
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent, RoleViewer:
		return true
	}
	return false
}

// User は本サービスを利用するユーザーを表す。
// ユーザーレコードの所有者は外部のID基盤であり、本サービスは参照のみ行う。
type User struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session はユーザーのログインセッションを表す。
// セッションの作成はID基盤側の責務であり、本サービスは検証と解決のみ行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

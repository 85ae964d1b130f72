// Package model はドメインモデルを定義する。
package model

import "time"

// DealType は案件の種別（賃貸/売買）を表す。
// 作成後の種別変更はできない（パイプライン間の移行経路は存在しない）。
type DealType string

const (
	// DealTypeRental は賃貸案件。
	DealTypeRental DealType = "RENTAL"
	// DealTypeSales は売買案件。
	DealTypeSales DealType = "SALES"
)

// IsValid は案件種別が定義済みの値かどうかを判定する。
func (t DealType) IsValid() bool {
	return t == DealTypeRental || t == DealTypeSales
}

// DealStage は案件のパイプラインステージを表す。
// R_プレフィックスは賃貸、S_プレフィックスは売買のステージ。
type DealStage string

// 賃貸パイプラインのステージ（7段階）。
const (
	StageRentalEnquiry  DealStage = "R_ENQUIRY"
	StageRentalView     DealStage = "R_VIEW"
	StageRentalApp      DealStage = "R_APP"
	StageRentalScreen   DealStage = "R_SCREEN"
	StageRentalApprove  DealStage = "R_APPROVE"
	StageRentalContract DealStage = "R_CONTRACT"
	StageRentalMoveIn   DealStage = "R_MOVEIN"
)

// 売買パイプラインのステージ（8段階）。
const (
	StageSalesEnquiry  DealStage = "S_ENQUIRY"
	StageSalesView     DealStage = "S_VIEW"
	StageSalesLOI      DealStage = "S_LOI"
	StageSalesDeposit  DealStage = "S_DEPOSIT"
	StageSalesDD       DealStage = "S_DD"
	StageSalesApprove  DealStage = "S_APPROVE"
	StageSalesContract DealStage = "S_CONTRACT"
	StageSalesClosing  DealStage = "S_CLOSING"
)

// rentalStages は賃貸パイプラインのステージをフロー順に並べたもの。
var rentalStages = []DealStage{
	StageRentalEnquiry,
	StageRentalView,
	StageRentalApp,
	StageRentalScreen,
	StageRentalApprove,
	StageRentalContract,
	StageRentalMoveIn,
}

// salesStages は売買パイプラインのステージをフロー順に並べたもの。
var salesStages = []DealStage{
	StageSalesEnquiry,
	StageSalesView,
	StageSalesLOI,
	StageSalesDeposit,
	StageSalesDD,
	StageSalesApprove,
	StageSalesContract,
	StageSalesClosing,
}

// StagesFor は指定種別のパイプラインステージをフロー順で返す。
// 未定義の種別にはnilを返す。
func StagesFor(t DealType) []DealStage {
	switch t {
	case DealTypeRental:
		return rentalStages
	case DealTypeSales:
		return salesStages
	default:
		return nil
	}
}

// BelongsTo はステージが指定種別のパイプラインに属するかどうかを判定する。
func (s DealStage) BelongsTo(t DealType) bool {
	for _, stage := range StagesFor(t) {
		if stage == s {
			return true
		}
	}
	return false
}

// IsValid はステージがいずれかのパイプラインの定義済みステージかどうかを判定する。
func (s DealStage) IsValid() bool {
	return s.BelongsTo(DealTypeRental) || s.BelongsTo(DealTypeSales)
}

// Rank はスコアから導出されるA/B/Cの案件グレードを表す。
type Rank string

const (
	// RankA は最優先案件。
	RankA Rank = "A"
	// RankB は中位案件。
	RankB Rank = "B"
	// RankC は低位案件。
	RankC Rank = "C"
)

// IsValid はランクが定義済みの値かどうかを判定する。
func (r Rank) IsValid() bool {
	return r == RankA || r == RankB || r == RankC
}

// Deal は賃貸または売買の取引案件を表す。
// ScoreとRankは(Type, Stage)から常に再計算される導出フィールドであり、
// クライアント入力から受け取ることはない。
type Deal struct {
	ID            string
	Type          DealType
	Title         string
	ClientName    string
	Stage         DealStage
	Score         int
	Rank          Rank
	AmountYen     int64
	NextAction    string
	NextActionDue *time.Time
	AssignedToID  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Package scoring は案件のステージからスコアとランクを導出する純粋関数を提供する。
//
// スコア表はステージ定義と常に同期させること。新しいステージを追加した場合、
// 対応するエントリを追加しない限りそのステージは0点として扱われる。
package scoring

import "github.com/kawase/torihiki/internal/model"

// rentalScores は賃貸パイプラインのステージ別スコア表（最大100点）。
var rentalScores = map[model.DealStage]int{
	model.StageRentalEnquiry:  0,
	model.StageRentalView:     0,
	model.StageRentalApp:      25,  // 申込受領
	model.StageRentalScreen:   40,  // 審査開始 (25 + 15)
	model.StageRentalApprove:  60,  // 審査承認 (25 + 15 + 20)
	model.StageRentalContract: 80,  // 契約締結 (25 + 15 + 20 + 20)
	model.StageRentalMoveIn:   100, // 入居日確定 (25 + 15 + 20 + 20 + 20)
}

// salesScores は売買パイプラインのステージ別スコア表（最大100点）。
var salesScores = map[model.DealStage]int{
	model.StageSalesEnquiry:  0,
	model.StageSalesView:     0,
	model.StageSalesLOI:      20,  // 買付証明受領
	model.StageSalesDeposit:  35,  // 手付金受領 (20 + 15)
	model.StageSalesDD:       60,  // デューデリジェンス完了 (20 + 15 + 25)
	model.StageSalesApprove:  80,  // 融資承認・現金確認 (20 + 15 + 25 + 20)
	model.StageSalesContract: 100, // 契約締結 (20 + 15 + 25 + 20 + 20)
	model.StageSalesClosing:  100, // スコア上は契約締結と同値
}

// Score は(種別, ステージ)からスコアを返す。
// 表に存在しないステージは0点として扱う（エラーにはしない）。
func Score(dealType model.DealType, stage model.DealStage) int {
	switch dealType {
	case model.DealTypeRental:
		return rentalScores[stage]
	case model.DealTypeSales:
		return salesScores[stage]
	default:
		return 0
	}
}

// Rank は(種別, スコア)からランクを返す。
// 閾値はパイプラインのステージ数と成約率の違いを反映して種別ごとに異なる。
//
//	賃貸: A ≥ 85, B 55-84, C < 55
//	売買: A ≥ 80, B 45-79, C < 45
func Rank(dealType model.DealType, score int) model.Rank {
	if dealType == model.DealTypeRental {
		if score >= 85 {
			return model.RankA
		}
		if score >= 55 {
			return model.RankB
		}
		return model.RankC
	}

	if score >= 80 {
		return model.RankA
	}
	if score >= 45 {
		return model.RankB
	}
	return model.RankC
}

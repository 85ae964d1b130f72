package scoring

import (
	"testing"

	"github.com/kawase/torihiki/internal/model"
)

// 全有効(種別, ステージ)ペアのスコアが表の固定値と一致することを検証
func TestScore_AllValidStages(t *testing.T) {
	tests := []struct {
		dealType model.DealType
		stage    model.DealStage
		want     int
	}{
		{model.DealTypeRental, model.StageRentalEnquiry, 0},
		{model.DealTypeRental, model.StageRentalView, 0},
		{model.DealTypeRental, model.StageRentalApp, 25},
		{model.DealTypeRental, model.StageRentalScreen, 40},
		{model.DealTypeRental, model.StageRentalApprove, 60},
		{model.DealTypeRental, model.StageRentalContract, 80},
		{model.DealTypeRental, model.StageRentalMoveIn, 100},
		{model.DealTypeSales, model.StageSalesEnquiry, 0},
		{model.DealTypeSales, model.StageSalesView, 0},
		{model.DealTypeSales, model.StageSalesLOI, 20},
		{model.DealTypeSales, model.StageSalesDeposit, 35},
		{model.DealTypeSales, model.StageSalesDD, 60},
		{model.DealTypeSales, model.StageSalesApprove, 80},
		{model.DealTypeSales, model.StageSalesContract, 100},
		{model.DealTypeSales, model.StageSalesClosing, 100},
	}

	for _, tt := range tests {
		got := Score(tt.dealType, tt.stage)
		if got != tt.want {
			t.Errorf("Score(%s, %s) = %d, want %d", tt.dealType, tt.stage, got, tt.want)
		}
	}
}

// スコアが繰り返し呼び出しで決定的であることを検証
func TestScore_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Score(model.DealTypeRental, model.StageRentalContract); got != 80 {
			t.Fatalf("call %d: Score = %d, want 80", i, got)
		}
	}
}

// 表に存在しないステージが0点になることを検証（防御的デフォルト）
func TestScore_UnknownStage_ReturnsZero(t *testing.T) {
	if got := Score(model.DealTypeRental, model.StageSalesLOI); got != 0 {
		t.Errorf("Score(RENTAL, S_LOI) = %d, want 0", got)
	}
	if got := Score(model.DealTypeSales, model.DealStage("NO_SUCH_STAGE")); got != 0 {
		t.Errorf("Score(SALES, NO_SUCH_STAGE) = %d, want 0", got)
	}
	if got := Score(model.DealType("UNKNOWN"), model.StageRentalMoveIn); got != 0 {
		t.Errorf("Score(UNKNOWN, R_MOVEIN) = %d, want 0", got)
	}
}

// 種別ごとの閾値でランクが導出されることを検証（境界値を含む）
func TestRank_Thresholds(t *testing.T) {
	tests := []struct {
		dealType model.DealType
		score    int
		want     model.Rank
	}{
		// 賃貸: A ≥ 85, B 55-84, C < 55
		{model.DealTypeRental, 100, model.RankA},
		{model.DealTypeRental, 85, model.RankA},
		{model.DealTypeRental, 84, model.RankB},
		{model.DealTypeRental, 55, model.RankB},
		{model.DealTypeRental, 54, model.RankC},
		{model.DealTypeRental, 0, model.RankC},
		// 売買: A ≥ 80, B 45-79, C < 45
		{model.DealTypeSales, 100, model.RankA},
		{model.DealTypeSales, 80, model.RankA},
		{model.DealTypeSales, 79, model.RankB},
		{model.DealTypeSales, 45, model.RankB},
		{model.DealTypeSales, 44, model.RankC},
		{model.DealTypeSales, 0, model.RankC},
	}

	for _, tt := range tests {
		got := Rank(tt.dealType, tt.score)
		if got != tt.want {
			t.Errorf("Rank(%s, %d) = %s, want %s", tt.dealType, tt.score, got, tt.want)
		}
	}
}

// S_CONTRACTとS_CLOSINGが同スコア・同ランクになることを検証
// （どちらも成約完了状態として扱う）
func TestScore_SalesContractAndClosing_SameScore(t *testing.T) {
	contract := Score(model.DealTypeSales, model.StageSalesContract)
	closing := Score(model.DealTypeSales, model.StageSalesClosing)
	if contract != closing {
		t.Errorf("S_CONTRACT = %d, S_CLOSING = %d, want equal", contract, closing)
	}
	if Rank(model.DealTypeSales, contract) != model.RankA {
		t.Errorf("Rank(SALES, %d) = %s, want A", contract, Rank(model.DealTypeSales, contract))
	}
}

// スコア表が各パイプラインの全ステージをカバーしていることを検証
// （ステージ追加時に表の更新漏れがあると0点になるため）
func TestScore_TablesCoverAllStages(t *testing.T) {
	for _, stage := range model.StagesFor(model.DealTypeRental) {
		if _, ok := rentalScores[stage]; !ok {
			t.Errorf("rentalScores missing entry for %s", stage)
		}
	}
	for _, stage := range model.StagesFor(model.DealTypeSales) {
		if _, ok := salesScores[stage]; !ok {
			t.Errorf("salesScores missing entry for %s", stage)
		}
	}
}

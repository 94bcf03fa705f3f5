// Package model 定义班表引擎的核心数据模型
package model

// DecisionMethod 仲裁产出方式
type DecisionMethod string

const (
	MethodMLPrimary   DecisionMethod = "ml_primary"   // 直接采用预测班表
	MethodMLCorrected DecisionMethod = "ml_corrected" // 预测班表经规则修正
	MethodHybridBlend DecisionMethod = "hybrid_blend" // 按单元格置信度混合
	MethodRuleBased   DecisionMethod = "rule_based"   // 纯规则生成
)

// ConfidenceTier 置信度分层
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
	TierNone   ConfidenceTier = "none"
)

// DecisionResult 仲裁结果
type DecisionResult struct {
	Method     DecisionMethod `json:"method"`
	Tier       ConfidenceTier `json:"tier"`
	Confidence float64        `json:"confidence"` // 加权综合置信度 0-1
	Reasoning  string         `json:"reasoning"`
}

// Prediction 外部统计预测器的候选班表
// CellConfidence 键为 "staffID|date"
type Prediction struct {
	Schedule        Schedule           `json:"schedule"`
	CellConfidence  map[string]float64 `json:"cell_confidence,omitempty"`
	OverallAccuracy float64            `json:"overall_accuracy"`
}

// CellKey 构造单元格置信度键
func CellKey(staffID, date string) string {
	return staffID + "|" + date
}

// AverageCellConfidence 单元格置信度均值，无数据返回 0
func (p *Prediction) AverageCellConfidence() float64 {
	if len(p.CellConfidence) == 0 {
		return 0
	}
	var sum float64
	for _, c := range p.CellConfidence {
		sum += c
	}
	return sum / float64(len(p.CellConfidence))
}

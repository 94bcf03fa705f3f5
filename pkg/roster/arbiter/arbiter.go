// Package arbiter 提供统计预测与规则生成之间的决策仲裁
package arbiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/roster/corrector"
	"github.com/banbiao/banbiao/pkg/roster/generator"
	"github.com/banbiao/banbiao/pkg/roster/validator"
)

// Predictor 外部统计预测器接口
// 调用结果永远是建议性的：出错或超时都会降级为规则生成，绝不中断请求
type Predictor interface {
	Predict(ctx context.Context, current model.Schedule, staff []*model.StaffMember, dates model.DateRange) (*model.Prediction, error)
}

// Thresholds 置信度分层阈值
type Thresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// DefaultThresholds 返回默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.85, Medium: 0.70, Low: 0.50}
}

// 置信度加权：整体准确率占7成，单元格均值占3成
const (
	overallWeight = 0.70
	cellWeight    = 0.30

	// 整体准确率达到该值时直接采用预测班表，跳过进一步修正
	bypassAccuracy = 0.90

	// 混合路径的单元格置信度分档
	blendTakeCandidate = 0.70
	blendCoverageBias  = 0.50

	// 预测器调用超时
	defaultPredictTimeout = 3 * time.Second
)

// Arbiter 决策仲裁器
// 除目录快照与滚动表现统计外无跨请求状态
type Arbiter struct {
	predictor  Predictor
	settings   *catalog.Settings
	genOpts    generator.Options
	thresholds Thresholds
	timeout    time.Duration
	log        *logger.EngineLogger

	// 滚动表现统计，用于阈值自适应
	mu          sync.Mutex
	mlAccepted  int
	mlRejected  int
}

// New 创建仲裁器
func New(predictor Predictor, settings *catalog.Settings, genOpts generator.Options) *Arbiter {
	if settings == nil {
		settings = catalog.Defaults()
	}
	return &Arbiter{
		predictor:  predictor,
		settings:   settings,
		genOpts:    genOpts,
		thresholds: DefaultThresholds(),
		timeout:    defaultPredictTimeout,
		log:        logger.NewEngineLogger(),
	}
}

// SetThresholds 覆盖默认阈值
func (a *Arbiter) SetThresholds(t Thresholds) {
	a.thresholds = t
}

// SetPredictTimeout 覆盖预测器调用超时
func (a *Arbiter) SetPredictTimeout(d time.Duration) {
	if d > 0 {
		a.timeout = d
	}
}

// Outcome 仲裁产出
type Outcome struct {
	Schedule   model.Schedule          `json:"schedule"`
	Decision   model.DecisionResult    `json:"decision"`
	Validation *model.ValidationResult `json:"validation"`
	Quality    float64                 `json:"quality"` // 0-100
}

// Decide 执行一次完整仲裁
// 决策矩阵（首个命中生效）：
//
//	整体准确率 >= 0.9 且分层非 none -> ml_primary
//	high   -> ml_primary
//	medium -> ml_corrected
//	low    -> hybrid_blend
//	其他   -> rule_based
func (a *Arbiter) Decide(ctx context.Context, current model.Schedule, staff []*model.StaffMember, dates model.DateRange, overrides generator.OverrideProvider) *Outcome {
	prediction := a.fetchPrediction(ctx, current, staff, dates)
	tier, confidence := a.assessCandidate(prediction)

	var outcome *Outcome
	switch {
	case prediction != nil && prediction.OverallAccuracy >= bypassAccuracy && tier != model.TierNone:
		outcome = a.runMLPrimary(ctx, prediction, staff, dates, overrides, confidence,
			fmt.Sprintf("整体准确率 %.2f 达到直采线", prediction.OverallAccuracy))
	case tier == model.TierHigh:
		outcome = a.runMLPrimary(ctx, prediction, staff, dates, overrides, confidence, "置信度分层 high")
	case tier == model.TierMedium:
		outcome = a.runMLCorrected(prediction, staff, dates, confidence)
	case tier == model.TierLow:
		outcome = a.runHybridBlend(ctx, prediction, staff, dates, overrides, confidence)
	default:
		outcome = a.runRuleBased(ctx, staff, dates, overrides, "预测不可用或置信度过低")
	}

	outcome.Decision.Tier = tier
	a.log.DecisionMade(string(outcome.Decision.Method), string(tier), outcome.Decision.Reasoning)
	return outcome
}

// fetchPrediction 带超时调用预测器
// 出错或超时返回 nil，效果等同于"候选不可用"
func (a *Arbiter) fetchPrediction(ctx context.Context, current model.Schedule, staff []*model.StaffMember, dates model.DateRange) (prediction *model.Prediction) {
	if a.predictor == nil {
		return nil
	}
	defer func() {
		// 预测器实现方的 panic 同样按失败降级
		if r := recover(); r != nil {
			a.log.PredictorFailed(fmt.Errorf("predictor panic: %v", r))
			prediction = nil
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	p, err := a.predictor.Predict(callCtx, current, staff, dates)
	if err != nil {
		a.log.PredictorFailed(err)
		return nil
	}
	if p == nil || p.Schedule == nil {
		return nil
	}
	return p
}

// assessCandidate 计算置信度分层
// 综合置信度 = 0.70*整体准确率 + 0.30*单元格均值
func (a *Arbiter) assessCandidate(p *model.Prediction) (model.ConfidenceTier, float64) {
	if p == nil {
		return model.TierNone, 0
	}
	cellAvg := p.AverageCellConfidence()
	if cellAvg == 0 {
		// 无单元格置信度时退化为整体准确率
		cellAvg = p.OverallAccuracy
	}
	confidence := overallWeight*p.OverallAccuracy + cellWeight*cellAvg

	t := a.adaptiveThresholds()
	switch {
	case confidence >= t.High:
		return model.TierHigh, confidence
	case confidence >= t.Medium:
		return model.TierMedium, confidence
	case confidence >= t.Low:
		return model.TierLow, confidence
	default:
		return model.TierNone, confidence
	}
}

// adaptiveThresholds 按滚动表现微调阈值
// 直采被验证频繁打回时抬高 high 线，反之缓慢回落
func (a *Arbiter) adaptiveThresholds() Thresholds {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.thresholds
	total := a.mlAccepted + a.mlRejected
	if total < 10 {
		return t
	}
	rejectRate := float64(a.mlRejected) / float64(total)
	if rejectRate > 0.3 {
		t.High += 0.05
		if t.High > 0.95 {
			t.High = 0.95
		}
	}
	return t
}

// recordMLOutcome 记录直采验证结果
func (a *Arbiter) recordMLOutcome(accepted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if accepted {
		a.mlAccepted++
	} else {
		a.mlRejected++
	}
}

// runMLPrimary 直接采用预测班表
// 仅当验证通过且无 critical 违规时接受，否则落回规则生成
func (a *Arbiter) runMLPrimary(ctx context.Context, p *model.Prediction, staff []*model.StaffMember, dates model.DateRange, overrides generator.OverrideProvider, confidence float64, reason string) *Outcome {
	schedule := p.Schedule.Clone()
	schedule.EnsureComplete(staff, dates)

	v := validator.New(a.settings)
	result := v.Validate(schedule, staff, dates)
	if !result.Valid || result.HasCritical {
		a.recordMLOutcome(false)
		return a.runRuleBased(ctx, staff, dates, overrides, "预测班表未通过验证，落回规则生成")
	}

	a.recordMLOutcome(true)
	return &Outcome{
		Schedule: schedule,
		Decision: model.DecisionResult{
			Method:     model.MethodMLPrimary,
			Confidence: confidence,
			Reasoning:  reason,
		},
		Validation: result,
		Quality:    QualityScore(result),
	}
}

// runMLCorrected 预测班表经规则修正
// 修正后重新验证以便上报，但不再执行 critical 打回：
// 修正路径信任修正结果，打回交由调用方基于上报结果决定
func (a *Arbiter) runMLCorrected(p *model.Prediction, staff []*model.StaffMember, dates model.DateRange, confidence float64) *Outcome {
	schedule := p.Schedule.Clone()
	schedule.EnsureComplete(staff, dates)

	v := validator.New(a.settings)
	before := v.Validate(schedule, staff, dates)

	c := corrector.New(a.settings, 0)
	corrected, applied := c.Correct(schedule, before.Violations, staff, dates)

	after := v.Validate(corrected, staff, dates)
	return &Outcome{
		Schedule: corrected,
		Decision: model.DecisionResult{
			Method:     model.MethodMLCorrected,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("置信度分层 medium，应用 %d 项修正", applied),
		},
		Validation: after,
		Quality:    QualityScore(after),
	}
}

// runHybridBlend 按单元格置信度混合
// 规则班表作为基线：单元格置信度 >= 0.7 取候选值；
// 0.5-0.7 取候选值，但候选为休而基线在岗时偏向基线（覆盖倾斜）；
// < 0.5 取基线值
func (a *Arbiter) runHybridBlend(ctx context.Context, p *model.Prediction, staff []*model.StaffMember, dates model.DateRange, overrides generator.OverrideProvider, confidence float64) *Outcome {
	gen := generator.New(a.settings, a.genOpts)
	if overrides != nil {
		gen.SetOverrideProvider(overrides)
	}
	baseline := gen.Generate(ctx, staff, dates)

	blended := baseline.Clone()
	for _, member := range staff {
		for _, date := range dates {
			candidate := p.Schedule.Get(member.ID, date)
			cellConf := p.CellConfidence[model.CellKey(member.ID, date)]
			switch {
			case cellConf >= blendTakeCandidate:
				blended.Set(member.ID, date, candidate)
			case cellConf >= blendCoverageBias:
				baseVal := baseline.Get(member.ID, date)
				if candidate == model.ShiftOff && baseVal.IsWorking(member.Status) {
					// 覆盖倾斜：中等置信度的休让位给在岗基线
					continue
				}
				blended.Set(member.ID, date, candidate)
			}
		}
	}

	v := validator.New(a.settings)
	result := v.Validate(blended, staff, dates)
	return &Outcome{
		Schedule: blended,
		Decision: model.DecisionResult{
			Method:     model.MethodHybridBlend,
			Confidence: confidence,
			Reasoning:  "置信度分层 low，按单元格置信度与规则基线混合",
		},
		Validation: result,
		Quality:    QualityScore(result),
	}
}

// runRuleBased 纯规则生成
// 各趟处理自身带增量检查，此路径的最终验证仅用于上报
func (a *Arbiter) runRuleBased(ctx context.Context, staff []*model.StaffMember, dates model.DateRange, overrides generator.OverrideProvider, reason string) *Outcome {
	gen := generator.New(a.settings, a.genOpts)
	if overrides != nil {
		gen.SetOverrideProvider(overrides)
	}
	schedule := gen.Generate(ctx, staff, dates)

	v := validator.New(a.settings)
	result := v.Validate(schedule, staff, dates)
	return &Outcome{
		Schedule: schedule,
		Decision: model.DecisionResult{
			Method:    model.MethodRuleBased,
			Reasoning: reason,
		},
		Validation: result,
		Quality:    QualityScore(result),
	}
}

// QualityScore 由验证结果折算 0-100 质量分
// critical 扣 25，high 扣 10，medium 扣 4，low 扣 1
func QualityScore(result *model.ValidationResult) float64 {
	if result == nil {
		return 0
	}
	score := 100.0
	score -= 25 * float64(result.Summary[model.SeverityCritical])
	score -= 10 * float64(result.Summary[model.SeverityHigh])
	score -= 4 * float64(result.Summary[model.SeverityMedium])
	score -= 1 * float64(result.Summary[model.SeverityLow])
	if score < 0 {
		score = 0
	}
	return score
}

package arbiter

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/roster/generator"
)

// stubPredictor 固定返回的预测器
type stubPredictor struct {
	prediction *model.Prediction
	err        error
}

func (p *stubPredictor) Predict(ctx context.Context, current model.Schedule, staff []*model.StaffMember, dates model.DateRange) (*model.Prediction, error) {
	return p.prediction, p.err
}

// panicPredictor 总是panic的预测器
type panicPredictor struct{}

func (p *panicPredictor) Predict(ctx context.Context, current model.Schedule, staff []*model.StaffMember, dates model.DateRange) (*model.Prediction, error) {
	panic("模型服务内部错误")
}

// slowPredictor 阻塞到上下文取消的预测器
type slowPredictor struct{}

func (p *slowPredictor) Predict(ctx context.Context, current model.Schedule, staff []*model.StaffMember, dates model.DateRange) (*model.Prediction, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// quietSettings 关闭所有检查，预测班表不会触发违规
func quietSettings() *catalog.Settings {
	return &catalog.Settings{}
}

func arbStaff() []*model.StaffMember {
	return []*model.StaffMember{
		{ID: "s1", Name: "甲", Status: model.StatusFullTime},
		{ID: "s2", Name: "乙", Status: model.StatusFullTime},
		{ID: "s3", Name: "丙", Status: model.StatusFullTime},
	}
}

func arbDates(t *testing.T) model.DateRange {
	t.Helper()
	dates, err := model.NewDateRange("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("构造日期范围失败: %v", err)
	}
	return dates
}

func seededOpts() generator.Options {
	opts := generator.DefaultOptions()
	opts.Seed = 42
	return opts
}

func predictionWithAccuracy(accuracy float64) *model.Prediction {
	return &model.Prediction{
		Schedule:        model.NewSchedule(),
		OverallAccuracy: accuracy,
	}
}

func TestDecide_HighAccuracyBypass(t *testing.T) {
	predictor := &stubPredictor{prediction: predictionWithAccuracy(0.95)}
	a := New(predictor, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodMLPrimary {
		t.Errorf("Method = %v, expected ml_primary", outcome.Decision.Method)
	}
	if outcome.Decision.Tier != model.TierHigh {
		t.Errorf("Tier = %v, expected high", outcome.Decision.Tier)
	}
	if outcome.Quality != 100 {
		t.Errorf("Quality = %v, expected 100", outcome.Quality)
	}
}

func TestDecide_MediumTierCorrects(t *testing.T) {
	predictor := &stubPredictor{prediction: predictionWithAccuracy(0.75)}
	a := New(predictor, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodMLCorrected {
		t.Errorf("Method = %v, expected ml_corrected", outcome.Decision.Method)
	}
	if outcome.Decision.Tier != model.TierMedium {
		t.Errorf("Tier = %v, expected medium", outcome.Decision.Tier)
	}
}

func TestDecide_LowTierBlends(t *testing.T) {
	predictor := &stubPredictor{prediction: predictionWithAccuracy(0.60)}
	a := New(predictor, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodHybridBlend {
		t.Errorf("Method = %v, expected hybrid_blend", outcome.Decision.Method)
	}
	if outcome.Decision.Tier != model.TierLow {
		t.Errorf("Tier = %v, expected low", outcome.Decision.Tier)
	}
}

func TestDecide_BelowLowFallsToRules(t *testing.T) {
	predictor := &stubPredictor{prediction: predictionWithAccuracy(0.30)}
	a := New(predictor, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("Method = %v, expected rule_based", outcome.Decision.Method)
	}
	if outcome.Decision.Tier != model.TierNone {
		t.Errorf("Tier = %v, expected none", outcome.Decision.Tier)
	}
}

func TestDecide_NilPredictor(t *testing.T) {
	a := New(nil, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("无预测器应为rule_based, got %v", outcome.Decision.Method)
	}
	if outcome.Schedule == nil {
		t.Fatal("规则生成仍应产出班表")
	}
}

func TestDecide_PredictorError(t *testing.T) {
	predictor := &stubPredictor{err: errors.New("模型服务不可达")}
	a := New(predictor, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("预测失败应降级为rule_based, got %v", outcome.Decision.Method)
	}
}

func TestDecide_PredictorPanic(t *testing.T) {
	a := New(&panicPredictor{}, quietSettings(), seededOpts())

	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("预测器panic应降级为rule_based, got %v", outcome.Decision.Method)
	}
}

func TestDecide_PredictorTimeout(t *testing.T) {
	a := New(&slowPredictor{}, quietSettings(), seededOpts())
	a.SetPredictTimeout(50 * time.Millisecond)

	start := time.Now()
	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)
	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("预测超时应降级为rule_based, got %v", outcome.Decision.Method)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("超时降级耗时过长: %v", elapsed)
	}
}

func TestDecide_CriticalGateFallsBack(t *testing.T) {
	// 出勤下限开启，空预测班表全员在岗，
	// 在预测班表里给所有人排休触发critical
	settings := quietSettings()
	settings.MinCoverageWeekday = 2

	prediction := predictionWithAccuracy(0.95)
	for _, id := range []string{"s1", "s2", "s3"} {
		prediction.Schedule.Set(id, "2026-03-03", model.ShiftOff)
	}

	a := New(&stubPredictor{prediction: prediction}, settings, seededOpts())
	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)

	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("critical违规应打回规则生成, got %v", outcome.Decision.Method)
	}
	// 分层反映的是预测置信度，与最终路径无关
	if outcome.Decision.Tier != model.TierHigh {
		t.Errorf("Tier = %v, expected high", outcome.Decision.Tier)
	}
}

func TestDecide_NonCriticalViolationStillRejectsMLPrimary(t *testing.T) {
	// 偏好规则未满足只产生medium违规，
	// 直采路径同样要求验证通过，不能带病采纳
	settings := quietSettings()
	settings.PriorityRules = []*model.PriorityRule{
		{
			ID:        "r1",
			StaffIDs:  []string{"s1"},
			Weekday:   time.Monday,
			Directive: model.DirectivePreferred,
			Target:    model.ShiftOff,
			Weight:    80,
		},
	}

	// 预测班表为空，补全后s1周一在岗，违反偏好规则
	a := New(&stubPredictor{prediction: predictionWithAccuracy(0.95)}, settings, seededOpts())
	outcome := a.Decide(context.Background(), nil, arbStaff(), arbDates(t), nil)

	if outcome.Decision.Method != model.MethodRuleBased {
		t.Errorf("非critical违规也应打回规则生成, got %v", outcome.Decision.Method)
	}
	if outcome.Decision.Tier != model.TierHigh {
		t.Errorf("Tier = %v, expected high", outcome.Decision.Tier)
	}
}

func TestAssessCandidate_WeightedConfidence(t *testing.T) {
	a := New(nil, quietSettings(), seededOpts())

	p := &model.Prediction{
		Schedule:        model.NewSchedule(),
		OverallAccuracy: 0.80,
		CellConfidence: map[string]float64{
			model.CellKey("s1", "2026-03-02"): 0.60,
			model.CellKey("s2", "2026-03-02"): 0.80,
		},
	}
	// 0.70*0.80 + 0.30*0.70 = 0.77
	tier, confidence := a.assessCandidate(p)
	if math.Abs(confidence-0.77) > 1e-9 {
		t.Errorf("confidence = %v, expected 0.77", confidence)
	}
	if tier != model.TierMedium {
		t.Errorf("tier = %v, expected medium", tier)
	}

	// 无单元格置信度时退化为整体准确率
	p2 := predictionWithAccuracy(0.90)
	_, confidence2 := a.assessCandidate(p2)
	if math.Abs(confidence2-0.90) > 1e-9 {
		t.Errorf("confidence = %v, expected 0.90", confidence2)
	}
}

func TestAdaptiveThresholds(t *testing.T) {
	a := New(nil, quietSettings(), seededOpts())

	// 样本不足时不调整
	for i := 0; i < 5; i++ {
		a.recordMLOutcome(false)
	}
	if got := a.adaptiveThresholds().High; math.Abs(got-0.85) > 1e-9 {
		t.Errorf("样本不足不应调整, High = %v", got)
	}

	// 打回率 6/10 > 0.3，抬高 high 线
	for i := 0; i < 4; i++ {
		a.recordMLOutcome(true)
	}
	for i := 0; i < 1; i++ {
		a.recordMLOutcome(false)
	}
	if got := a.adaptiveThresholds().High; math.Abs(got-0.90) > 1e-9 {
		t.Errorf("高打回率应抬高high线到0.90, got %v", got)
	}
}

func TestRunHybridBlend_CellRules(t *testing.T) {
	settings := quietSettings()
	staff := arbStaff()
	dates := arbDates(t)

	prediction := &model.Prediction{
		Schedule:        model.NewSchedule(),
		OverallAccuracy: 0.60,
		CellConfidence: map[string]float64{
			model.CellKey("s1", "2026-03-02"): 0.80, // 取候选
			model.CellKey("s2", "2026-03-02"): 0.55, // 覆盖倾斜
			model.CellKey("s3", "2026-03-02"): 0.30, // 取基线
		},
	}
	prediction.Schedule.Set("s1", "2026-03-02", model.ShiftLate)
	prediction.Schedule.Set("s2", "2026-03-02", model.ShiftOff)
	prediction.Schedule.Set("s3", "2026-03-02", model.ShiftOff)

	a := New(&stubPredictor{prediction: prediction}, settings, seededOpts())
	outcome := a.Decide(context.Background(), nil, staff, dates, nil)

	if outcome.Decision.Method != model.MethodHybridBlend {
		t.Fatalf("Method = %v, expected hybrid_blend", outcome.Decision.Method)
	}
	if got := outcome.Schedule.Get("s1", "2026-03-02"); got != model.ShiftLate {
		t.Errorf("高置信度单元格应取候选值, got %v", got)
	}
	if got := outcome.Schedule.Get("s2", "2026-03-02"); got == model.ShiftOff {
		t.Error("中等置信度的休应让位给在岗基线")
	}
	if got := outcome.Schedule.Get("s3", "2026-03-02"); got == model.ShiftOff {
		t.Error("低置信度单元格应保持基线值")
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name     string
		result   *model.ValidationResult
		expected float64
	}{
		{"nil结果", nil, 0},
		{"无违规", model.NewValidationResult(nil), 100},
		{
			"混合违规",
			model.NewValidationResult([]model.Violation{
				{Severity: model.SeverityCritical},
				{Severity: model.SeverityHigh},
				{Severity: model.SeverityMedium},
				{Severity: model.SeverityLow},
			}),
			60, // 100 - 25 - 10 - 4 - 1
		},
		{
			"下限为0",
			model.NewValidationResult([]model.Violation{
				{Severity: model.SeverityCritical},
				{Severity: model.SeverityCritical},
				{Severity: model.SeverityCritical},
				{Severity: model.SeverityCritical},
				{Severity: model.SeverityCritical},
			}),
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityScore(tt.result); got != tt.expected {
				t.Errorf("QualityScore() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

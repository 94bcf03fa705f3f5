// Package roster 提供班表引擎的对外门面
//
// 引擎跨请求无共享可变班表状态：每次生成请求独立持有自己的班表，
// 仅约束目录缓存与指标为共享只读/累加状态，支持并发独立请求
package roster

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/roster/arbiter"
	"github.com/banbiao/banbiao/pkg/roster/generator"
	"github.com/banbiao/banbiao/pkg/roster/validator"
)

// 整个请求的墙钟预算，超出后切换到应急简化班表
const defaultBudget = 5 * time.Second

// Engine 班表引擎
type Engine struct {
	cache     *catalog.Cache
	predictor arbiter.Predictor
	overrides generator.OverrideProvider
	genOpts   generator.Options
	budget    time.Duration
	log       *logger.EngineLogger
}

// NewEngine 创建引擎
// cache 为 nil 时全程使用内置默认目录
func NewEngine(cache *catalog.Cache, predictor arbiter.Predictor) *Engine {
	return &Engine{
		cache:     cache,
		predictor: predictor,
		genOpts:   generator.DefaultOptions(),
		budget:    defaultBudget,
		log:       logger.NewEngineLogger(),
	}
}

// SetGeneratorOptions 覆盖生成选项（测试注入固定种子）
func (e *Engine) SetGeneratorOptions(opts generator.Options) {
	e.genOpts = opts
}

// SetOverrideProvider 设置外部日历覆盖提供方
func (e *Engine) SetOverrideProvider(p generator.OverrideProvider) {
	e.overrides = p
}

// SetBudget 覆盖请求墙钟预算
func (e *Engine) SetBudget(d time.Duration) {
	if d > 0 {
		e.budget = d
	}
}

// GenerateInput 生成请求输入
type GenerateInput struct {
	Staff     []*model.StaffMember `json:"staff"`
	StartDate string               `json:"start_date"` // YYYY-MM-DD
	EndDate   string               `json:"end_date"`   // YYYY-MM-DD
	Dates     []string             `json:"dates,omitempty"` // 显式日期列表，优先于起止日期
	Current   model.Schedule       `json:"current,omitempty"`
}

// GenerateResult 生成结果
type GenerateResult struct {
	Success      bool                 `json:"success"`
	RequestID    string               `json:"request_id"`
	Schedule     model.Schedule       `json:"schedule"`
	Violations   []model.Violation    `json:"violations"`
	QualityScore float64              `json:"quality_score"`
	Method       model.DecisionMethod `json:"method"`
	Tier         model.ConfidenceTier `json:"tier"`
	Reasoning    string               `json:"reasoning"`
	Emergency    bool                 `json:"emergency,omitempty"`
	Duration     time.Duration        `json:"duration"`
}

// settings 取当前目录快照
func (e *Engine) settings() *catalog.Settings {
	if e.cache != nil {
		if s := e.cache.Snapshot(); s != nil {
			return s
		}
	}
	return catalog.Defaults()
}

// GenerateSchedule 生成一份带约束验证的班表
// 输入形状非法立即返回结构化错误；其余一切失败路径都降级，
// 返回质量较低但完整的班表，绝不返回半成品
func (e *Engine) GenerateSchedule(ctx context.Context, input *GenerateInput) (*GenerateResult, error) {
	start := time.Now()
	requestID := uuid.New().String()

	dates, appErr := resolveDates(input)
	if appErr != nil {
		return nil, appErr
	}
	e.log.StartGenerate(requestID, len(input.Staff), len(dates))

	settings := e.settings()
	arb := arbiter.New(e.predictor, settings, e.genOpts)

	// 墙钟预算守护：超时切换应急简化班表
	budgetCtx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	type arbResult struct{ outcome *arbiter.Outcome }
	done := make(chan arbResult, 1)
	go func() {
		current := input.Current
		if current == nil {
			current = model.NewSchedule()
		}
		done <- arbResult{arb.Decide(budgetCtx, current, input.Staff, dates, e.overrides)}
	}()

	var outcome *arbiter.Outcome
	emergency := false
	select {
	case r := <-done:
		outcome = r.outcome
	case <-budgetCtx.Done():
		emergency = true
		logger.Warn().
			Str("request_id", requestID).
			Dur("budget", e.budget).
			Msg("超出墙钟预算，返回应急简化班表")
		outcome = e.emergencyOutcome(input.Staff, dates, settings)
	}

	result := &GenerateResult{
		Success:      !outcome.Validation.HasCritical,
		RequestID:    requestID,
		Schedule:     outcome.Schedule,
		Violations:   outcome.Validation.Violations,
		QualityScore: outcome.Quality,
		Method:       outcome.Decision.Method,
		Tier:         outcome.Decision.Tier,
		Reasoning:    outcome.Decision.Reasoning,
		Emergency:    emergency,
		Duration:     time.Since(start),
	}
	e.log.GenerateComplete(requestID, result.Duration, string(result.Method), result.QualityScore)
	return result, nil
}

// ValidateSchedule 验证既有班表
func (e *Engine) ValidateSchedule(schedule model.Schedule, staff []*model.StaffMember, rawDates []string) (*model.ValidationResult, error) {
	if schedule == nil {
		return nil, errors.InvalidInput("schedule", "班表不能为空")
	}
	if len(staff) == 0 {
		return nil, errors.InvalidInput("staff", "员工列表不能为空")
	}
	dates := model.NormalizeDates(rawDates)
	if len(dates) == 0 {
		return nil, errors.InvalidInput("dates", "日期范围不能为空")
	}
	v := validator.New(e.settings())
	return v.Validate(schedule, staff, dates), nil
}

// resolveDates 解析并校验输入的日期范围
func resolveDates(input *GenerateInput) (model.DateRange, *errors.AppError) {
	if input == nil {
		return nil, errors.InvalidInput("input", "请求体不能为空")
	}
	if len(input.Staff) == 0 {
		return nil, errors.InvalidInput("staff", "员工列表不能为空")
	}
	for _, s := range input.Staff {
		if s == nil || s.ID == "" {
			return nil, errors.InvalidInput("staff", "员工ID不能为空")
		}
	}

	if len(input.Dates) > 0 {
		dates := model.NormalizeDates(input.Dates)
		if len(dates) == 0 {
			return nil, errors.InvalidInput("dates", "日期列表无有效日期")
		}
		return dates, nil
	}

	dates, err := model.NewDateRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, errors.InvalidInput("start_date/end_date", "日期格式无效，应为YYYY-MM-DD")
	}
	if len(dates) == 0 {
		return nil, errors.InvalidInput("start_date/end_date", "日期范围为空")
	}
	return dates, nil
}

// emergencyOutcome 应急简化班表
// 确定性的星期启发式：每名员工按序轮流在周一到周五中固定一天休息，
// 不做任何优化，只保证完整性与基本轮休
func (e *Engine) emergencyOutcome(staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) *arbiter.Outcome {
	schedule := model.NewSchedule()
	schedule.EnsureComplete(staff, dates)

	for i, member := range staff {
		offWeekday := time.Weekday(i%5 + 1) // 周一..周五
		for _, date := range dates {
			if model.Weekday(date) == offWeekday {
				schedule.Set(member.ID, date, model.ShiftOff)
			}
		}
	}

	v := validator.New(settings)
	result := v.Validate(schedule, staff, dates)
	return &arbiter.Outcome{
		Schedule: schedule,
		Decision: model.DecisionResult{
			Method:    model.MethodRuleBased,
			Tier:      model.TierNone,
			Reasoning: "超出墙钟预算，应急星期启发式",
		},
		Validation: result,
		Quality:    arbiter.QualityScore(result),
	}
}

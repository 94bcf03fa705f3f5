// Package corrector 提供按违规类型的班表修正
//
// 修正引擎按严重程度降序逐条应用策略，受最大修正次数约束；
// 不保证修正后违规归零，调用方必须重新验证
package corrector

import (
	"sort"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
)

// Strategy 单个违规类型的修正策略
// 策略原地修改班表，返回是否做出了修改
type Strategy func(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool

// Corrector 修正引擎
type Corrector struct {
	settings       *catalog.Settings
	strategies     map[model.ViolationType]Strategy
	maxCorrections int
	log            *logger.EngineLogger
}

// New 创建修正引擎，maxCorrections <= 0 时取默认值 20
func New(settings *catalog.Settings, maxCorrections int) *Corrector {
	if settings == nil {
		settings = catalog.Defaults()
	}
	if maxCorrections <= 0 {
		maxCorrections = 20
	}
	c := &Corrector{
		settings:       settings,
		maxCorrections: maxCorrections,
		log:            logger.NewEngineLogger(),
	}
	c.strategies = map[model.ViolationType]Strategy{
		model.ViolationMonthlyOffLimit:      correctExcessOff,
		model.ViolationWeeklyOffLimit:       correctWeeklyOff,
		model.ViolationDailyOffLimit:        correctDailyOff,
		model.ViolationGroupConflict:        correctGroupConflict,
		model.ViolationPriorityRule:         correctPriorityRule,
		model.ViolationCoverageCompensation: correctCoverageCompensation,
		model.ViolationInsufficientCoverage: correctCoverage,
		model.ViolationConsecutiveOffDays:   correctConsecutiveOff,
		model.ViolationProximityPattern:     correctProximity,
		model.ViolationLaborLaw:             correctLaborLaw,
		model.ViolationWeekendCoverage:      correctCoverage,
	}
	return c
}

// Correct 按违规列表修正班表
// 输入班表不被修改；返回修正后的副本与实际应用的修正数。
// 未知违规类型记录日志后跳过，不算错误
func (c *Corrector) Correct(schedule model.Schedule, violations []model.Violation, staff []*model.StaffMember, dates model.DateRange) (model.Schedule, int) {
	result := schedule.Clone()
	if len(violations) == 0 {
		return result, 0
	}

	// 严重程度降序；同级保持输入顺序
	sorted := make([]model.Violation, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})

	applied := 0
	for _, v := range sorted {
		if applied >= c.maxCorrections {
			c.log.ConstraintViolation(string(v.Type), "达到最大修正次数，剩余违规未处理")
			break
		}
		strategy, ok := c.strategies[v.Type]
		if !ok {
			c.log.ConstraintViolation(string(v.Type), "未知违规类型，跳过修正")
			continue
		}
		if strategy(result, v, staff, dates, c.settings) {
			applied++
		}
	}
	return result, applied
}

// correctExcessOff 月度休息超限：从范围末尾往前把多余的休改为正常班
func correctExcessOff(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	excess := v.Details.Count - v.Details.Limit
	if excess <= 0 || v.Details.StaffID == "" {
		return false
	}
	changed := false
	for i := len(dates) - 1; i >= 0 && excess > 0; i-- {
		if schedule.Get(v.Details.StaffID, dates[i]) == model.ShiftOff {
			schedule.Set(v.Details.StaffID, dates[i], model.ShiftNormal)
			excess--
			changed = true
		}
	}
	return changed
}

// correctWeeklyOff 周滑动窗口超限：在违规窗口内改掉一个休
func correctWeeklyOff(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.StaffID == "" {
		return false
	}
	inWindow := func(date string) bool {
		if v.Details.Date == "" {
			return true
		}
		return date >= v.Details.Date && (v.Details.WindowEnd == "" || date <= v.Details.WindowEnd)
	}
	// 从窗口末尾往前找，优先保住窗口前段已有的休
	for i := len(dates) - 1; i >= 0; i-- {
		date := dates[i]
		if !inWindow(date) {
			continue
		}
		if schedule.Get(v.Details.StaffID, date) == model.ShiftOff {
			schedule.Set(v.Details.StaffID, date, model.ShiftNormal)
			return true
		}
	}
	return false
}

// correctDailyOff 单日休息人数超限：把超出人数的休改为正常班
func correctDailyOff(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.Date == "" {
		return false
	}
	excess := v.Details.Count - v.Details.Limit
	changed := false
	for _, member := range staff {
		if excess <= 0 {
			break
		}
		if schedule.Get(member.ID, v.Details.Date) == model.ShiftOff {
			schedule.Set(member.ID, v.Details.Date, model.ShiftNormal)
			excess--
			changed = true
		}
	}
	return changed
}

// correctGroupConflict 分组互斥冲突：保留首个休/早班成员，其余改正常班
func correctGroupConflict(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.GroupID == "" || v.Details.Date == "" {
		return false
	}
	var group *model.StaffGroup
	for _, g := range settings.StaffGroups {
		if g.ID == v.Details.GroupID {
			group = g
			break
		}
	}
	if group == nil {
		return false
	}

	changed := false
	kept := false
	for _, staffID := range group.MemberIDs {
		val := schedule.Get(staffID, v.Details.Date)
		if val != model.ShiftOff && val != model.ShiftEarly {
			continue
		}
		if !kept {
			kept = true
			continue
		}
		schedule.Set(staffID, v.Details.Date, model.ShiftNormal)
		changed = true
	}
	return changed
}

// correctPriorityRule 优先规则违规：单元格强制为规则目标值
func correctPriorityRule(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.StaffID == "" || v.Details.Date == "" {
		return false
	}
	for _, rule := range settings.PriorityRules {
		if rule.Directive != model.DirectivePreferred {
			continue
		}
		if !rule.AppliesTo(v.Details.StaffID, v.Details.Date) {
			continue
		}
		if schedule.Get(v.Details.StaffID, v.Details.Date) != rule.Target {
			schedule.Set(v.Details.StaffID, v.Details.Date, rule.Target)
			return true
		}
	}
	return false
}

// correctCoverageCompensation 覆盖补偿违规：替补强制正常班
func correctCoverageCompensation(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.StaffID == "" || v.Details.Date == "" {
		return false
	}
	if schedule.Get(v.Details.StaffID, v.Details.Date) == model.ShiftNormal {
		return false
	}
	schedule.Set(v.Details.StaffID, v.Details.Date, model.ShiftNormal)
	return true
}

// correctCoverage 出勤不足：把休改为正常班直到达到下限
func correctCoverage(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.Date == "" {
		return false
	}
	shortage := v.Details.Limit - v.Details.Count
	changed := false
	for _, member := range staff {
		if shortage <= 0 {
			break
		}
		if schedule.Get(member.ID, v.Details.Date) == model.ShiftOff {
			schedule.Set(member.ID, v.Details.Date, model.ShiftNormal)
			shortage--
			changed = true
		}
	}
	return changed
}

// correctConsecutiveOff 连休超限：取连休中间元素改为正常班
func correctConsecutiveOff(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.StaffID == "" || v.Details.Date == "" {
		return false
	}
	start := -1
	for i, d := range dates {
		if d == v.Details.Date {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}
	end := start
	for end+1 < len(dates) && schedule.Get(v.Details.StaffID, dates[end+1]) == model.ShiftOff {
		end++
	}
	if end == start {
		return false
	}
	mid := start + (end-start+1)/2
	schedule.Set(v.Details.StaffID, dates[mid], model.ShiftNormal)
	return true
}

// correctProximity 联动休息违规：撤销距离超限的休息日
func correctProximity(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.StaffID == "" || v.Details.Date == "" {
		return false
	}
	if schedule.Get(v.Details.StaffID, v.Details.Date) != model.ShiftOff {
		return false
	}
	schedule.Set(v.Details.StaffID, v.Details.Date, model.ShiftNormal)
	return true
}

// correctLaborLaw 劳动法连班超限：在连班中点插入休息日
func correctLaborLaw(schedule model.Schedule, v model.Violation, staff []*model.StaffMember, dates model.DateRange, settings *catalog.Settings) bool {
	if v.Details.StaffID == "" || v.Details.Date == "" {
		return false
	}
	start := -1
	for i, d := range dates {
		if d == v.Details.Date {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}
	status := model.StaffStatusOf(staff, v.Details.StaffID)
	end := start
	for end+1 < len(dates) && schedule.Get(v.Details.StaffID, dates[end+1]).IsWorking(status) {
		end++
	}
	mid := start + (end-start)/2
	schedule.Set(v.Details.StaffID, dates[mid], model.ShiftOff)
	return true
}

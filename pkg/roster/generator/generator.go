// Package generator 提供规则驱动的班表生成器
//
// 生成器按固定顺序执行多趟处理，每趟原地修改班表；
// 每个会修改班表的趟之后都会重新应用优先规则，
// 保证早期趟给出的承诺不会被后续趟悄悄覆盖
package generator

import (
	"context"
	"math/rand"
	"time"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
)

// OverrideProvider 外部日历/早班指令提供方
// 返回 日期 -> 员工ID -> 强制班次值；该覆盖在所有内部趟之后执行，优先级最高
type OverrideProvider interface {
	Overrides(ctx context.Context, dates model.DateRange) (map[string]map[string]model.ShiftValue, error)
}

// Options 生成选项
type Options struct {
	// Seed 随机种子；0 表示按时间取非确定性种子（生产默认），
	// 测试传入固定种子保证可复现
	Seed int64

	// OffTargetMargin 休息日目标 = 月度上限 - 安全余量
	OffTargetMargin int

	// Lookahead 休息日候选的前瞻窗口大小
	Lookahead int

	// WeekendBonus 周末日期在候选评分中的加分
	WeekendBonus int

	// RestPressureDays 连续无休天数达到该值后优先安排休息
	RestPressureDays int
}

// DefaultOptions 返回默认生成选项
func DefaultOptions() Options {
	return Options{
		Seed:             0,
		OffTargetMargin:  1,
		Lookahead:        4,
		WeekendBonus:     3,
		RestPressureDays: 5,
	}
}

// Generator 规则班表生成器
// 除休息日放置中刻意引入的随机打散外，生成过程是确定性的
type Generator struct {
	settings  *catalog.Settings
	opts      Options
	rng       *rand.Rand
	overrides OverrideProvider
	log       *logger.EngineLogger
}

// New 创建生成器，settings 为 nil 时使用内置默认目录
func New(settings *catalog.Settings, opts Options) *Generator {
	if settings == nil {
		settings = catalog.Defaults()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		settings: settings,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		log:      logger.NewEngineLogger(),
	}
}

// SetOverrideProvider 设置外部覆盖提供方
func (g *Generator) SetOverrideProvider(p OverrideProvider) {
	g.overrides = p
}

// Generate 从空白班表生成完整班表
// 候选池耗尽时接受未达标的休息日目标，而不是突破每周上限
func (g *Generator) Generate(ctx context.Context, staff []*model.StaffMember, dates model.DateRange) model.Schedule {
	schedule := model.NewSchedule()

	// 趟1：初始化所有单元格为空白哨兵值
	schedule.EnsureComplete(staff, dates)

	// 趟2：优先规则
	n := g.applyPriorityRules(schedule, dates)
	g.log.PassComplete("priority_rules", n)

	// 趟3：分组互斥
	n = g.applyGroupConstraints(schedule, dates)
	g.log.PassComplete("group_constraints", n)
	g.applyPriorityRules(schedule, dates)

	// 趟4：休息日分配
	n = g.distributeOffDays(schedule, staff, dates)
	g.log.PassComplete("off_day_distribution", n)
	g.applyPriorityRules(schedule, dates)

	// 趟5：强制休息窗口
	n = g.enforceRestWindows(schedule, staff, dates)
	g.log.PassComplete("rest_windows", n)
	g.applyPriorityRules(schedule, dates)

	// 趟6：覆盖补偿
	n = g.applyCoverageCompensation(schedule, dates)
	g.log.PassComplete("coverage_compensation", n)
	g.applyPriorityRules(schedule, dates)

	// 趟7：出勤下限调整
	n = g.adjustCoverage(schedule, staff, dates)
	g.log.PassComplete("coverage_adjustment", n)
	g.applyPriorityRules(schedule, dates)

	// 趟8：连休修复
	n = g.repairConsecutiveOff(schedule, staff, dates)
	g.log.PassComplete("consecutive_off_repair", n)

	// 趟9：最终重放优先规则
	g.applyPriorityRules(schedule, dates)

	// 趟10：外部日历覆盖，最后执行且优先级最高
	n = g.applyExternalOverrides(ctx, schedule, dates)
	g.log.PassComplete("external_overrides", n)

	return schedule
}

// applyPriorityRules 应用优先规则
// preferred：单元格强制为目标值
// avoided：命中目标值时，无替代配置则清回空白，
// 有替代配置则从允许集合中随机取一个
func (g *Generator) applyPriorityRules(schedule model.Schedule, dates model.DateRange) int {
	mutations := 0
	for _, rule := range g.settings.PriorityRules {
		for _, date := range dates {
			for _, staffID := range rule.StaffIDs {
				if !rule.AppliesTo(staffID, date) {
					continue
				}
				current := schedule.Get(staffID, date)
				switch rule.Directive {
				case model.DirectivePreferred:
					if current != rule.Target {
						schedule.Set(staffID, date, rule.Target)
						mutations++
					}
				case model.DirectiveAvoided:
					if current != rule.Target {
						continue
					}
					if len(rule.Exceptions) == 0 {
						schedule.Set(staffID, date, model.ShiftBlank)
					} else {
						pick := rule.Exceptions[g.rng.Intn(len(rule.Exceptions))]
						schedule.Set(staffID, date, pick)
					}
					mutations++
				}
			}
		}
	}
	return mutations
}

// applyGroupConstraints 分组互斥
// 同组同日多于一人休/早班时，保留首个成员，其余强制正常班
func (g *Generator) applyGroupConstraints(schedule model.Schedule, dates model.DateRange) int {
	mutations := 0
	for _, date := range dates {
		for _, group := range g.settings.StaffGroups {
			kept := false
			for _, staffID := range group.MemberIDs {
				val := schedule.Get(staffID, date)
				if val != model.ShiftOff && val != model.ShiftEarly {
					continue
				}
				if !kept {
					kept = true
					continue
				}
				schedule.Set(staffID, date, model.ShiftNormal)
				mutations++
			}
		}
	}
	return mutations
}

// enforceRestWindows 强制休息窗口
// 每个员工的每个 N 天滑动窗口内必须至少有一个休息值（休或早班）；
// 没有时优先插入休（受每周上限约束），不行则对允许的员工插入早班，
// 跳过会与相邻休形成早/休冲突的日期
func (g *Generator) enforceRestWindows(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) int {
	mutations := 0
	window := g.settings.RestWindowDays
	if window <= 0 || len(dates) < window {
		return 0
	}

	for _, member := range staff {
		for start := 0; start+window <= len(dates); start++ {
			hasRest := false
			for i := start; i < start+window; i++ {
				if schedule.Get(member.ID, dates[i]).IsRest() {
					hasRest = true
					break
				}
			}
			if hasRest {
				continue
			}

			// 先尝试插入休
			inserted := false
			for i := start; i < start+window; i++ {
				date := dates[i]
				if schedule.Get(member.ID, date) != model.ShiftBlank {
					continue
				}
				if g.wouldExceedWeeklyLimit(schedule, member.ID, date, dates) {
					continue
				}
				if g.hasAdjacentOff(schedule, member.ID, date) {
					continue
				}
				if g.wouldConflictWithGroup(schedule, member.ID, date) {
					continue
				}
				schedule.Set(member.ID, date, model.ShiftOff)
				mutations++
				inserted = true
				break
			}
			if inserted || !member.CanTakeEarly() {
				continue
			}

			// 退而求其次插入早班
			for i := start; i < start+window; i++ {
				date := dates[i]
				if schedule.Get(member.ID, date) != model.ShiftBlank {
					continue
				}
				if g.hasNearbyRestConflict(schedule, member.ID, date) {
					continue
				}
				if g.wouldConflictWithGroup(schedule, member.ID, date) {
					continue
				}
				schedule.Set(member.ID, date, model.ShiftEarly)
				mutations++
				break
			}
		}
	}
	return mutations
}

// applyCoverageCompensation 覆盖补偿
// 触发成员休息的日期，替补员工强制正常班
func (g *Generator) applyCoverageCompensation(schedule model.Schedule, dates model.DateRange) int {
	mutations := 0
	for _, group := range g.settings.StaffGroups {
		if group.BackupID == "" {
			continue
		}
		for _, date := range dates {
			triggered := false
			for _, staffID := range group.MemberIDs {
				if staffID == group.BackupID {
					continue
				}
				if schedule.Get(staffID, date) == model.ShiftOff {
					triggered = true
					break
				}
			}
			if triggered && schedule.Get(group.BackupID, date) != model.ShiftNormal {
				schedule.Set(group.BackupID, date, model.ShiftNormal)
				mutations++
			}
		}
	}
	return mutations
}

// adjustCoverage 出勤下限调整
// 在岗人数不足的日期，按员工顺序把休改回正常班直到达标
func (g *Generator) adjustCoverage(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) int {
	mutations := 0
	for _, date := range dates {
		min := g.settings.MinCoverageFor(date)
		working := schedule.WorkingCount(date, staff)
		for _, member := range staff {
			if working >= min {
				break
			}
			if schedule.Get(member.ID, date) == model.ShiftOff {
				schedule.Set(member.ID, date, model.ShiftNormal)
				working++
				mutations++
			}
		}
	}
	return mutations
}

// repairConsecutiveOff 连休修复
// 扫描每个员工的时间线，2 天及以上的连休取中间元素改为正常班；
// 范围末端的尾部连休同样处理
func (g *Generator) repairConsecutiveOff(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) int {
	mutations := 0
	for _, member := range staff {
		runStart := -1
		for i := 0; i <= len(dates); i++ {
			isOff := i < len(dates) && schedule.Get(member.ID, dates[i]) == model.ShiftOff
			if isOff {
				if runStart < 0 {
					runStart = i
				}
				continue
			}
			if runStart >= 0 {
				runLen := i - runStart
				if runLen >= 2 {
					mid := runStart + runLen/2
					schedule.Set(member.ID, dates[mid], model.ShiftNormal)
					mutations++
				}
				runStart = -1
			}
		}
	}
	return mutations
}

// applyExternalOverrides 外部日历覆盖
// 提供方出错按无覆盖处理，不影响已生成的班表
func (g *Generator) applyExternalOverrides(ctx context.Context, schedule model.Schedule, dates model.DateRange) int {
	if g.overrides == nil {
		return 0
	}
	overrides, err := g.overrides.Overrides(ctx, dates)
	if err != nil {
		logger.Warn().Err(err).Msg("外部覆盖获取失败，跳过覆盖趟")
		return 0
	}

	mutations := 0
	for date, byStaff := range overrides {
		for staffID, value := range byStaff {
			if schedule.Get(staffID, date) != value {
				schedule.Set(staffID, date, value)
				mutations++
			}
		}
	}
	return mutations
}

// wouldExceedWeeklyLimit 检查在某日期置休是否会突破7天滑动窗口上限
// 必须检查包含该日期的每一个窗口
func (g *Generator) wouldExceedWeeklyLimit(schedule model.Schedule, staffID, date string, dates model.DateRange) bool {
	limit := g.settings.MaxOffPerWeek
	if limit <= 0 {
		return false
	}

	idx := -1
	for i, d := range dates {
		if d == date {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	for start := idx - 6; start <= idx; start++ {
		if start < 0 {
			continue
		}
		end := start + 7
		if end > len(dates) {
			end = len(dates)
		}
		count := 1 // 拟放置的休
		for i := start; i < end; i++ {
			if i == idx {
				continue
			}
			if schedule.Get(staffID, dates[i]) == model.ShiftOff {
				count++
			}
		}
		if count > limit {
			return true
		}
	}
	return false
}

// wouldConflictWithGroup 检查某员工在某日期置休/早班是否与同组成员的休/早班冲突
func (g *Generator) wouldConflictWithGroup(schedule model.Schedule, staffID, date string) bool {
	group := g.settings.GroupOf(staffID)
	if group == nil {
		return false
	}
	for _, id := range group.MemberIDs {
		if id == staffID {
			continue
		}
		val := schedule.Get(id, date)
		if val == model.ShiftOff || val == model.ShiftEarly {
			return true
		}
	}
	return false
}

// hasAdjacentOff 检查相邻日期是否已是休（禁止两天连休）
func (g *Generator) hasAdjacentOff(schedule model.Schedule, staffID, date string) bool {
	return schedule.Get(staffID, model.PrevDate(date)) == model.ShiftOff ||
		schedule.Get(staffID, model.NextDate(date)) == model.ShiftOff
}

// hasNearbyRestConflict 2天回看检查
// 早班不允许紧邻休（前后各看两天内的直接相邻位置）
func (g *Generator) hasNearbyRestConflict(schedule model.Schedule, staffID, date string) bool {
	prev := model.PrevDate(date)
	next := model.NextDate(date)
	if schedule.Get(staffID, prev) == model.ShiftOff || schedule.Get(staffID, next) == model.ShiftOff {
		return true
	}
	// 再往外一天仍为休且中间是早班时，避免形成 休-早-早 模式
	prev2 := model.PrevDate(prev)
	if schedule.Get(staffID, prev2) == model.ShiftOff && schedule.Get(staffID, prev) == model.ShiftEarly {
		return true
	}
	return false
}

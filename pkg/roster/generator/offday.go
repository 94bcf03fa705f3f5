// Package generator 提供规则驱动的班表生成器
package generator

import (
	"github.com/banbiao/banbiao/pkg/model"
)

// offCandidate 休息日候选
type offCandidate struct {
	date    string
	weekend bool
}

// distributeOffDays 休息日分配
//
// 每个员工的目标休息天数 = 月度上限 - 安全余量。候选池取仍为空白的
// 单元格，周末日期权重更高：先周末档后平日档，档内 Fisher-Yates 打散，
// 并对每个员工施加随机起始偏移，避免多名员工在相同日期上同步。
// 贪心选取时带前瞻窗口评分：距离该日期全局休息容量越远越优，周末加分；
// 触发每周上限或产生两天连休的候选直接拒绝。候选池耗尽时提前结束，
// 接受未达标的目标而不是突破每周上限
func (g *Generator) distributeOffDays(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) int {
	mutations := 0

	// 全局每日休息容量：容量 = 总人数 - 当日出勤下限
	offCounts := make(map[string]int, len(dates))
	capacities := make(map[string]int, len(dates))
	for _, date := range dates {
		capacity := len(staff) - g.settings.MinCoverageFor(date)
		if capacity < 0 {
			capacity = 0
		}
		capacities[date] = capacity
		for _, member := range staff {
			if schedule.Get(member.ID, date) == model.ShiftOff {
				offCounts[date]++
			}
		}
	}

	for _, member := range staff {
		target := g.offTarget(schedule, member, dates)
		if target <= 0 {
			continue
		}

		pool := g.buildCandidatePool(schedule, member, dates)
		assigned := 0

		for assigned < target && len(pool) > 0 {
			pick := g.pickBestCandidate(pool, offCounts, capacities)
			if pick < 0 {
				break
			}
			date := pool[pick].date
			pool = append(pool[:pick], pool[pick+1:]...)

			if schedule.Get(member.ID, date) != model.ShiftBlank {
				continue
			}
			if g.wouldConflictWithGroup(schedule, member.ID, date) {
				continue
			}
			if g.wouldExceedWeeklyLimit(schedule, member.ID, date, dates) {
				// 连续无休压力大时以早班替代（仅限允许早班的员工）
				if g.restStreakBefore(schedule, member, date, dates) >= g.opts.RestPressureDays &&
					member.CanTakeEarly() &&
					!g.hasNearbyRestConflict(schedule, member.ID, date) {
					schedule.Set(member.ID, date, model.ShiftEarly)
					mutations++
				}
				continue
			}
			if g.hasAdjacentOff(schedule, member.ID, date) {
				continue
			}

			schedule.Set(member.ID, date, model.ShiftOff)
			offCounts[date]++
			assigned++
			mutations++
		}
	}
	return mutations
}

// offTarget 计算员工的目标休息天数
// 扣除已由优先规则等前序趟放置的休
func (g *Generator) offTarget(schedule model.Schedule, member *model.StaffMember, dates model.DateRange) int {
	target := g.settings.MaxOffPerMonth - g.opts.OffTargetMargin
	if target < 0 {
		target = 0
	}
	if target > len(dates) {
		target = len(dates)
	}
	already := schedule.CountValue(member.ID, dates, model.ShiftOff)
	return target - already
}

// buildCandidatePool 构建候选池
// 周末档在前、平日档在后，各档内 Fisher-Yates 打散，
// 整体再按员工施加随机起始偏移
func (g *Generator) buildCandidatePool(schedule model.Schedule, member *model.StaffMember, dates model.DateRange) []offCandidate {
	var weekends, weekdays []offCandidate
	for _, date := range dates {
		if !member.IsActiveOn(date) {
			continue
		}
		if schedule.Get(member.ID, date) != model.ShiftBlank {
			continue
		}
		c := offCandidate{date: date, weekend: model.IsWeekend(date)}
		if c.weekend {
			weekends = append(weekends, c)
		} else {
			weekdays = append(weekdays, c)
		}
	}

	g.shuffle(weekends)
	g.shuffle(weekdays)

	pool := append(weekends, weekdays...)
	if len(pool) > 1 {
		offset := g.rng.Intn(len(pool))
		pool = append(pool[offset:], pool[:offset]...)
	}
	return pool
}

// shuffle Fisher-Yates 洗牌
func (g *Generator) shuffle(candidates []offCandidate) {
	for i := len(candidates) - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
}

// pickBestCandidate 在前瞻窗口内评分选优
// 评分 = 该日剩余休息容量 + 周末加分；容量已满的候选不选
func (g *Generator) pickBestCandidate(pool []offCandidate, offCounts, capacities map[string]int) int {
	window := g.opts.Lookahead
	if window <= 0 || window > len(pool) {
		window = len(pool)
	}

	best := -1
	bestScore := -1
	for i := 0; i < window; i++ {
		c := pool[i]
		headroom := capacities[c.date] - offCounts[c.date]
		if headroom <= 0 {
			continue
		}
		score := headroom
		if c.weekend {
			score += g.opts.WeekendBonus
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 && window < len(pool) {
		// 前瞻窗口内全部容量已满时顺延到窗口外首个候选
		best = window
	}
	return best
}

// restStreakBefore 截至某日期（不含）已连续多少天没有任何休息值
func (g *Generator) restStreakBefore(schedule model.Schedule, member *model.StaffMember, date string, dates model.DateRange) int {
	idx := -1
	for i, d := range dates {
		if d == date {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return 0
	}

	streak := 0
	for i := idx - 1; i >= 0; i-- {
		if schedule.Get(member.ID, dates[i]).IsRest() {
			break
		}
		streak++
	}
	return streak
}

// Package validator 提供班表的多类别约束验证
package validator

import (
	"fmt"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/model"
)

// Validator 约束验证器
// Validate 为纯函数：不修改班表，所有检查独立执行并累积结果
type Validator struct {
	settings *catalog.Settings
}

// New 创建验证器，settings 为 nil 时使用内置默认目录
func New(settings *catalog.Settings) *Validator {
	if settings == nil {
		settings = catalog.Defaults()
	}
	return &Validator{settings: settings}
}

// Validate 验证班表
// 各检查互不短路：即使前面的检查已发现违规，后续检查仍全部执行
func (v *Validator) Validate(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) *model.ValidationResult {
	var violations []model.Violation

	violations = append(violations, v.checkMonthlyOffLimit(schedule, staff, dates)...)
	violations = append(violations, v.checkWeeklyOffLimit(schedule, staff, dates)...)
	violations = append(violations, v.checkDailyOffLimit(schedule, staff, dates)...)
	violations = append(violations, v.checkGroupConflict(schedule, staff, dates)...)
	violations = append(violations, v.checkPriorityRules(schedule, dates)...)
	violations = append(violations, v.checkCoverageCompensation(schedule, staff, dates)...)
	violations = append(violations, v.checkMinimumCoverage(schedule, staff, dates)...)
	violations = append(violations, v.checkConsecutiveOffRuns(schedule, staff, dates)...)
	violations = append(violations, v.checkProximityPatterns(schedule, dates)...)
	violations = append(violations, v.checkConsecutiveWorkDays(schedule, staff, dates)...)
	violations = append(violations, v.checkWeekendCoverage(schedule, staff, dates)...)

	return model.NewValidationResult(violations)
}

// checkMonthlyOffLimit 月度休息次数上限
// 目录可将检查范围限定到特定在职形态
func (v *Validator) checkMonthlyOffLimit(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation
	limit := v.settings.MaxOffPerMonth
	if limit <= 0 {
		return nil
	}

	for _, member := range staff {
		if !v.settings.MonthlyLimitApplies(member.Status) {
			continue
		}
		count := schedule.CountValue(member.ID, dates, model.ShiftOff)
		if count > limit {
			violations = append(violations, model.Violation{
				Type:     model.ViolationMonthlyOffLimit,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("员工 %s 本期休息 %d 天，超过月度上限 %d 天", member.Name, count, limit),
				Details: model.ViolationDetails{
					StaffID: member.ID,
					Count:   count,
					Limit:   limit,
				},
				Suggestion: "将超出的休息日改为正常班",
			})
		}
	}
	return violations
}

// checkWeeklyOffLimit 任意7天滑动窗口内的休息次数上限
// 必须检查覆盖每一天的所有窗口，而不只是对齐自然周的窗口
func (v *Validator) checkWeeklyOffLimit(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation
	limit := v.settings.MaxOffPerWeek
	if limit <= 0 || len(dates) == 0 {
		return nil
	}

	for _, member := range staff {
		// 每个窗口最多上报一次，且相邻重叠窗口只报首个越界窗口
		reported := make(map[string]bool)
		for start := 0; start < len(dates); start++ {
			end := start + 7
			if end > len(dates) {
				end = len(dates)
			}
			window := dates[start:end]
			if len(window) < 2 {
				continue
			}
			count := schedule.CountValue(member.ID, window, model.ShiftOff)
			if count > limit {
				key := window[len(window)-1]
				if reported[key] {
					continue
				}
				reported[key] = true
				violations = append(violations, model.Violation{
					Type:     model.ViolationWeeklyOffLimit,
					Severity: model.SeverityHigh,
					Message:  fmt.Sprintf("员工 %s 在 %s 起的7天窗口内休息 %d 天，超过上限 %d 天", member.Name, window[0], count, limit),
					Details: model.ViolationDetails{
						StaffID:   member.ID,
						Date:      window[0],
						WindowEnd: key,
						Count:     count,
						Limit:     limit,
					},
					Suggestion: "调整窗口内的休息日分布",
				})
			}
		}
	}
	return violations
}

// checkDailyOffLimit 单日全员休息人数上限
func (v *Validator) checkDailyOffLimit(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation
	limit := v.settings.MaxOffPerDay
	if limit <= 0 {
		return nil
	}

	for _, date := range dates {
		count := 0
		for _, member := range staff {
			if schedule.Get(member.ID, date) == model.ShiftOff {
				count++
			}
		}
		if count > limit {
			violations = append(violations, model.Violation{
				Type:     model.ViolationDailyOffLimit,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("%s 当日休息 %d 人，超过上限 %d 人", date, count, limit),
				Details: model.ViolationDetails{
					Date:  date,
					Count: count,
					Limit: limit,
				},
			})
		}
	}
	return violations
}

// checkGroupConflict 分组互斥：同组同日最多一人休/早班
func (v *Validator) checkGroupConflict(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation

	for _, group := range v.settings.StaffGroups {
		for _, date := range dates {
			count := 0
			for _, staffID := range group.MemberIDs {
				val := schedule.Get(staffID, date)
				if val == model.ShiftOff || val == model.ShiftEarly {
					count++
				}
			}
			if count > 1 {
				violations = append(violations, model.Violation{
					Type:     model.ViolationGroupConflict,
					Severity: model.SeverityHigh,
					Message:  fmt.Sprintf("分组 %s 在 %s 有 %d 人同时休/早班，最多允许1人", group.Name, date, count),
					Details: model.ViolationDetails{
						GroupID: group.ID,
						Date:    date,
						Count:   count,
						Limit:   1,
					},
					Suggestion: "保留一人休息，其余改为正常班",
				})
			}
		}
	}
	return violations
}

// checkPriorityRules 偏好规则符合度
// 仅检查 preferred 规则；avoided 规则由生成器保证，验证阶段不重复上报
func (v *Validator) checkPriorityRules(schedule model.Schedule, dates model.DateRange) []model.Violation {
	var violations []model.Violation

	for _, rule := range v.settings.PriorityRules {
		if rule.Directive != model.DirectivePreferred {
			continue
		}
		for _, date := range dates {
			for _, staffID := range rule.StaffIDs {
				if !rule.AppliesTo(staffID, date) {
					continue
				}
				actual := schedule.Get(staffID, date)
				if actual != rule.Target {
					violations = append(violations, model.Violation{
						Type:     model.ViolationPriorityRule,
						Severity: model.SeverityMedium,
						Message:  fmt.Sprintf("员工 %s 在 %s 应为 %s，实际为 %s", staffID, date, rule.Target, actual),
						Details: model.ViolationDetails{
							StaffID: staffID,
							Date:    date,
						},
						Suggestion: "将单元格改为规则目标值",
					})
				}
			}
		}
	}
	return violations
}

// checkCoverageCompensation 覆盖补偿：触发成员休息时替补不得同休
func (v *Validator) checkCoverageCompensation(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation

	for _, group := range v.settings.StaffGroups {
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
			if triggered && schedule.Get(group.BackupID, date) == model.ShiftOff {
				violations = append(violations, model.Violation{
					Type:     model.ViolationCoverageCompensation,
					Severity: model.SeverityHigh,
					Message:  fmt.Sprintf("分组 %s 在 %s 有成员休息，替补 %s 不得同时休息", group.Name, date, group.BackupID),
					Details: model.ViolationDetails{
						GroupID: group.ID,
						StaffID: group.BackupID,
						Date:    date,
					},
					Suggestion: "将替补员工改为正常班",
				})
			}
		}
	}
	return violations
}

// checkMinimumCoverage 每日出勤人数下限（按工作日/周末分档）
func (v *Validator) checkMinimumCoverage(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation

	for _, date := range dates {
		min := v.settings.MinCoverageFor(date)
		if min <= 0 {
			continue
		}
		working := schedule.WorkingCount(date, staff)
		if working < min {
			violations = append(violations, model.Violation{
				Type:     model.ViolationInsufficientCoverage,
				Severity: model.SeverityCritical,
				Message:  fmt.Sprintf("%s 仅 %d 人在岗，低于下限 %d 人", date, working, min),
				Details: model.ViolationDetails{
					Date:  date,
					Count: working,
					Limit: min,
				},
				Suggestion: "将部分休息日改为正常班",
			})
		}
	}
	return violations
}

// checkConsecutiveOffRuns 连续休息天数上限
func (v *Validator) checkConsecutiveOffRuns(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation
	limit := v.settings.MaxConsecutiveOffDays
	if limit <= 0 {
		return nil
	}

	for _, member := range staff {
		run := 0
		runStart := ""
		for i, date := range dates {
			if schedule.Get(member.ID, date) == model.ShiftOff {
				if run == 0 {
					runStart = date
				}
				run++
			} else {
				if run > limit {
					violations = append(violations, v.consecutiveOffViolation(member, runStart, run, limit))
				}
				run = 0
			}
			// 范围末端仍处于连休中的情况
			if i == len(dates)-1 && run > limit {
				violations = append(violations, v.consecutiveOffViolation(member, runStart, run, limit))
			}
		}
	}
	return violations
}

// consecutiveOffViolation 构造连续休息违规
func (v *Validator) consecutiveOffViolation(member *model.StaffMember, start string, run, limit int) model.Violation {
	return model.Violation{
		Type:     model.ViolationConsecutiveOffDays,
		Severity: model.SeverityMedium,
		Message:  fmt.Sprintf("员工 %s 自 %s 起连续休息 %d 天，超过上限 %d 天", member.Name, start, run, limit),
		Details: model.ViolationDetails{
			StaffID: member.ID,
			Date:    start,
			Count:   run,
			Limit:   limit,
		},
		Suggestion: "打断连休，将中间日改为正常班",
	}
}

// checkProximityPatterns 联动休息距离
// 目标员工的每个休息日须落在触发员工某个休息日的配置距离内
func (v *Validator) checkProximityPatterns(schedule model.Schedule, dates model.DateRange) []model.Violation {
	var violations []model.Violation

	for _, pair := range v.settings.ProximityPairs {
		var triggerOffs []string
		for _, date := range dates {
			if schedule.Get(pair.TriggerStaffID, date) == model.ShiftOff {
				triggerOffs = append(triggerOffs, date)
			}
		}
		if len(triggerOffs) == 0 {
			continue
		}

		for _, date := range dates {
			if schedule.Get(pair.TargetStaffID, date) != model.ShiftOff {
				continue
			}
			within := false
			for _, t := range triggerOffs {
				if d := model.DaysBetween(date, t); d >= 0 && d <= pair.MaxDistance {
					within = true
					break
				}
			}
			if !within {
				violations = append(violations, model.Violation{
					Type:     model.ViolationProximityPattern,
					Severity: model.SeverityLow,
					Message:  fmt.Sprintf("员工 %s 在 %s 的休息日距员工 %s 的休息日超过 %d 天", pair.TargetStaffID, date, pair.TriggerStaffID, pair.MaxDistance),
					Details: model.ViolationDetails{
						StaffID: pair.TargetStaffID,
						Date:    date,
						Limit:   pair.MaxDistance,
					},
				})
			}
		}
	}
	return violations
}

// checkConsecutiveWorkDays 劳动法最大连续工作天数
// 遇到任何非在岗值即重置计数；范围末端仍未闭合的连班同样检查
func (v *Validator) checkConsecutiveWorkDays(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation
	limit := v.settings.MaxConsecutiveWorkDays
	if limit <= 0 {
		return nil
	}

	for _, member := range staff {
		streak := 0
		streakStart := ""
		for i, date := range dates {
			if schedule.Get(member.ID, date).IsWorking(member.Status) {
				if streak == 0 {
					streakStart = date
				}
				streak++
			} else {
				if streak > limit {
					violations = append(violations, v.laborLawViolation(member, streakStart, streak, limit))
				}
				streak = 0
			}
			// 范围末端仍未闭合的连班
			if i == len(dates)-1 && streak > limit {
				violations = append(violations, v.laborLawViolation(member, streakStart, streak, limit))
				streak = 0
			}
		}
	}
	return violations
}

// laborLawViolation 构造劳动法违规
func (v *Validator) laborLawViolation(member *model.StaffMember, start string, streak, limit int) model.Violation {
	return model.Violation{
		Type:     model.ViolationLaborLaw,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("员工 %s 自 %s 起连续工作 %d 天，超过法定上限 %d 天", member.Name, start, streak, limit),
		Details: model.ViolationDetails{
			StaffID: member.ID,
			Date:    start,
			Count:   streak,
			Limit:   limit,
		},
		Suggestion: "在连班中插入休息日",
	}
}

// checkWeekendCoverage 周末出勤人数下限（单独上报类型）
func (v *Validator) checkWeekendCoverage(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) []model.Violation {
	var violations []model.Violation
	min := v.settings.MinCoverageWeekend
	if min <= 0 {
		return nil
	}

	for _, date := range dates {
		if !model.IsWeekend(date) {
			continue
		}
		working := schedule.WorkingCount(date, staff)
		if working < min {
			violations = append(violations, model.Violation{
				Type:     model.ViolationWeekendCoverage,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("周末 %s 仅 %d 人在岗，低于下限 %d 人", date, working, min),
				Details: model.ViolationDetails{
					Date:  date,
					Count: working,
					Limit: min,
				},
			})
		}
	}
	return violations
}

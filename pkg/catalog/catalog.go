// Package catalog 提供约束目录（外部配置提供方的只读快照）
package catalog

import (
	"time"

	"github.com/banbiao/banbiao/pkg/model"
)

// Settings 约束目录快照
// 每次刷新产生新的不可变快照，引擎内部只读，避免并发撕裂读
type Settings struct {
	Version   int64     `json:"version"`
	FetchedAt time.Time `json:"fetched_at"`

	// 休息次数上限
	MaxOffPerMonth int `json:"max_off_per_month"` // 月度上限
	MaxOffPerWeek  int `json:"max_off_per_week"`  // 任意7天滑动窗口上限
	MaxOffPerDay   int `json:"max_off_per_day"`   // 单日全员休息上限，0 表示不限

	// 月度上限的适用范围，空表示全员适用
	MonthlyLimitStatuses []model.StaffStatus `json:"monthly_limit_statuses,omitempty"`

	// 出勤下限
	MinCoverageWeekday int `json:"min_coverage_weekday"`
	MinCoverageWeekend int `json:"min_coverage_weekend"`

	// 休息模式限制
	MaxConsecutiveOffDays  int `json:"max_consecutive_off_days"`
	MaxConsecutiveWorkDays int `json:"max_consecutive_work_days"` // 劳动法上限
	RestWindowDays         int `json:"rest_window_days"`          // 强制休息扫描窗口

	// 分组与规则
	StaffGroups   []*model.StaffGroup   `json:"staff_groups,omitempty"`
	PriorityRules []*model.PriorityRule `json:"priority_rules,omitempty"`

	// 联动休息：目标员工的休息日须落在触发员工休息日的配置距离内
	ProximityPairs []ProximityPair `json:"proximity_pairs,omitempty"`
}

// ProximityPair 联动休息配置
type ProximityPair struct {
	TriggerStaffID string `json:"trigger_staff_id"`
	TargetStaffID  string `json:"target_staff_id"`
	MaxDistance    int    `json:"max_distance"` // 天数
}

// Defaults 返回内置默认目录
// 外部配置缺失或部分缺失时逐字段回退到这里，不使请求失败
func Defaults() *Settings {
	return &Settings{
		Version:                0,
		FetchedAt:              time.Now(),
		MaxOffPerMonth:         9,
		MaxOffPerWeek:          2,
		MaxOffPerDay:           0,
		MinCoverageWeekday:     3,
		MinCoverageWeekend:     2,
		MaxConsecutiveOffDays:  1,
		MaxConsecutiveWorkDays: 6,
		RestWindowDays:         5,
	}
}

// MonthlyLimitApplies 检查月度上限是否适用于某在职形态
func (s *Settings) MonthlyLimitApplies(status model.StaffStatus) bool {
	if len(s.MonthlyLimitStatuses) == 0 {
		return true
	}
	for _, st := range s.MonthlyLimitStatuses {
		if st == status {
			return true
		}
	}
	return false
}

// MinCoverageFor 返回某日期的出勤下限
func (s *Settings) MinCoverageFor(date string) int {
	if model.IsWeekend(date) {
		return s.MinCoverageWeekend
	}
	return s.MinCoverageWeekday
}

// GroupOf 返回包含某员工的第一个分组，无则返回 nil
func (s *Settings) GroupOf(staffID string) *model.StaffGroup {
	for _, g := range s.StaffGroups {
		if g.HasMember(staffID) {
			return g
		}
	}
	return nil
}

// merge 以默认值补齐缺失字段，产生完整快照
func merge(partial *Settings) *Settings {
	def := Defaults()
	if partial == nil {
		return def
	}
	merged := *partial
	if merged.MaxOffPerMonth <= 0 {
		merged.MaxOffPerMonth = def.MaxOffPerMonth
	}
	if merged.MaxOffPerWeek <= 0 {
		merged.MaxOffPerWeek = def.MaxOffPerWeek
	}
	if merged.MinCoverageWeekday <= 0 {
		merged.MinCoverageWeekday = def.MinCoverageWeekday
	}
	if merged.MinCoverageWeekend <= 0 {
		merged.MinCoverageWeekend = def.MinCoverageWeekend
	}
	if merged.MaxConsecutiveOffDays <= 0 {
		merged.MaxConsecutiveOffDays = def.MaxConsecutiveOffDays
	}
	if merged.MaxConsecutiveWorkDays <= 0 {
		merged.MaxConsecutiveWorkDays = def.MaxConsecutiveWorkDays
	}
	if merged.RestWindowDays <= 0 {
		merged.RestWindowDays = def.RestWindowDays
	}
	return &merged
}

// Package constraints 约束库定义
package constraints

import "github.com/banbiao/banbiao/pkg/model"

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool, array
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Severity    string            `json:"severity"` // critical/high/medium/low
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Correctable bool              `json:"correctable"` // 修正引擎是否可自动修正
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// GetLibrary 获取校验器支持的全部约束定义
func GetLibrary() []ConstraintDefinition {
	return []ConstraintDefinition{
		// =====================================================
		// 休假额度类
		// =====================================================
		{
			Name:        string(model.ViolationMonthlyOffLimit),
			DisplayName: "月休上限",
			Severity:    string(model.SeverityHigh),
			Category:    "休假额度",
			Description: "限制适用状态员工在排班周期内的休假总天数，超出视为违规。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "max_off_per_month", Type: "int", Description: "每月最大休假天数", Default: "9", Min: "0", Max: "15"},
				{Name: "applies_to", Type: "array", Description: "适用员工状态", Default: "full_time"},
			},
		},
		{
			Name:        string(model.ViolationWeeklyOffLimit),
			DisplayName: "周休上限",
			Severity:    string(model.SeverityHigh),
			Category:    "休假额度",
			Description: "任意连续7天窗口内的休假天数不得超过上限，按滑动窗口检查。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "max_off_per_week", Type: "int", Description: "滑动7天窗口最大休假天数", Default: "2", Min: "0", Max: "7"},
			},
		},
		{
			Name:        string(model.ViolationDailyOffLimit),
			DisplayName: "单日休假上限",
			Severity:    string(model.SeverityHigh),
			Category:    "休假额度",
			Description: "限制同一天休假的员工总数，0表示不限制。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "max_off_per_day", Type: "int", Description: "单日最大休假人数", Default: "0", Min: "0", Max: "50"},
			},
		},

		// =====================================================
		// 班组协同类
		// =====================================================
		{
			Name:        string(model.ViolationGroupConflict),
			DisplayName: "班组同休冲突",
			Severity:    string(model.SeverityHigh),
			Category:    "班组协同",
			Description: "同一班组的成员不允许在同一天同时休假，保证组内始终有人在岗。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "groups", Type: "array", Description: "班组成员列表"},
			},
		},
		{
			Name:        string(model.ViolationCoverageCompensation),
			DisplayName: "顶班补位",
			Severity:    string(model.SeverityHigh),
			Category:    "班组协同",
			Description: "班组成员休假当天，指定的补位人必须在岗顶班。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "backup_id", Type: "string", Description: "补位人员ID"},
			},
		},
		{
			Name:        string(model.ViolationProximityPattern),
			DisplayName: "临近休假模式",
			Severity:    string(model.SeverityLow),
			Category:    "班组协同",
			Description: "指定员工对的休假日期不得过于接近，用于错峰安排。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "max_distance", Type: "int", Description: "最小间隔天数", Default: "1", Min: "0", Max: "7"},
			},
		},

		// =====================================================
		// 偏好规则类
		// =====================================================
		{
			Name:        string(model.ViolationPriorityRule),
			DisplayName: "优先级规则",
			Severity:    string(model.SeverityMedium),
			Category:    "偏好规则",
			Description: "按星期几为指定员工偏好或回避某类班次，带例外日期列表。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "weekday", Type: "int", Description: "星期几(0=周日)", Min: "0", Max: "6"},
				{Name: "directive", Type: "string", Description: "preferred 或 avoided", Default: "preferred"},
				{Name: "target", Type: "string", Description: "目标班次值"},
				{Name: "weight", Type: "int", Description: "规则权重", Default: "50", Min: "0", Max: "100"},
				{Name: "exceptions", Type: "array", Description: "例外日期列表"},
			},
		},

		// =====================================================
		// 在岗覆盖类
		// =====================================================
		{
			Name:        string(model.ViolationInsufficientCoverage),
			DisplayName: "在岗人数不足",
			Severity:    string(model.SeverityCritical),
			Category:    "在岗覆盖",
			Description: "每天的在岗人数不得低于最低覆盖要求，工作日与周末分别设置。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "min_coverage_weekday", Type: "int", Description: "工作日最低在岗人数", Default: "3", Min: "0", Max: "50"},
				{Name: "min_coverage_weekend", Type: "int", Description: "周末最低在岗人数", Default: "2", Min: "0", Max: "50"},
			},
		},
		{
			Name:        string(model.ViolationWeekendCoverage),
			DisplayName: "周末覆盖",
			Severity:    string(model.SeverityHigh),
			Category:    "在岗覆盖",
			Description: "周末在岗人数单独校验，防止休假集中在周末导致缺岗。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "min_coverage_weekend", Type: "int", Description: "周末最低在岗人数", Default: "2", Min: "0", Max: "50"},
			},
		},

		// =====================================================
		// 劳动保障类
		// =====================================================
		{
			Name:        string(model.ViolationConsecutiveOffDays),
			DisplayName: "连续休假限制",
			Severity:    string(model.SeverityMedium),
			Category:    "劳动保障",
			Description: "限制员工连续休假的天数，避免长段连休影响排班均衡。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "max_consecutive_off", Type: "int", Description: "最大连续休假天数", Default: "1", Min: "1", Max: "7"},
			},
		},
		{
			Name:        string(model.ViolationLaborLaw),
			DisplayName: "连续工作上限",
			Severity:    string(model.SeverityCritical),
			Category:    "劳动保障",
			Description: "员工连续工作天数不得超过法定上限，超限必须插入休假日。",
			Correctable: true,
			Params: []ConstraintParam{
				{Name: "max_consecutive_work", Type: "int", Description: "最大连续工作天数", Default: "6", Min: "1", Max: "12"},
			},
		},
	}
}

// GetDefinition 按名称查找约束定义
func GetDefinition(name string) (ConstraintDefinition, bool) {
	for _, def := range GetLibrary() {
		if def.Name == name {
			return def, true
		}
	}
	return ConstraintDefinition{}, false
}

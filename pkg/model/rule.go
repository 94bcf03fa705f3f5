// Package model 定义班表引擎的核心数据模型
package model

import "time"

// RuleDirective 优先规则指令
type RuleDirective string

const (
	DirectivePreferred RuleDirective = "preferred" // 偏好：单元格必须为目标值
	DirectiveAvoided   RuleDirective = "avoided"   // 回避：单元格不得为目标值
)

// PriorityRule 优先规则
// 按员工与星期匹配；回避规则可配置允许的替代值集合，
// 未配置则命中时清回空白
type PriorityRule struct {
	ID         string        `json:"id"`
	StaffIDs   []string      `json:"staff_ids"`
	Weekday    time.Weekday  `json:"weekday"`
	Directive  RuleDirective `json:"directive"`
	Target     ShiftValue    `json:"target"`
	Weight     int           `json:"weight"` // 1-100
	Exceptions []ShiftValue  `json:"exceptions,omitempty"`
}

// AppliesTo 检查规则是否作用于某员工某日期
func (r *PriorityRule) AppliesTo(staffID, date string) bool {
	if Weekday(date) != r.Weekday {
		return false
	}
	for _, id := range r.StaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// RulesForStaff 过滤出作用于某员工的规则
func RulesForStaff(rules []*PriorityRule, staffID string) []*PriorityRule {
	var result []*PriorityRule
	for _, r := range rules {
		for _, id := range r.StaffIDs {
			if id == staffID {
				result = append(result, r)
				break
			}
		}
	}
	return result
}

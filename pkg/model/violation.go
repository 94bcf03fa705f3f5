// Package model 定义班表引擎的核心数据模型
package model

// ViolationType 违规类型（封闭分类）
type ViolationType string

const (
	ViolationMonthlyOffLimit      ViolationType = "monthly_off_limit"      // 月度休息上限
	ViolationWeeklyOffLimit       ViolationType = "weekly_off_limit"       // 周滑动窗口休息上限
	ViolationDailyOffLimit        ViolationType = "daily_off_limit"        // 单日休息上限
	ViolationGroupConflict        ViolationType = "group_conflict"         // 分组互斥冲突
	ViolationPriorityRule         ViolationType = "priority_rule"          // 优先规则未满足
	ViolationCoverageCompensation ViolationType = "coverage_compensation"  // 覆盖补偿未满足
	ViolationInsufficientCoverage ViolationType = "insufficient_coverage"  // 出勤人数不足
	ViolationConsecutiveOffDays   ViolationType = "consecutive_off_days"   // 连续休息天数超限
	ViolationProximityPattern     ViolationType = "proximity_pattern"      // 联动休息距离超限
	ViolationLaborLaw             ViolationType = "labor_law"              // 劳动法连续工作天数超限
	ViolationWeekendCoverage      ViolationType = "weekend_coverage"       // 周末出勤人数不足
)

// Severity 违规严重程度
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityOrder 严重程度排序值（越小越严重）
var severityOrder = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank 返回严重程度排序值，未知按最低处理
func (s Severity) Rank() int {
	if r, ok := severityOrder[s]; ok {
		return r
	}
	return len(severityOrder)
}

// Violation 约束违规
// 以数据而非异常的形式向调用方暴露
type Violation struct {
	Type       ViolationType    `json:"type"`
	Severity   Severity         `json:"severity"`
	Message    string           `json:"message"`
	Details    ViolationDetails `json:"details"`
	Suggestion string           `json:"suggestion,omitempty"`
}

// ViolationDetails 违规结构化详情
type ViolationDetails struct {
	StaffID   string `json:"staff_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	Date      string `json:"date,omitempty"`
	WindowEnd string `json:"window_end,omitempty"` // 滑动窗口末端日期
	Count     int    `json:"count,omitempty"`      // 实际计数
	Limit     int    `json:"limit,omitempty"`      // 配置上限/下限
}

// ValidationResult 验证结果
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Violations  []Violation       `json:"violations"`
	Summary     map[Severity]int  `json:"summary"`
	HasCritical bool              `json:"has_critical"`
}

// NewValidationResult 由违规列表汇总验证结果
func NewValidationResult(violations []Violation) *ValidationResult {
	result := &ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
		Summary:    make(map[Severity]int),
	}
	for _, v := range violations {
		result.Summary[v.Severity]++
		if v.Severity == SeverityCritical {
			result.HasCritical = true
		}
	}
	return result
}

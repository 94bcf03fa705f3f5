// Package stats 提供班表统计分析功能
package stats

import (
	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖情况
	TotalDays       int     `json:"total_days"`       // 统计天数
	CoveredDays     int     `json:"covered_days"`     // 达到最低在岗要求的天数
	OverallCoverage float64 `json:"overall_coverage"` // 达标率 (%)

	// 按日期统计
	DailyCoverage map[string]DayCoverage `json:"daily_coverage"`

	// 问题识别
	Understaffed []UnderstaffedDay `json:"understaffed,omitempty"` // 在岗不足的日期
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	Weekend      bool    `json:"weekend"`
	Working      int     `json:"working"`  // 在岗人数
	Off          int     `json:"off"`      // 休假人数
	Required     int     `json:"required"` // 最低在岗要求
	CoverageRate float64 `json:"coverage_rate"`
}

// UnderstaffedDay 在岗不足的日期
type UnderstaffedDay struct {
	Date     string `json:"date"`
	Required int    `json:"required"`
	Working  int    `json:"working"`
	Shortage int    `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	settings *catalog.Settings
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(settings *catalog.Settings) *CoverageAnalyzer {
	if settings == nil {
		settings = catalog.Defaults()
	}
	return &CoverageAnalyzer{settings: settings}
}

// Analyze 统计班表的每日在岗覆盖情况
func (c *CoverageAnalyzer) Analyze(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) *CoverageMetrics {
	metrics := &CoverageMetrics{
		TotalDays:     len(dates),
		DailyCoverage: make(map[string]DayCoverage, len(dates)),
	}

	for _, date := range dates {
		working := 0
		off := 0
		for _, member := range staff {
			value := schedule.Get(member.ID, date).Effective(member.Status)
			if value.CountsForCoverage(member.Status) {
				working++
			}
			if value == model.ShiftOff {
				off++
			}
		}

		required := c.settings.MinCoverageFor(date)
		rate := 100.0
		if required > 0 {
			rate = float64(working) / float64(required) * 100
		}

		metrics.DailyCoverage[date] = DayCoverage{
			Date:         date,
			Weekend:      model.IsWeekend(date),
			Working:      working,
			Off:          off,
			Required:     required,
			CoverageRate: rate,
		}

		if working >= required {
			metrics.CoveredDays++
		} else {
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedDay{
				Date:     date,
				Required: required,
				Working:  working,
				Shortage: required - working,
			})
		}
	}

	if metrics.TotalDays > 0 {
		metrics.OverallCoverage = float64(metrics.CoveredDays) / float64(metrics.TotalDays) * 100
	}

	return metrics
}

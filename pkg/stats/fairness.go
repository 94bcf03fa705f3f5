package stats

import (
	"math"
	"sort"

	"github.com/banbiao/banbiao/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 休假分布
	OffGini     float64 `json:"off_gini"`     // 休假天数基尼系数 (0=绝对均匀)
	OffVariance float64 `json:"off_variance"` // 休假天数方差
	OffMean     float64 `json:"off_mean"`     // 人均休假天数

	// 周末休假分布
	WeekendOffGini float64 `json:"weekend_off_gini"`

	// 极差
	MaxOff int `json:"max_off"`
	MinOff int `json:"min_off"`

	// 综合评分 (0-100，越高越公平)
	OverallScore float64 `json:"overall_score"`

	// 按员工统计
	StaffStats []StaffStat `json:"staff_stats"`
}

// StaffStat 员工维度统计
type StaffStat struct {
	StaffID    string `json:"staff_id"`
	Name       string `json:"name,omitempty"`
	OffDays    int    `json:"off_days"`
	EarlyDays  int    `json:"early_days"`
	WeekendOff int    `json:"weekend_off"`
	Working    int    `json:"working"`
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析班表的休假公平性
func (f *FairnessAnalyzer) Analyze(schedule model.Schedule, staff []*model.StaffMember, dates model.DateRange) *FairnessMetrics {
	metrics := &FairnessMetrics{
		MinOff: math.MaxInt32,
	}

	offCounts := make([]float64, 0, len(staff))
	weekendCounts := make([]float64, 0, len(staff))

	for _, member := range staff {
		stat := StaffStat{StaffID: member.ID, Name: member.Name}
		for _, date := range dates {
			value := schedule.Get(member.ID, date).Effective(member.Status)
			switch value {
			case model.ShiftOff:
				stat.OffDays++
				if model.IsWeekend(date) {
					stat.WeekendOff++
				}
			case model.ShiftEarly:
				stat.EarlyDays++
			}
			if value.CountsForCoverage(member.Status) {
				stat.Working++
			}
		}

		metrics.StaffStats = append(metrics.StaffStats, stat)
		offCounts = append(offCounts, float64(stat.OffDays))
		weekendCounts = append(weekendCounts, float64(stat.WeekendOff))

		if stat.OffDays > metrics.MaxOff {
			metrics.MaxOff = stat.OffDays
		}
		if stat.OffDays < metrics.MinOff {
			metrics.MinOff = stat.OffDays
		}
	}

	if len(staff) == 0 {
		metrics.MinOff = 0
		return metrics
	}

	metrics.OffMean = mean(offCounts)
	metrics.OffVariance = variance(offCounts, metrics.OffMean)
	metrics.OffGini = gini(offCounts)
	metrics.WeekendOffGini = gini(weekendCounts)
	metrics.OverallScore = f.overallScore(metrics)

	return metrics
}

// overallScore 综合公平性评分，基尼系数与极差越小越高
func (f *FairnessAnalyzer) overallScore(m *FairnessMetrics) float64 {
	score := 100.0
	score -= m.OffGini * 100 * 0.5
	score -= m.WeekendOffGini * 100 * 0.3
	score -= float64(m.MaxOff-m.MinOff) * 2
	if score < 0 {
		score = 0
	}
	return score
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// gini 基尼系数，0 表示完全均匀
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}
	if total == 0 {
		return 0
	}

	cumWeighted := 0.0
	for i, v := range sorted {
		cumWeighted += float64(i+1) * v
	}

	return (2*cumWeighted)/(float64(n)*total) - float64(n+1)/float64(n)
}

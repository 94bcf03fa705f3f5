package stats

import (
	"math"
	"testing"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/model"
)

func statsStaff() []*model.StaffMember {
	return []*model.StaffMember{
		{ID: "s1", Name: "甲", Status: model.StatusFullTime},
		{ID: "s2", Name: "乙", Status: model.StatusFullTime},
		{ID: "s3", Name: "丙", Status: model.StatusFullTime},
	}
}

func statsDates(t *testing.T) model.DateRange {
	t.Helper()
	// 2026-03-02 周一 .. 2026-03-08 周日
	dates, err := model.NewDateRange("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("构造日期范围失败: %v", err)
	}
	return dates
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	settings := catalog.Defaults() // 平日3人，周末2人
	analyzer := NewCoverageAnalyzer(settings)
	staff := statsStaff()
	dates := statsDates(t)

	schedule := model.NewSchedule()
	schedule.Set("s1", "2026-03-03", model.ShiftOff) // 周二在岗2 < 3

	metrics := analyzer.Analyze(schedule, staff, dates)

	if metrics.TotalDays != 7 {
		t.Errorf("TotalDays = %d, expected 7", metrics.TotalDays)
	}
	if metrics.CoveredDays != 6 {
		t.Errorf("CoveredDays = %d, expected 6", metrics.CoveredDays)
	}
	if len(metrics.Understaffed) != 1 {
		t.Fatalf("Understaffed 数量 = %d, expected 1", len(metrics.Understaffed))
	}
	short := metrics.Understaffed[0]
	if short.Date != "2026-03-03" || short.Shortage != 1 {
		t.Errorf("缺员记录错误: %+v", short)
	}

	day := metrics.DailyCoverage["2026-03-03"]
	if day.Working != 2 || day.Off != 1 || day.Required != 3 {
		t.Errorf("每日统计错误: %+v", day)
	}
	if math.Abs(day.CoverageRate-66.666) > 0.01 {
		t.Errorf("CoverageRate = %v, expected ~66.67", day.CoverageRate)
	}

	weekend := metrics.DailyCoverage["2026-03-07"]
	if !weekend.Weekend || weekend.Required != 2 {
		t.Errorf("周末档位错误: %+v", weekend)
	}
}

func TestCoverageAnalyzer_ZeroRequired(t *testing.T) {
	settings := &catalog.Settings{} // 下限0时覆盖率按100处理
	analyzer := NewCoverageAnalyzer(settings)

	metrics := analyzer.Analyze(model.NewSchedule(), statsStaff(), statsDates(t))
	if metrics.OverallCoverage != 100 {
		t.Errorf("OverallCoverage = %v, expected 100", metrics.OverallCoverage)
	}
	for _, day := range metrics.DailyCoverage {
		if day.CoverageRate != 100 {
			t.Errorf("%s CoverageRate = %v, expected 100", day.Date, day.CoverageRate)
		}
	}
}

func TestFairnessAnalyzer_UniformDistribution(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	staff := statsStaff()
	dates := statsDates(t)

	// 每人各休1天，完全均匀
	schedule := model.NewSchedule()
	schedule.Set("s1", "2026-03-02", model.ShiftOff)
	schedule.Set("s2", "2026-03-03", model.ShiftOff)
	schedule.Set("s3", "2026-03-04", model.ShiftOff)

	metrics := analyzer.Analyze(schedule, staff, dates)

	if math.Abs(metrics.OffGini) > 1e-9 {
		t.Errorf("均匀分布 OffGini = %v, expected 0", metrics.OffGini)
	}
	if metrics.OffMean != 1 {
		t.Errorf("OffMean = %v, expected 1", metrics.OffMean)
	}
	if metrics.OffVariance != 0 {
		t.Errorf("OffVariance = %v, expected 0", metrics.OffVariance)
	}
	if metrics.MaxOff != 1 || metrics.MinOff != 1 {
		t.Errorf("极差错误: max=%d min=%d", metrics.MaxOff, metrics.MinOff)
	}
	if math.Abs(metrics.OverallScore-100) > 1e-6 {
		t.Errorf("OverallScore = %v, expected 100", metrics.OverallScore)
	}
}

func TestFairnessAnalyzer_SkewedDistribution(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	staff := statsStaff()
	dates := statsDates(t)

	// s1 休3天，其余不休
	schedule := model.NewSchedule()
	schedule.Set("s1", "2026-03-02", model.ShiftOff)
	schedule.Set("s1", "2026-03-04", model.ShiftOff)
	schedule.Set("s1", "2026-03-06", model.ShiftOff)

	metrics := analyzer.Analyze(schedule, staff, dates)

	if metrics.OffGini <= 0 {
		t.Errorf("倾斜分布 OffGini 应大于0, got %v", metrics.OffGini)
	}
	if metrics.MaxOff != 3 || metrics.MinOff != 0 {
		t.Errorf("极差错误: max=%d min=%d", metrics.MaxOff, metrics.MinOff)
	}

	uniform := model.NewSchedule()
	uniform.Set("s1", "2026-03-02", model.ShiftOff)
	uniform.Set("s2", "2026-03-03", model.ShiftOff)
	uniform.Set("s3", "2026-03-04", model.ShiftOff)
	uniformMetrics := analyzer.Analyze(uniform, staff, dates)

	if metrics.OverallScore >= uniformMetrics.OverallScore {
		t.Errorf("倾斜分布评分应低于均匀分布: %v >= %v",
			metrics.OverallScore, uniformMetrics.OverallScore)
	}
}

func TestFairnessAnalyzer_StaffStats(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	staff := statsStaff()
	dates := statsDates(t)

	schedule := model.NewSchedule()
	schedule.Set("s1", "2026-03-02", model.ShiftOff)
	schedule.Set("s1", "2026-03-05", model.ShiftEarly)
	schedule.Set("s1", "2026-03-07", model.ShiftOff) // 周六

	metrics := analyzer.Analyze(schedule, staff, dates)
	if len(metrics.StaffStats) != 3 {
		t.Fatalf("StaffStats 数量 = %d, expected 3", len(metrics.StaffStats))
	}
	stat := metrics.StaffStats[0]
	if stat.StaffID != "s1" || stat.OffDays != 2 || stat.EarlyDays != 1 || stat.WeekendOff != 1 {
		t.Errorf("员工统计错误: %+v", stat)
	}
	// 7天 - 2休 = 5天计入覆盖（早班计入）
	if stat.Working != 5 {
		t.Errorf("Working = %d, expected 5", stat.Working)
	}
}

func TestFairnessAnalyzer_EmptyStaff(t *testing.T) {
	metrics := NewFairnessAnalyzer().Analyze(model.NewSchedule(), nil, statsDates(t))
	if metrics.MinOff != 0 || metrics.MaxOff != 0 {
		t.Errorf("空员工列表极差应为0: max=%d min=%d", metrics.MaxOff, metrics.MinOff)
	}
}

func TestGini(t *testing.T) {
	if got := gini(nil); got != 0 {
		t.Errorf("空序列 gini = %v, expected 0", got)
	}
	if got := gini([]float64{0, 0, 0}); got != 0 {
		t.Errorf("全零序列 gini = %v, expected 0", got)
	}
	if got := gini([]float64{2, 2, 2}); math.Abs(got) > 1e-9 {
		t.Errorf("均匀序列 gini = %v, expected 0", got)
	}
	// 完全集中时接近 (n-1)/n
	if got := gini([]float64{0, 0, 6}); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("集中序列 gini = %v, expected 0.667", got)
	}
}

package generator

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/model"
)

func testStaff(n int) []*model.StaffMember {
	var staff []*model.StaffMember
	names := []string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛"}
	for i := 0; i < n; i++ {
		staff = append(staff, &model.StaffMember{
			ID:     names[i%len(names)] + "-staff",
			Name:   names[i%len(names)],
			Status: model.StatusFullTime,
		})
	}
	// 避免重名ID
	for i := range staff {
		staff[i].ID = staff[i].ID + string(rune('0'+i))
	}
	return staff
}

func monthRange(t *testing.T) model.DateRange {
	t.Helper()
	dates, err := model.NewDateRange("2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("构造日期范围失败: %v", err)
	}
	return dates
}

func seededOptions(seed int64) Options {
	opts := DefaultOptions()
	opts.Seed = seed
	return opts
}

func TestGenerate_Complete(t *testing.T) {
	g := New(nil, seededOptions(42))
	staff := testStaff(6)
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	for _, m := range staff {
		days, ok := schedule[m.ID]
		if !ok {
			t.Fatalf("缺少员工 %s 的时间线", m.ID)
		}
		for _, d := range dates {
			if _, ok := days[d]; !ok {
				t.Errorf("缺少单元格 %s/%s", m.ID, d)
			}
		}
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	staff := testStaff(6)
	dates := monthRange(t)

	first := New(nil, seededOptions(7)).Generate(context.Background(), staff, dates)
	second := New(nil, seededOptions(7)).Generate(context.Background(), staff, dates)

	if !reflect.DeepEqual(first, second) {
		t.Error("相同种子应产生相同班表")
	}

	third := New(nil, seededOptions(8)).Generate(context.Background(), staff, dates)
	if reflect.DeepEqual(first, third) {
		t.Log("不同种子产生了相同班表（可能但不应常见）")
	}
}

func TestGenerate_RespectsWeeklyLimit(t *testing.T) {
	settings := catalog.Defaults()
	g := New(settings, seededOptions(42))
	staff := testStaff(6)
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	limit := settings.MaxOffPerWeek
	for _, m := range staff {
		for start := 0; start+7 <= len(dates); start++ {
			window := dates[start : start+7]
			if count := schedule.CountValue(m.ID, window, model.ShiftOff); count > limit {
				t.Errorf("员工 %s 窗口 %s 起休息 %d 天，突破上限 %d",
					m.ID, window[0], count, limit)
			}
		}
	}
}

func TestGenerate_NoAdjacentOff(t *testing.T) {
	g := New(nil, seededOptions(42))
	staff := testStaff(6)
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	for _, m := range staff {
		for i := 1; i < len(dates); i++ {
			if schedule.Get(m.ID, dates[i-1]) == model.ShiftOff &&
				schedule.Get(m.ID, dates[i]) == model.ShiftOff {
				t.Errorf("员工 %s 在 %s/%s 两天连休", m.ID, dates[i-1], dates[i])
			}
		}
	}
}

func TestGenerate_PreferredRuleWins(t *testing.T) {
	settings := catalog.Defaults()
	settings.PriorityRules = []*model.PriorityRule{
		{ID: "r1", StaffIDs: []string{"s1"}, Weekday: 1, Directive: model.DirectivePreferred, Target: model.ShiftOff, Weight: 90},
	}
	g := New(settings, seededOptions(42))
	staff := []*model.StaffMember{
		{ID: "s1", Name: "甲", Status: model.StatusFullTime},
		{ID: "s2", Name: "乙", Status: model.StatusFullTime},
		{ID: "s3", Name: "丙", Status: model.StatusFullTime},
		{ID: "s4", Name: "丁", Status: model.StatusFullTime},
	}
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	// 最后一趟重放优先规则，周一必须为休
	for _, d := range dates {
		if model.Weekday(d) == 1 {
			if got := schedule.Get("s1", d); got != model.ShiftOff {
				t.Errorf("s1 在周一 %s 应为休, got %v", d, got)
			}
		}
	}
}

func TestGenerate_AvoidedRuleClearsTarget(t *testing.T) {
	settings := catalog.Defaults()
	settings.PriorityRules = []*model.PriorityRule{
		{ID: "r1", StaffIDs: []string{"s1"}, Weekday: 6, Directive: model.DirectiveAvoided, Target: model.ShiftOff, Weight: 90},
	}
	g := New(settings, seededOptions(42))
	staff := testStaff(6)
	staff[0].ID = "s1"
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	for _, d := range dates {
		if model.Weekday(d) == 6 {
			if got := schedule.Get("s1", d); got == model.ShiftOff {
				t.Errorf("s1 在周六 %s 不应为休", d)
			}
		}
	}
}

func TestGenerate_CoverageCompensation(t *testing.T) {
	settings := catalog.Defaults()
	settings.StaffGroups = []*model.StaffGroup{
		{ID: "g1", Name: "后厨组", MemberIDs: []string{"s1", "s2"}, BackupID: "s3"},
	}
	g := New(settings, seededOptions(42))
	staff := testStaff(6)
	staff[0].ID = "s1"
	staff[1].ID = "s2"
	staff[2].ID = "s3"
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	for _, d := range dates {
		triggered := schedule.Get("s1", d) == model.ShiftOff || schedule.Get("s2", d) == model.ShiftOff
		if triggered && schedule.Get("s3", d) == model.ShiftOff {
			t.Errorf("%s 成员休息时替补 s3 不应同休", d)
		}
	}
}

// stubOverrideProvider 固定覆盖提供方
type stubOverrideProvider struct {
	overrides map[string]map[string]model.ShiftValue
	err       error
}

func (p *stubOverrideProvider) Overrides(ctx context.Context, dates model.DateRange) (map[string]map[string]model.ShiftValue, error) {
	return p.overrides, p.err
}

func TestGenerate_ExternalOverrides(t *testing.T) {
	g := New(nil, seededOptions(42))
	g.SetOverrideProvider(&stubOverrideProvider{
		overrides: map[string]map[string]model.ShiftValue{
			"2026-03-10": {"s1": model.ShiftHoliday},
		},
	})
	staff := testStaff(6)
	staff[0].ID = "s1"
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	if got := schedule.Get("s1", "2026-03-10"); got != model.ShiftHoliday {
		t.Errorf("外部覆盖应为最终值, got %v", got)
	}
}

func TestGenerate_OverrideProviderError(t *testing.T) {
	g := New(nil, seededOptions(42))
	g.SetOverrideProvider(&stubOverrideProvider{err: errors.New("日历服务不可达")})
	staff := testStaff(6)
	dates := monthRange(t)

	// 提供方出错按无覆盖处理，生成不应失败
	schedule := g.Generate(context.Background(), staff, dates)
	if len(schedule) != len(staff) {
		t.Errorf("提供方出错不应影响生成, got %d timelines", len(schedule))
	}
}

func TestGenerate_PartTimeBlankStaysBlank(t *testing.T) {
	g := New(nil, seededOptions(42))
	staff := testStaff(6)
	staff[5].Status = model.StatusPartTime
	dates := monthRange(t)

	schedule := g.Generate(context.Background(), staff, dates)

	// 兼职不参与早班替换
	for _, d := range dates {
		if schedule.Get(staff[5].ID, d) == model.ShiftEarly {
			t.Errorf("兼职员工不应被排早班: %s", d)
		}
	}
}

package roster

import (
	"context"
	"testing"
	"time"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/roster/generator"
)

func engineStaff() []*model.StaffMember {
	return []*model.StaffMember{
		{ID: "s1", Name: "甲", Status: model.StatusFullTime},
		{ID: "s2", Name: "乙", Status: model.StatusFullTime},
		{ID: "s3", Name: "丙", Status: model.StatusFullTime},
		{ID: "s4", Name: "丁", Status: model.StatusFullTime},
	}
}

func seededEngine() *Engine {
	cache := catalog.NewCache(catalog.NewStaticProvider(catalog.Defaults()), 0)
	e := NewEngine(cache, nil)
	opts := generator.DefaultOptions()
	opts.Seed = 42
	e.SetGeneratorOptions(opts)
	return e
}

func TestGenerateSchedule_HappyPath(t *testing.T) {
	e := seededEngine()

	result, err := e.GenerateSchedule(context.Background(), &GenerateInput{
		Staff:     engineStaff(),
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error: %v", err)
	}
	if result.RequestID == "" {
		t.Error("应生成请求ID")
	}
	if result.Method != model.MethodRuleBased {
		t.Errorf("无预测器应为rule_based, got %v", result.Method)
	}
	if result.Tier != model.TierNone {
		t.Errorf("Tier = %v, expected none", result.Tier)
	}
	// 完整性：每个员工每一天都有单元格
	dates, _ := model.NewDateRange("2026-03-01", "2026-03-31")
	for _, m := range engineStaff() {
		for _, d := range dates {
			if _, ok := result.Schedule[m.ID][d]; !ok {
				t.Fatalf("缺少单元格 %s/%s", m.ID, d)
			}
		}
	}
}

func TestGenerateSchedule_InputErrors(t *testing.T) {
	e := seededEngine()

	tests := []struct {
		name  string
		input *GenerateInput
	}{
		{"空输入", nil},
		{"无员工", &GenerateInput{StartDate: "2026-03-01", EndDate: "2026-03-07"}},
		{"空员工ID", &GenerateInput{
			Staff:     []*model.StaffMember{{ID: ""}},
			StartDate: "2026-03-01", EndDate: "2026-03-07",
		}},
		{"非法日期", &GenerateInput{Staff: engineStaff(), StartDate: "03/01/2026", EndDate: "2026-03-07"}},
		{"起止颠倒", &GenerateInput{Staff: engineStaff(), StartDate: "2026-03-07", EndDate: "2026-03-01"}},
		{"日期列表全非法", &GenerateInput{Staff: engineStaff(), Dates: []string{"bad", "worse"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.GenerateSchedule(context.Background(), tt.input)
			if err == nil {
				t.Fatal("应返回错误")
			}
			appErr, ok := err.(*errors.AppError)
			if !ok {
				t.Fatalf("应返回*errors.AppError, got %T", err)
			}
			if appErr.HTTPStatus != 400 {
				t.Errorf("HTTPStatus = %d, expected 400", appErr.HTTPStatus)
			}
		})
	}
}

func TestGenerateSchedule_ExplicitDates(t *testing.T) {
	e := seededEngine()

	result, err := e.GenerateSchedule(context.Background(), &GenerateInput{
		Staff: engineStaff(),
		Dates: []string{"2026-03-05", "2026-03-03", "2026-03-03", "2026-03-04"},
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error: %v", err)
	}
	// 去重排序后3天
	for _, m := range engineStaff() {
		if len(result.Schedule[m.ID]) != 3 {
			t.Errorf("员工 %s 应有3天, got %d", m.ID, len(result.Schedule[m.ID]))
		}
	}
}

func TestGenerateSchedule_BudgetFallback(t *testing.T) {
	e := seededEngine()
	e.SetBudget(time.Nanosecond)

	result, err := e.GenerateSchedule(context.Background(), &GenerateInput{
		Staff:     engineStaff(),
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("预算耗尽不应返回错误: %v", err)
	}
	if result.Method != model.MethodRuleBased {
		t.Errorf("应急班表Method = %v, expected rule_based", result.Method)
	}
	if result.Tier != model.TierNone {
		t.Errorf("应急班表Tier = %v, expected none", result.Tier)
	}
	if !result.Emergency {
		t.Error("预算耗尽应标记Emergency")
	}
	// 应急班表仍然完整
	dates, _ := model.NewDateRange("2026-03-01", "2026-03-31")
	for _, m := range engineStaff() {
		for _, d := range dates {
			if _, ok := result.Schedule[m.ID][d]; !ok {
				t.Fatalf("应急班表缺少单元格 %s/%s", m.ID, d)
			}
		}
	}
}

func TestValidateSchedule(t *testing.T) {
	e := seededEngine()
	staff := engineStaff()

	schedule := model.NewSchedule()
	dates, _ := model.NewDateRange("2026-03-02", "2026-03-08")
	schedule.EnsureComplete(staff, dates)

	result, err := e.ValidateSchedule(schedule, staff, []string{"2026-03-02", "2026-03-08"})
	if err != nil {
		t.Fatalf("ValidateSchedule() error: %v", err)
	}
	if result == nil {
		t.Fatal("应返回验证结果")
	}

	if _, err := e.ValidateSchedule(nil, staff, []string{"2026-03-02"}); err == nil {
		t.Error("空班表应报错")
	}
	if _, err := e.ValidateSchedule(schedule, nil, []string{"2026-03-02"}); err == nil {
		t.Error("空员工列表应报错")
	}
	if _, err := e.ValidateSchedule(schedule, staff, nil); err == nil {
		t.Error("空日期应报错")
	}
}

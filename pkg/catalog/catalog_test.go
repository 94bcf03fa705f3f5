package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/banbiao/banbiao/pkg/model"
)

func TestDefaults(t *testing.T) {
	def := Defaults()
	if def.MaxOffPerMonth != 9 {
		t.Errorf("MaxOffPerMonth = %d, expected 9", def.MaxOffPerMonth)
	}
	if def.MaxOffPerWeek != 2 {
		t.Errorf("MaxOffPerWeek = %d, expected 2", def.MaxOffPerWeek)
	}
	if def.MinCoverageWeekday != 3 || def.MinCoverageWeekend != 2 {
		t.Errorf("出勤下限默认值错误: %d/%d", def.MinCoverageWeekday, def.MinCoverageWeekend)
	}
	if def.MaxConsecutiveWorkDays != 6 {
		t.Errorf("MaxConsecutiveWorkDays = %d, expected 6", def.MaxConsecutiveWorkDays)
	}
}

func TestSettings_MonthlyLimitApplies(t *testing.T) {
	all := &Settings{}
	if !all.MonthlyLimitApplies(model.StatusPartTime) {
		t.Error("未配置适用范围时应全员适用")
	}

	scoped := &Settings{MonthlyLimitStatuses: []model.StaffStatus{model.StatusFullTime}}
	if !scoped.MonthlyLimitApplies(model.StatusFullTime) {
		t.Error("全职应适用")
	}
	if scoped.MonthlyLimitApplies(model.StatusPartTime) {
		t.Error("兼职不应适用")
	}
}

func TestSettings_MinCoverageFor(t *testing.T) {
	s := &Settings{MinCoverageWeekday: 3, MinCoverageWeekend: 2}
	// 2026-03-01 周日 / 2026-03-02 周一
	if got := s.MinCoverageFor("2026-03-01"); got != 2 {
		t.Errorf("周末下限 = %d, expected 2", got)
	}
	if got := s.MinCoverageFor("2026-03-02"); got != 3 {
		t.Errorf("平日下限 = %d, expected 3", got)
	}
}

func TestSettings_GroupOf(t *testing.T) {
	s := &Settings{
		StaffGroups: []*model.StaffGroup{
			{ID: "g1", MemberIDs: []string{"s1", "s2"}},
			{ID: "g2", MemberIDs: []string{"s3"}},
		},
	}
	if g := s.GroupOf("s3"); g == nil || g.ID != "g2" {
		t.Errorf("GroupOf(s3) = %v, expected g2", g)
	}
	if g := s.GroupOf("s9"); g != nil {
		t.Errorf("未分组员工应返回nil, got %v", g)
	}
}

func TestMerge(t *testing.T) {
	if got := merge(nil); got.MaxOffPerMonth != 9 {
		t.Errorf("nil应返回默认值, got %v", got.MaxOffPerMonth)
	}

	partial := &Settings{MaxOffPerMonth: 12}
	merged := merge(partial)
	if merged.MaxOffPerMonth != 12 {
		t.Errorf("显式配置应保留, got %d", merged.MaxOffPerMonth)
	}
	if merged.MaxOffPerWeek != 2 || merged.RestWindowDays != 5 {
		t.Error("缺失字段应回退默认值")
	}
}

// failingProvider 总是报错的提供方
type failingProvider struct{}

func (p *failingProvider) GetSettings(ctx context.Context) (*Settings, error) {
	return nil, errors.New("配置中心不可达")
}

func TestCache_Snapshot(t *testing.T) {
	provider := NewStaticProvider(&Settings{MaxOffPerMonth: 8})
	cache := NewCache(provider, 0)
	defer cache.Stop()

	snap := cache.Snapshot()
	if snap == nil {
		t.Fatal("初始快照不能为nil")
	}
	if snap.MaxOffPerMonth != 8 {
		t.Errorf("MaxOffPerMonth = %d, expected 8", snap.MaxOffPerMonth)
	}
	if snap.MaxOffPerWeek != 2 {
		t.Error("缺失字段应由默认值补齐")
	}
	if snap.Version != 1 {
		t.Errorf("初始版本 = %d, expected 1", snap.Version)
	}
}

func TestCache_FailedRefreshKeepsOldSnapshot(t *testing.T) {
	cache := NewCache(&failingProvider{}, 0)
	defer cache.Stop()

	// 加载失败时落到内置默认值
	snap := cache.Snapshot()
	if snap == nil || snap.MaxOffPerMonth != 9 {
		t.Fatalf("加载失败应回退默认值, got %+v", snap)
	}

	before := snap.Version
	cache.Invalidate(context.Background())
	after := cache.Snapshot()
	if after.Version != before {
		t.Error("刷新失败不应替换快照")
	}
}

func TestCache_Invalidate(t *testing.T) {
	provider := NewStaticProvider(&Settings{MaxOffPerMonth: 8})
	cache := NewCache(provider, 0)
	defer cache.Stop()

	provider.settings = &Settings{MaxOffPerMonth: 10}
	cache.Invalidate(context.Background())

	snap := cache.Snapshot()
	if snap.MaxOffPerMonth != 10 {
		t.Errorf("Invalidate后应读到新配置, got %d", snap.MaxOffPerMonth)
	}
	if snap.Version != 2 {
		t.Errorf("版本应递增到2, got %d", snap.Version)
	}
}

package constraints

import (
	"testing"

	"github.com/banbiao/banbiao/pkg/model"
)

func TestGetLibrary_CoversAllViolationTypes(t *testing.T) {
	types := []model.ViolationType{
		model.ViolationMonthlyOffLimit,
		model.ViolationWeeklyOffLimit,
		model.ViolationDailyOffLimit,
		model.ViolationGroupConflict,
		model.ViolationPriorityRule,
		model.ViolationCoverageCompensation,
		model.ViolationInsufficientCoverage,
		model.ViolationConsecutiveOffDays,
		model.ViolationProximityPattern,
		model.ViolationLaborLaw,
		model.ViolationWeekendCoverage,
	}

	library := GetLibrary()
	if len(library) != len(types) {
		t.Fatalf("约束定义数量 = %d, expected %d", len(library), len(types))
	}

	byName := make(map[string]ConstraintDefinition, len(library))
	for _, def := range library {
		byName[def.Name] = def
	}
	for _, typ := range types {
		def, ok := byName[string(typ)]
		if !ok {
			t.Errorf("缺少约束定义: %s", typ)
			continue
		}
		if def.DisplayName == "" || def.Description == "" || def.Category == "" {
			t.Errorf("约束 %s 的元信息不完整: %+v", typ, def)
		}
	}
}

func TestGetLibrary_SeveritiesMatchValidator(t *testing.T) {
	expected := map[string]string{
		string(model.ViolationInsufficientCoverage): string(model.SeverityCritical),
		string(model.ViolationLaborLaw):             string(model.SeverityCritical),
		string(model.ViolationMonthlyOffLimit):      string(model.SeverityHigh),
		string(model.ViolationPriorityRule):         string(model.SeverityMedium),
		string(model.ViolationProximityPattern):     string(model.SeverityLow),
	}

	for name, severity := range expected {
		def, ok := GetDefinition(name)
		if !ok {
			t.Errorf("缺少约束定义: %s", name)
			continue
		}
		if def.Severity != severity {
			t.Errorf("约束 %s 严重程度 = %v, expected %v", name, def.Severity, severity)
		}
	}
}

func TestGetDefinition_Unknown(t *testing.T) {
	if _, ok := GetDefinition("no_such_constraint"); ok {
		t.Error("未知约束不应返回定义")
	}
}

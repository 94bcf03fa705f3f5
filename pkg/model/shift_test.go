package model

import "testing"

func TestParseShiftValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ShiftValue
		ok       bool
	}{
		{"空字符串", "", ShiftBlank, true},
		{"休息", "off", ShiftOff, true},
		{"早班", "early", ShiftEarly, true},
		{"晚班", "late", ShiftLate, true},
		{"正常班", "normal", ShiftNormal, true},
		{"不可用", "unavailable", ShiftUnavailable, true},
		{"节假日", "holiday", ShiftHoliday, true},
		{"未知值", "vacation", ShiftBlank, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseShiftValue(tt.input)
			if v != tt.expected || ok != tt.ok {
				t.Errorf("ParseShiftValue(%q) = (%v, %v), expected (%v, %v)",
					tt.input, v, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestShiftValue_Effective(t *testing.T) {
	tests := []struct {
		name     string
		value    ShiftValue
		status   StaffStatus
		expected ShiftValue
	}{
		{"全职空白视为正常班", ShiftBlank, StatusFullTime, ShiftNormal},
		{"兼职空白视为不可用", ShiftBlank, StatusPartTime, ShiftUnavailable},
		{"其他形态空白视为正常班", ShiftBlank, StatusOther, ShiftNormal},
		{"显式休息不受形态影响", ShiftOff, StatusPartTime, ShiftOff},
		{"显式早班不受形态影响", ShiftEarly, StatusFullTime, ShiftEarly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Effective(tt.status); got != tt.expected {
				t.Errorf("Effective(%v) = %v, expected %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestShiftValue_IsRest(t *testing.T) {
	if !ShiftOff.IsRest() {
		t.Error("休息应计为休")
	}
	if !ShiftEarly.IsRest() {
		t.Error("早班应计为休")
	}
	if ShiftNormal.IsRest() {
		t.Error("正常班不应计为休")
	}
	if ShiftHoliday.IsRest() {
		t.Error("节假日不应计为休")
	}
}

func TestShiftValue_IsWorking(t *testing.T) {
	tests := []struct {
		name     string
		value    ShiftValue
		status   StaffStatus
		expected bool
	}{
		{"全职空白在岗", ShiftBlank, StatusFullTime, true},
		{"兼职空白不在岗", ShiftBlank, StatusPartTime, false},
		{"休息不在岗", ShiftOff, StatusFullTime, false},
		{"早班在岗", ShiftEarly, StatusFullTime, true},
		{"晚班在岗", ShiftLate, StatusFullTime, true},
		{"节假日不在岗", ShiftHoliday, StatusFullTime, false},
		{"不可用不在岗", ShiftUnavailable, StatusFullTime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsWorking(tt.status); got != tt.expected {
				t.Errorf("IsWorking(%v) = %v, expected %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestShiftValue_CountsForCoverage(t *testing.T) {
	// 覆盖统计只排除休息与不可用，节假日仍计入
	if !ShiftHoliday.CountsForCoverage(StatusFullTime) {
		t.Error("节假日应计入覆盖")
	}
	if !ShiftEarly.CountsForCoverage(StatusFullTime) {
		t.Error("早班应计入覆盖")
	}
	if ShiftOff.CountsForCoverage(StatusFullTime) {
		t.Error("休息不应计入覆盖")
	}
	if ShiftBlank.CountsForCoverage(StatusPartTime) {
		t.Error("兼职空白不应计入覆盖")
	}
}

func TestShiftValue_TextMarshal(t *testing.T) {
	b, err := ShiftEarly.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error: %v", err)
	}
	if string(b) != "early" {
		t.Errorf("MarshalText() = %q, expected %q", b, "early")
	}

	var v ShiftValue
	if err := v.UnmarshalText([]byte("late")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if v != ShiftLate {
		t.Errorf("UnmarshalText(late) = %v, expected %v", v, ShiftLate)
	}

	// 未知值按空白处理而不报错
	if err := v.UnmarshalText([]byte("night")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if v != ShiftBlank {
		t.Errorf("未知值应回落为空白, got %v", v)
	}
}

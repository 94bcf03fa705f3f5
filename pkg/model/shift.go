// Package model 定义班表引擎的核心数据模型
package model

// ShiftValue 班次取值（封闭枚举）
// 零值即 ShiftBlank（空白哨兵值），空白的实际含义在读取时按员工状态解析：
// 全职员工视为正常上班，兼职员工视为不可用
type ShiftValue int8

const (
	ShiftBlank       ShiftValue = iota // 空白（默认哨兵值）
	ShiftOff                           // 休
	ShiftEarly                         // 早班
	ShiftLate                          // 晚班
	ShiftNormal                        // 正常班（显式）
	ShiftUnavailable                   // 不可用
	ShiftHoliday                       // 假日
)

// 班次值的序列化名称
var shiftNames = map[ShiftValue]string{
	ShiftBlank:       "",
	ShiftOff:         "off",
	ShiftEarly:       "early",
	ShiftLate:        "late",
	ShiftNormal:      "normal",
	ShiftUnavailable: "unavailable",
	ShiftHoliday:     "holiday",
}

var shiftValues = map[string]ShiftValue{
	"":            ShiftBlank,
	"off":         ShiftOff,
	"early":       ShiftEarly,
	"late":        ShiftLate,
	"normal":      ShiftNormal,
	"unavailable": ShiftUnavailable,
	"holiday":     ShiftHoliday,
}

// String 返回班次值名称
func (v ShiftValue) String() string {
	if name, ok := shiftNames[v]; ok {
		return name
	}
	return "unknown"
}

// ParseShiftValue 解析班次值名称
// 未知名称返回 ShiftBlank 和 false
func ParseShiftValue(s string) (ShiftValue, bool) {
	v, ok := shiftValues[s]
	return v, ok
}

// MarshalText 实现 encoding.TextMarshaler
func (v ShiftValue) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
// 未知值按空白处理，不报错（历史数据兼容）
func (v *ShiftValue) UnmarshalText(text []byte) error {
	parsed, ok := shiftValues[string(text)]
	if !ok {
		parsed = ShiftBlank
	}
	*v = parsed
	return nil
}

// Effective 按员工状态解析空白语义后的实际值
func (v ShiftValue) Effective(status StaffStatus) ShiftValue {
	if v != ShiftBlank {
		return v
	}
	if status == StatusPartTime {
		return ShiftUnavailable
	}
	return ShiftNormal
}

// IsRest 是否为休息值（休或早班，早班视为半休）
func (v ShiftValue) IsRest() bool {
	return v == ShiftOff || v == ShiftEarly
}

// IsWorking 按员工状态解析后，是否为在岗值
func (v ShiftValue) IsWorking(status StaffStatus) bool {
	switch v.Effective(status) {
	case ShiftOff, ShiftUnavailable, ShiftHoliday:
		return false
	default:
		return true
	}
}

// CountsForCoverage 是否计入当日出勤人数
// 不计入：休、不可用
func (v ShiftValue) CountsForCoverage(status StaffStatus) bool {
	eff := v.Effective(status)
	return eff != ShiftOff && eff != ShiftUnavailable
}

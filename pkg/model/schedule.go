// Package model 定义班表引擎的核心数据模型
package model

import (
	"fmt"
	"sort"
	"time"
)

// DateKey 日期键格式（无时间部分）
const DateKey = "2006-01-02"

// Schedule 班表：员工ID -> 日期键 -> 班次值
// 单次生成请求内由各趟处理原地修改；跨请求不共享
type Schedule map[string]map[string]ShiftValue

// NewSchedule 创建空班表
func NewSchedule() Schedule {
	return make(Schedule)
}

// Get 读取单元格，缺失返回空白哨兵值
func (s Schedule) Get(staffID, date string) ShiftValue {
	if row, ok := s[staffID]; ok {
		return row[date]
	}
	return ShiftBlank
}

// Set 写入单元格
func (s Schedule) Set(staffID, date string, v ShiftValue) {
	row, ok := s[staffID]
	if !ok {
		row = make(map[string]ShiftValue)
		s[staffID] = row
	}
	row[date] = v
}

// Clone 深拷贝班表
// 修正与仲裁路径各自持有独立副本，避免在途别名
func (s Schedule) Clone() Schedule {
	clone := make(Schedule, len(s))
	for staffID, row := range s {
		newRow := make(map[string]ShiftValue, len(row))
		for date, v := range row {
			newRow[date] = v
		}
		clone[staffID] = newRow
	}
	return clone
}

// EnsureComplete 补齐每个员工每个日期的单元格（空白哨兵值）
// 完整性不变量：生成结束时每个单元格都有定义
func (s Schedule) EnsureComplete(staff []*StaffMember, dates DateRange) {
	for _, member := range staff {
		row, ok := s[member.ID]
		if !ok {
			row = make(map[string]ShiftValue, len(dates))
			s[member.ID] = row
		}
		for _, date := range dates {
			if _, exists := row[date]; !exists {
				row[date] = ShiftBlank
			}
		}
	}
}

// CountValue 统计员工在日期集合内某个班次值的出现次数
func (s Schedule) CountValue(staffID string, dates []string, v ShiftValue) int {
	row, ok := s[staffID]
	if !ok {
		return 0
	}
	count := 0
	for _, date := range dates {
		if row[date] == v {
			count++
		}
	}
	return count
}

// WorkingCount 统计某日期在岗人数
func (s Schedule) WorkingCount(date string, staff []*StaffMember) int {
	count := 0
	for _, member := range staff {
		if s.Get(member.ID, date).CountsForCoverage(member.Status) {
			count++
		}
	}
	return count
}

// DateRange 日期范围：升序去重的日期键序列
// 不要求连续，典型用法为单个自然月窗口
type DateRange []string

// NewDateRange 由起止日期构建连续日期范围（含两端）
func NewDateRange(start, end string) (DateRange, error) {
	startT, err := time.Parse(DateKey, start)
	if err != nil {
		return nil, err
	}
	endT, err := time.Parse(DateKey, end)
	if err != nil {
		return nil, err
	}
	if startT.After(endT) {
		return nil, fmt.Errorf("起始日期 %s 晚于结束日期 %s", start, end)
	}

	var dates DateRange
	for t := startT; !t.After(endT); t = t.AddDate(0, 0, 1) {
		dates = append(dates, t.Format(DateKey))
	}
	return dates, nil
}

// NormalizeDates 排序并去重任意日期键列表，丢弃无法解析的日期
func NormalizeDates(raw []string) DateRange {
	seen := make(map[string]bool, len(raw))
	var dates DateRange
	for _, d := range raw {
		if d == "" || seen[d] {
			continue
		}
		if _, err := time.Parse(DateKey, d); err != nil {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Weekday 返回日期键对应的星期，解析失败返回 -1
func Weekday(date string) time.Weekday {
	t, err := time.Parse(DateKey, date)
	if err != nil {
		return -1
	}
	return t.Weekday()
}

// IsWeekend 检查日期键是否为周末
func IsWeekend(date string) bool {
	wd := Weekday(date)
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween 两个日期键相差的天数（绝对值），解析失败返回 -1
func DaysBetween(a, b string) int {
	ta, err1 := time.Parse(DateKey, a)
	tb, err2 := time.Parse(DateKey, b)
	if err1 != nil || err2 != nil {
		return -1
	}
	diff := int(tb.Sub(ta).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// PrevDate 前一天日期键
func PrevDate(date string) string {
	t, err := time.Parse(DateKey, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateKey)
}

// NextDate 后一天日期键
func NextDate(date string) string {
	t, err := time.Parse(DateKey, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(DateKey)
}

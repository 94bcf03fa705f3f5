// Package model 定义班表引擎的核心数据模型
package model

// StaffStatus 员工在职形态
type StaffStatus string

const (
	StatusFullTime StaffStatus = "full_time" // 全职
	StatusPartTime StaffStatus = "part_time" // 兼职
	StatusOther    StaffStatus = "other"     // 其他
)

// StaffMember 员工
// 单次生成请求期间视为不可变
type StaffMember struct {
	ID       string      `json:"id" db:"id"`
	Name     string      `json:"name" db:"name"`
	Status   StaffStatus `json:"status" db:"status"`
	JoinedAt string      `json:"joined_at,omitempty" db:"joined_at"` // YYYY-MM-DD
	LeftAt   string      `json:"left_at,omitempty" db:"left_at"`     // YYYY-MM-DD，空表示在职
}

// IsActiveOn 检查员工在某日期是否在职
func (s *StaffMember) IsActiveOn(date string) bool {
	if s.JoinedAt != "" && date < s.JoinedAt {
		return false
	}
	if s.LeftAt != "" && date > s.LeftAt {
		return false
	}
	return true
}

// CanTakeEarly 是否允许以早班替代休息
// 兼职员工的空白即不可用，不参与早班替换
func (s *StaffMember) CanTakeEarly() bool {
	return s.Status != StatusPartTime
}

// StaffGroup 员工分组
// 组内互斥：同一天最多一名成员休/早班
// 覆盖规则：组内任一触发成员休息时，指定的替补员工必须在岗
type StaffGroup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
	BackupID  string   `json:"backup_id,omitempty"` // 空表示无覆盖规则
}

// HasMember 检查员工是否属于该组
func (g *StaffGroup) HasMember(staffID string) bool {
	for _, id := range g.MemberIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// FindStaff 在员工列表中按ID查找
func FindStaff(staff []*StaffMember, id string) *StaffMember {
	for _, s := range staff {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// StaffStatusOf 返回员工ID对应的在职形态，找不到按全职处理
func StaffStatusOf(staff []*StaffMember, id string) StaffStatus {
	if s := FindStaff(staff, id); s != nil {
		return s.Status
	}
	return StatusFullTime
}

// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/banbiao/banbiao/pkg/model"
)

// RosterRecord 班表生成结果记录
type RosterRecord struct {
	ID           uuid.UUID         `json:"id"`
	RequestID    string            `json:"request_id"`
	StartDate    string            `json:"start_date"`
	EndDate      string            `json:"end_date"`
	Method       string            `json:"method"` // 决策路径
	Tier         string            `json:"tier"`
	QualityScore float64           `json:"quality_score"`
	Valid        bool              `json:"valid"`
	Schedule     model.Schedule    `json:"schedule"`
	Violations   []model.Violation `json:"violations,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RosterRepositoryInterface 班表仓储接口
type RosterRepositoryInterface interface {
	Create(ctx context.Context, record *RosterRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*RosterRecord, error)
	GetByRequestID(ctx context.Context, requestID string) (*RosterRecord, error)
	List(ctx context.Context, filter ListFilter) ([]*RosterRecord, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RosterRepository 班表仓储实现
type RosterRepository struct {
	db DB
}

// NewRosterRepository 创建班表仓储
func NewRosterRepository(db DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Create 保存班表生成结果
func (r *RosterRepository) Create(ctx context.Context, record *RosterRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	scheduleJSON, err := json.Marshal(record.Schedule)
	if err != nil {
		return fmt.Errorf("序列化班表失败: %w", err)
	}
	violationsJSON, err := json.Marshal(record.Violations)
	if err != nil {
		return fmt.Errorf("序列化违规列表失败: %w", err)
	}

	query := `
		INSERT INTO roster_records (
			id, request_id, start_date, end_date, method, tier,
			quality_score, valid, schedule, violations, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.StartDate, record.EndDate, record.Method, record.Tier,
		record.QualityScore, record.Valid, scheduleJSON, violationsJSON, record.DurationMs, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存班表记录失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取班表记录
func (r *RosterRepository) GetByID(ctx context.Context, id uuid.UUID) (*RosterRecord, error) {
	query := `
		SELECT id, request_id, start_date, end_date, method, tier,
			quality_score, valid, schedule, violations, duration_ms, created_at
		FROM roster_records
		WHERE id = $1
	`
	return r.scanRecord(r.db.QueryRowContext(ctx, query, id))
}

// GetByRequestID 根据请求ID获取班表记录
func (r *RosterRepository) GetByRequestID(ctx context.Context, requestID string) (*RosterRecord, error) {
	query := `
		SELECT id, request_id, start_date, end_date, method, tier,
			quality_score, valid, schedule, violations, duration_ms, created_at
		FROM roster_records
		WHERE request_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanRecord(r.db.QueryRowContext(ctx, query, requestID))
}

// List 分页查询班表记录
func (r *RosterRepository) List(ctx context.Context, filter ListFilter) ([]*RosterRecord, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.Method != "" {
		where += fmt.Sprintf(" AND method = $%d", argIdx)
		args = append(args, filter.Method)
		argIdx++
	}
	if filter.StartDate != "" {
		where += fmt.Sprintf(" AND start_date >= $%d", argIdx)
		args = append(args, filter.StartDate)
		argIdx++
	}
	if filter.EndDate != "" {
		where += fmt.Sprintf(" AND end_date <= $%d", argIdx)
		args = append(args, filter.EndDate)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM roster_records " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计班表记录失败: %w", err)
	}

	orderDir := "DESC"
	if filter.OrderDir == "asc" {
		orderDir = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, request_id, start_date, end_date, method, tier,
			quality_score, valid, schedule, violations, duration_ms, created_at
		FROM roster_records %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, where, orderDir, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询班表记录失败: %w", err)
	}
	defer rows.Close()

	var records []*RosterRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}

	return records, total, rows.Err()
}

// Delete 删除班表记录
func (r *RosterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM roster_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("删除班表记录失败: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// scanRecord 扫描单条班表记录
func (r *RosterRepository) scanRecord(row Scanner) (*RosterRecord, error) {
	var record RosterRecord
	var scheduleJSON, violationsJSON []byte

	err := row.Scan(
		&record.ID, &record.RequestID, &record.StartDate, &record.EndDate, &record.Method, &record.Tier,
		&record.QualityScore, &record.Valid, &scheduleJSON, &violationsJSON, &record.DurationMs, &record.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("扫描班表记录失败: %w", err)
	}

	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &record.Schedule); err != nil {
			return nil, fmt.Errorf("解析班表失败: %w", err)
		}
	}
	if len(violationsJSON) > 0 {
		if err := json.Unmarshal(violationsJSON, &record.Violations); err != nil {
			return nil, fmt.Errorf("解析违规列表失败: %w", err)
		}
	}

	return &record, nil
}

// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/banbiao/banbiao/internal/metrics"
	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/roster"
	"github.com/banbiao/banbiao/pkg/roster/arbiter"
)

// RosterHandler 班表处理器
type RosterHandler struct {
	engine *roster.Engine
	repo   repository.RosterRepositoryInterface // 可为nil，无持久化模式
}

// NewRosterHandler 创建班表处理器
func NewRosterHandler(engine *roster.Engine, repo repository.RosterRepositoryInterface) *RosterHandler {
	return &RosterHandler{engine: engine, repo: repo}
}

// StaffInput 员工输入
type StaffInput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"` // full_time/part_time/other
}

// GenerateRequest 班表生成请求
type GenerateRequest struct {
	StartDate string                       `json:"start_date"`
	EndDate   string                       `json:"end_date"`
	Dates     []string                     `json:"dates,omitempty"` // 显式日期列表，优先于起止日期
	Staff     []StaffInput                 `json:"staff"`
	Current   map[string]map[string]string `json:"current,omitempty"` // 既有排班，值为班次名
}

// GenerateResponse 班表生成响应
type GenerateResponse struct {
	Success      bool              `json:"success"`
	RequestID    string            `json:"request_id"`
	Schedule     model.Schedule    `json:"schedule"`
	Violations   []model.Violation `json:"violations"`
	QualityScore float64           `json:"quality_score"`
	Method       string            `json:"method"`
	Tier         string            `json:"tier"`
	Reasoning    string            `json:"reasoning,omitempty"`
	Duration     string            `json:"duration"`
}

// Generate 生成班表
func (h *RosterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	staff, appErr := buildStaff(req.Staff)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	input := &roster.GenerateInput{
		Staff:     staff,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Dates:     req.Dates,
		Current:   parseSchedule(req.Current),
	}

	result, err := h.engine.GenerateSchedule(r.Context(), input)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	metrics.RecordRosterGeneration(string(result.Method), result.Success, result.Duration)
	metrics.SetRosterQualityScore(string(result.Method), result.QualityScore)
	if result.Emergency {
		metrics.RecordEmergencyFallback()
	}
	if result.Tier != model.TierNone {
		metrics.RecordMLPrediction(string(result.Tier), result.Method != model.MethodRuleBased)
	}
	for _, v := range result.Violations {
		metrics.RecordViolation(string(v.Type), string(v.Severity))
	}

	h.persist(r.Context(), req, result)

	respondJSON(w, http.StatusOK, &GenerateResponse{
		Success:      result.Success,
		RequestID:    result.RequestID,
		Schedule:     result.Schedule,
		Violations:   result.Violations,
		QualityScore: result.QualityScore,
		Method:       string(result.Method),
		Tier:         string(result.Tier),
		Reasoning:    result.Reasoning,
		Duration:     result.Duration.String(),
	})
}

// persist 异步写库，失败只记日志不影响响应
func (h *RosterHandler) persist(ctx context.Context, req GenerateRequest, result *roster.GenerateResult) {
	if h.repo == nil {
		return
	}

	record := &repository.RosterRecord{
		RequestID:    result.RequestID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Method:       string(result.Method),
		Tier:         string(result.Tier),
		QualityScore: result.QualityScore,
		Valid:        result.Success,
		Schedule:     result.Schedule,
		Violations:   result.Violations,
		DurationMs:   result.Duration.Milliseconds(),
	}

	go func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := h.repo.Create(saveCtx, record); err != nil {
			logger.Warn().Err(err).Str("request_id", record.RequestID).Msg("保存班表记录失败")
		}
	}()
}

// ValidateRequest 班表校验请求
type ValidateRequest struct {
	Dates     []string                     `json:"dates,omitempty"`
	StartDate string                       `json:"start_date,omitempty"`
	EndDate   string                       `json:"end_date,omitempty"`
	Staff     []StaffInput                 `json:"staff"`
	Schedule  map[string]map[string]string `json:"schedule"`
}

// ValidateResponse 班表校验响应
type ValidateResponse struct {
	Valid        bool                   `json:"valid"`
	Violations   []model.Violation      `json:"violations"`
	Summary      map[model.Severity]int `json:"summary"`
	QualityScore float64                `json:"quality_score"`
}

// Validate 校验既有班表
func (h *RosterHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	staff, appErr := buildStaff(req.Staff)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	dates := req.Dates
	if len(dates) == 0 {
		dr, err := model.NewDateRange(req.StartDate, req.EndDate)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的日期范围"))
			return
		}
		dates = dr
	}

	result, err := h.engine.ValidateSchedule(parseSchedule(req.Schedule), staff, dates)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	for _, v := range result.Violations {
		metrics.RecordViolation(string(v.Type), string(v.Severity))
	}

	respondJSON(w, http.StatusOK, &ValidateResponse{
		Valid:        result.Valid,
		Violations:   result.Violations,
		Summary:      result.Summary,
		QualityScore: arbiter.QualityScore(result),
	})
}

// History 查询历史生成记录
func (h *RosterHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeInternal, "未启用持久化"))
		return
	}

	filter := repository.DefaultListFilter()
	if method := r.URL.Query().Get("method"); method != "" {
		filter = filter.WithMethod(method)
	}

	records, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询班表记录失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"records": records,
	})
}

// buildStaff 把输入转换为员工模型并做基础校验
func buildStaff(inputs []StaffInput) ([]*model.StaffMember, *errors.AppError) {
	if len(inputs) == 0 {
		return nil, errors.InvalidInput("staff", "员工列表不能为空")
	}

	staff := make([]*model.StaffMember, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if in.ID == "" {
			return nil, errors.InvalidInput("staff.id", "员工ID不能为空")
		}
		if seen[in.ID] {
			return nil, errors.InvalidInput("staff.id", "员工ID重复: "+in.ID)
		}
		seen[in.ID] = true

		status := model.StaffStatus(in.Status)
		if in.Status == "" {
			status = model.StatusFullTime
		}
		staff = append(staff, &model.StaffMember{
			ID:     in.ID,
			Name:   in.Name,
			Status: status,
		})
	}
	return staff, nil
}

// parseSchedule 把字符串班表转换为内部模型，未知班次按空白处理
func parseSchedule(raw map[string]map[string]string) model.Schedule {
	if raw == nil {
		return nil
	}
	schedule := model.NewSchedule()
	for staffID, row := range raw {
		for date, name := range row {
			value, _ := model.ParseShiftValue(name)
			schedule.Set(staffID, date, value)
		}
	}
	return schedule
}

// toAppError 把任意错误规整为AppError
func toAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.Wrap(err, errors.CodeInternal, "内部错误")
}

// respondJSON 输出JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 输出错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

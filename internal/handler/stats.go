package handler

import (
	"encoding/json"
	"net/http"

	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/stats"
)

// StatsHandler 班表统计处理器
type StatsHandler struct {
	cache *catalog.Cache
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(cache *catalog.Cache) *StatsHandler {
	return &StatsHandler{cache: cache}
}

// StatsRequest 统计请求
type StatsRequest struct {
	StartDate string                       `json:"start_date,omitempty"`
	EndDate   string                       `json:"end_date,omitempty"`
	Dates     []string                     `json:"dates,omitempty"`
	Staff     []StaffInput                 `json:"staff"`
	Schedule  map[string]map[string]string `json:"schedule"`
}

// StatsResponse 统计响应
type StatsResponse struct {
	Coverage *stats.CoverageMetrics `json:"coverage"`
	Fairness *stats.FairnessMetrics `json:"fairness"`
}

// Analyze 对既有班表做覆盖率与公平性分析
func (h *StatsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	staff, appErr := buildStaff(req.Staff)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	if req.Schedule == nil {
		respondError(w, errors.InvalidInput("schedule", "班表不能为空"))
		return
	}

	dates := model.DateRange(req.Dates)
	if len(dates) == 0 {
		dr, err := model.NewDateRange(req.StartDate, req.EndDate)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的日期范围"))
			return
		}
		dates = dr
	}

	var settings *catalog.Settings
	if h.cache != nil {
		settings = h.cache.Snapshot()
	}

	schedule := parseSchedule(req.Schedule)
	respondJSON(w, http.StatusOK, &StatsResponse{
		Coverage: stats.NewCoverageAnalyzer(settings).Analyze(schedule, staff, dates),
		Fairness: stats.NewFairnessAnalyzer().Analyze(schedule, staff, dates),
	})
}

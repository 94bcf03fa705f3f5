package handler

import (
	"net/http"

	"github.com/banbiao/banbiao/internal/constraints"
	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/errors"
)

// ConstraintHandler 约束库处理器
type ConstraintHandler struct {
	cache *catalog.Cache // 可为nil，仅返回静态定义
}

// NewConstraintHandler 创建约束库处理器
func NewConstraintHandler(cache *catalog.Cache) *ConstraintHandler {
	return &ConstraintHandler{cache: cache}
}

// Library 返回校验器支持的全部约束定义
func (h *ConstraintHandler) Library(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	respondJSON(w, http.StatusOK, &constraints.LibraryResponse{
		Library: constraints.GetLibrary(),
	})
}

// Settings 返回当前生效的约束目录快照
func (h *ConstraintHandler) Settings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	settings := catalog.Defaults()
	if h.cache != nil {
		if s := h.cache.Snapshot(); s != nil {
			settings = s
		}
	}

	respondJSON(w, http.StatusOK, settings)
}

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labroster/labroster/internal/repository"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
)

// ShiftHandler 班次处理器
type ShiftHandler struct {
	repo *repository.ShiftRepository
}

// NewShiftHandler 创建班次处理器
func NewShiftHandler(db repository.DB) *ShiftHandler {
	return &ShiftHandler{repo: repository.NewShiftRepository(db)}
}

// ShiftInput 班次定义请求
type ShiftInput struct {
	Name          string   `json:"name"`
	RoleRequired  string   `json:"role_required,omitempty"`
	IsFlexible    bool     `json:"is_flexible,omitempty"`
	StartTime     string   `json:"start_time,omitempty"`
	EndTime       string   `json:"end_time,omitempty"`
	CanRemainOpen bool     `json:"can_remain_open,omitempty"`
	DaysOfWeek    []string `json:"days_of_week,omitempty"`
}

var weekdayNames = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
}

// List 分页列出班次
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r, "created_at", "asc")
	if role := r.URL.Query().Get("role_required"); role != "" {
		filter.Extra = map[string]interface{}{"role_required": role}
	}

	items, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"shifts": items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Create 录入班次
func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ShiftInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateShiftInput(&in); err != nil {
		respondError(w, err)
		return
	}

	existing, err := h.repo.GetByName(r.Context(), in.Name)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if existing != nil {
		respondError(w, errors.New(errors.CodeAlreadyExists, "班次名称已存在: "+in.Name))
		return
	}

	shift := &model.ShiftDefinition{
		Name:          in.Name,
		RoleRequired:  in.RoleRequired,
		IsFlexible:    in.IsFlexible,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		CanRemainOpen: in.CanRemainOpen,
		DaysOfWeek:    in.DaysOfWeek,
	}
	if shift.RoleRequired == "" {
		shift.RoleRequired = model.RoleAny
	}

	if err := h.repo.Create(r.Context(), shift); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusCreated, shift)
}

// Detail 获取单个班次
func (h *ShiftHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	shift, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if shift == nil {
		respondError(w, errors.NotFound("班次", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, shift)
}

// Update 更新班次定义
func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var in ShiftInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateShiftInput(&in); err != nil {
		respondError(w, err)
		return
	}

	shift, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if shift == nil {
		respondError(w, errors.NotFound("班次", id.String()))
		return
	}

	// 名称变更时检查重名
	if in.Name != shift.Name {
		dup, err := h.repo.GetByName(r.Context(), in.Name)
		if err != nil {
			respondError(w, errors.FromError(err))
			return
		}
		if dup != nil {
			respondError(w, errors.New(errors.CodeAlreadyExists, "班次名称已存在: "+in.Name))
			return
		}
	}

	shift.Name = in.Name
	shift.RoleRequired = in.RoleRequired
	shift.IsFlexible = in.IsFlexible
	shift.StartTime = in.StartTime
	shift.EndTime = in.EndTime
	shift.CanRemainOpen = in.CanRemainOpen
	shift.DaysOfWeek = in.DaysOfWeek
	if shift.RoleRequired == "" {
		shift.RoleRequired = model.RoleAny
	}

	if err := h.repo.Update(r.Context(), shift); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, shift)
}

// Delete 移除班次（软删除）
func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// validateShiftInput 验证班次定义
func validateShiftInput(in *ShiftInput) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if in.Name == "" {
		ve.Add("name", "班次名称不能为空")
	}
	if in.StartTime != "" {
		if _, err := time.Parse("15:04", in.StartTime); err != nil {
			ve.Add("start_time", "时间格式无效，应为HH:MM")
		}
	}
	if in.EndTime != "" {
		if _, err := time.Parse("15:04", in.EndTime); err != nil {
			ve.Add("end_time", "时间格式无效，应为HH:MM")
		}
	}
	for _, day := range in.DaysOfWeek {
		if !weekdayNames[day] {
			ve.Add("days_of_week", "无效的星期名称: "+day)
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

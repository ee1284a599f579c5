package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labroster/labroster/internal/repository"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
)

// StaffHandler 人员处理器
type StaffHandler struct {
	repo *repository.StaffRepository
}

// NewStaffHandler 创建人员处理器
func NewStaffHandler(db repository.DB) *StaffHandler {
	return &StaffHandler{repo: repository.NewStaffRepository(db)}
}

// StaffInput 人员录入请求
type StaffInput struct {
	Initials      string        `json:"initials"`
	StartTime     string        `json:"start_time,omitempty"`
	EndTime       string        `json:"end_time,omitempty"`
	Role          string        `json:"role,omitempty"`
	IsCasual      bool          `json:"is_casual,omitempty"`
	TrainedShifts []string      `json:"trained_shifts,omitempty"`
	Constraints   model.JSONMap `json:"constraints,omitempty"`
}

// List 分页列出人员
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r, "initials", "asc")
	if role := r.URL.Query().Get("role"); role != "" {
		filter.Extra = map[string]interface{}{"role": role}
	}

	items, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"staff":  items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Create 录入人员
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in StaffInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateStaffInput(&in); err != nil {
		respondError(w, err)
		return
	}

	existing, err := h.repo.GetByInitials(r.Context(), in.Initials)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if existing != nil {
		respondError(w, errors.New(errors.CodeAlreadyExists, "人员缩写已存在: "+in.Initials))
		return
	}

	staff := &model.StaffMember{
		Initials:      in.Initials,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Role:          in.Role,
		IsCasual:      in.IsCasual,
		TrainedShifts: in.TrainedShifts,
		Constraints:   in.Constraints,
	}
	if staff.Role == "" {
		staff.Role = model.RoleAny
	}

	if err := h.repo.Create(r.Context(), staff); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusCreated, staff)
}

// Detail 获取单个人员
func (h *StaffHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	staff, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if staff == nil {
		respondError(w, errors.NotFound("人员", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, staff)
}

// Update 更新人员信息
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var in StaffInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateStaffInput(&in); err != nil {
		respondError(w, err)
		return
	}

	staff, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if staff == nil {
		respondError(w, errors.NotFound("人员", id.String()))
		return
	}

	// 缩写变更时检查重名
	if in.Initials != staff.Initials {
		dup, err := h.repo.GetByInitials(r.Context(), in.Initials)
		if err != nil {
			respondError(w, errors.FromError(err))
			return
		}
		if dup != nil {
			respondError(w, errors.New(errors.CodeAlreadyExists, "人员缩写已存在: "+in.Initials))
			return
		}
	}

	staff.Initials = in.Initials
	staff.StartTime = in.StartTime
	staff.EndTime = in.EndTime
	staff.Role = in.Role
	staff.IsCasual = in.IsCasual
	staff.TrainedShifts = in.TrainedShifts
	staff.Constraints = in.Constraints
	if staff.Role == "" {
		staff.Role = model.RoleAny
	}

	if err := h.repo.Update(r.Context(), staff); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, staff)
}

// Delete 移除人员（软删除）
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// validateStaffInput 验证人员录入
func validateStaffInput(in *StaffInput) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if in.Initials == "" {
		ve.Add("initials", "人员缩写不能为空")
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

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

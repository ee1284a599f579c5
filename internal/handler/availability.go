package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labroster/labroster/internal/repository"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
)

// AvailabilityHandler 可用性记录处理器
type AvailabilityHandler struct {
	repo *repository.AvailabilityRepository
}

// NewAvailabilityHandler 创建可用性处理器
func NewAvailabilityHandler(db repository.DB) *AvailabilityHandler {
	return &AvailabilityHandler{repo: repository.NewAvailabilityRepository(db)}
}

// AvailabilityInput 可用性记录请求。
// is_holiday 为 true 表示全体休假日，此时 initials 可省略。
type AvailabilityInput struct {
	Initials  string `json:"initials,omitempty"`
	Date      string `json:"date"`
	Reason    string `json:"reason,omitempty"`
	IsHoliday bool   `json:"is_holiday,omitempty"`
}

// List 分页列出可用性记录
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r, "date", "asc")
	if initials := r.URL.Query().Get("initials"); initials != "" {
		filter.Extra = map[string]interface{}{"initials": initials}
	}

	items, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": items,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// Create 录入可用性记录
func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in AvailabilityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateAvailabilityInput(&in); err != nil {
		respondError(w, err)
		return
	}

	rec := &model.AvailabilityRecord{
		Initials:  in.Initials,
		Date:      in.Date,
		Reason:    in.Reason,
		IsHoliday: in.IsHoliday,
	}
	if rec.IsHoliday && rec.Initials == "" {
		rec.Initials = model.AllStaff
	}

	if err := h.repo.Create(r.Context(), rec); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusCreated, rec)
}

// Detail 获取单条可用性记录
func (h *AvailabilityHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	rec, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if rec == nil {
		respondError(w, errors.NotFound("可用性记录", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Update 更新可用性记录
func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var in AvailabilityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateAvailabilityInput(&in); err != nil {
		respondError(w, err)
		return
	}

	rec, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if rec == nil {
		respondError(w, errors.NotFound("可用性记录", id.String()))
		return
	}

	rec.Initials = in.Initials
	rec.Date = in.Date
	rec.Reason = in.Reason
	rec.IsHoliday = in.IsHoliday
	if rec.IsHoliday && rec.Initials == "" {
		rec.Initials = model.AllStaff
	}

	if err := h.repo.Update(r.Context(), rec); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Delete 移除可用性记录（软删除）
func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// validateAvailabilityInput 验证可用性记录
func validateAvailabilityInput(in *AvailabilityInput) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if in.Date == "" {
		ve.Add("date", "日期不能为空")
	} else if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		ve.Add("date", "日期格式无效，应为YYYY-MM-DD")
	}
	if !in.IsHoliday && in.Initials == "" {
		ve.Add("initials", "个人请假记录需指定人员缩写")
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

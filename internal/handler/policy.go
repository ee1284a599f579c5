package handler

import (
	"net/http"

	"github.com/labroster/labroster/internal/constraints"
	"github.com/labroster/labroster/pkg/policy"
)

// PolicyHandler 策略处理器
type PolicyHandler struct {
	pol *policy.Policy
}

// NewPolicyHandler 创建策略处理器
func NewPolicyHandler(pol *policy.Policy) *PolicyHandler {
	if pol == nil {
		pol = policy.Default()
	}
	return &PolicyHandler{pol: pol}
}

// Rules 返回规则目录、当前编译的规则清单与生效策略
func (h *PolicyHandler) Rules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{
		Library: constraints.GetLibrary(),
		Active:  constraints.ActiveRules(h.pol),
		Policy:  h.pol,
	})
}

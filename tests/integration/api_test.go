// Package integration 校验 API 的请求响应格式与中间件行为，
// 不依赖数据库的端点走真实的处理器链路。
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labroster/labroster/internal/handler"
	"github.com/labroster/labroster/internal/middleware"
	"github.com/labroster/labroster/pkg/model"
)

// TestGenerateScheduleRequestFormat 排班生成请求的格式
func TestGenerateScheduleRequestFormat(t *testing.T) {
	request := handler.GenerateScheduleRequest{
		StartDate:  "2026-03-02",
		EndDate:    "2026-03-13",
		EbusFriday: true,
		Pins: []model.Pin{
			{Date: "2026-03-02", Shift: "Prep Clerical", Initials: "KL"},
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("序列化请求失败: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("请求不是合法 JSON: %v", err)
	}
	if parsed["start_date"] != "2026-03-02" {
		t.Errorf("start_date = %v", parsed["start_date"])
	}
	if parsed["end_date"] != "2026-03-13" {
		t.Errorf("end_date = %v", parsed["end_date"])
	}
	if parsed["ebus_friday"] != true {
		t.Errorf("ebus_friday = %v", parsed["ebus_friday"])
	}
	pins, ok := parsed["pins"].([]interface{})
	if !ok || len(pins) != 1 {
		t.Fatalf("pins = %v, 期望一条钉选", parsed["pins"])
	}

	req := httptest.NewRequest("POST", "/api/v1/schedules/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	t.Logf("请求体 %d 字节", len(body))
	_ = req
}

// TestRepairAndSwapRequestFormats 补班与换班请求的格式
func TestRepairAndSwapRequestFormats(t *testing.T) {
	repair := handler.RepairScheduleRequest{
		Staff:         "GN",
		Dates:         []string{"2026-03-04", "2026-03-05"},
		Exclude:       []string{"LM"},
		MaxCandidates: 3,
	}
	body, err := json.Marshal(repair)
	if err != nil {
		t.Fatalf("序列化补班请求失败: %v", err)
	}
	var parsedRepair map[string]interface{}
	if err := json.Unmarshal(body, &parsedRepair); err != nil {
		t.Fatalf("补班请求不是合法 JSON: %v", err)
	}
	if parsedRepair["staff"] != "GN" {
		t.Errorf("staff = %v", parsedRepair["staff"])
	}
	if _, present := parsedRepair["apply"]; present {
		t.Error("未设置的 apply 不应出现在请求体中")
	}

	swapReq := handler.SwapScheduleRequest{
		Date:               "2026-03-03",
		Shift:              "Prep GYN",
		Replacement:        "RA",
		MaxRecommendations: 5,
	}
	body, err = json.Marshal(swapReq)
	if err != nil {
		t.Fatalf("序列化换班请求失败: %v", err)
	}
	var parsedSwap map[string]interface{}
	if err := json.Unmarshal(body, &parsedSwap); err != nil {
		t.Fatalf("换班请求不是合法 JSON: %v", err)
	}
	if parsedSwap["date"] != "2026-03-03" || parsedSwap["shift"] != "Prep GYN" {
		t.Errorf("换班单元 = %v/%v", parsedSwap["date"], parsedSwap["shift"])
	}
}

// TestPolicyRulesEndpoint 规则目录端点的完整链路
func TestPolicyRulesEndpoint(t *testing.T) {
	srv := newTestServer("", nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/policy/rules")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}

	var payload struct {
		Library []map[string]interface{} `json:"library"`
		Active  []map[string]interface{} `json:"active"`
		Policy  map[string]interface{}   `json:"policy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(payload.Library) == 0 {
		t.Error("规则目录为空")
	}
	if len(payload.Active) == 0 {
		t.Error("生效规则清单为空")
	}
	if payload.Policy == nil {
		t.Error("响应缺少当前策略")
	}
	t.Logf("目录规则 %d 条, 生效规则 %d 条", len(payload.Library), len(payload.Active))
}

// TestAPIKeyAuth 配置密钥后未带密钥的请求被拒
func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer("lab-secret", []string{"/health"})
	defer srv.Close()

	// 未带密钥
	resp, err := http.Get(srv.URL + "/api/v1/policy/rules")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	body := decodeErrorBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("状态码 = %d, 期望 401", resp.StatusCode)
	}
	if body["error"] != true {
		t.Errorf("错误响应缺少 error 标记: %v", body)
	}
	if body["code"] == "" || body["code"] == nil {
		t.Errorf("错误响应缺少 code: %v", body)
	}
	if body["message"] == "" || body["message"] == nil {
		t.Errorf("错误响应缺少 message: %v", body)
	}

	// 带密钥
	req, _ := http.NewRequest("GET", srv.URL+"/api/v1/policy/rules", nil)
	req.Header.Set("X-API-Key", "lab-secret")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("带密钥请求状态码 = %d, 期望 200", resp2.StatusCode)
	}

	// 豁免路径不需要密钥
	resp3, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("豁免路径状态码 = %d, 期望 200", resp3.StatusCode)
	}
}

// TestCORSPreflight 预检请求直接放行并带跨域响应头
func TestCORSPreflight(t *testing.T) {
	srv := newTestServer("", nil)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/policy/rules", nil)
	req.Header.Set("Origin", "https://roster.example.org")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("预检状态码 = %d, 期望 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, 期望 *", got)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("预检响应缺少 Access-Control-Allow-Methods")
	}
}

// TestGenerateRejectsBadRequests 生成端点在触达存储前拦截坏请求
func TestGenerateRejectsBadRequests(t *testing.T) {
	h := handler.NewScheduleHandler(nil, nil, nil, nil, 5*time.Second)

	cases := []struct {
		name string
		body string
	}{
		{"非法JSON", `{"start_date": `},
		{"起止日期颠倒", `{"start_date": "2026-03-13", "end_date": "2026-03-02"}`},
		{"日期格式错误", `{"start_date": "03/02/2026", "end_date": "2026-03-06"}`},
		{"缺少日期", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/schedules/generate", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.Generate(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("状态码 = %d, 期望 400", rec.Code)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("错误响应不是合法 JSON: %v", err)
			}
			if body["error"] != true {
				t.Errorf("错误响应缺少 error 标记: %v", body)
			}
			if msg, _ := body["message"].(string); msg == "" {
				t.Errorf("错误响应缺少 message: %v", body)
			}
		})
	}
}

// ========================================
// 辅助函数
// ========================================

// newTestServer 组装带中间件链的策略端点与健康端点
func newTestServer(apiKey string, skipPaths []string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	policyHandler := handler.NewPolicyHandler(nil)
	mux.HandleFunc("GET /api/v1/policy/rules", policyHandler.Rules)

	chain := middleware.Chain(&middleware.Config{
		APIKey:      apiKey,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		SkipPaths:   skipPaths,
	}, mux)
	return httptest.NewServer(chain)
}

func decodeErrorBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析错误响应失败: %v", err)
	}
	return body
}

package providers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// maxReasonLength 错误原因中保留的响应体长度
const maxReasonLength = 200

// errorBody 常见的 JSON 错误响应
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// CheckStatus 对 HTTP 响应进行分类：
// 429 返回限流错误，其他非 2xx 返回 RequestFailedError，2xx 返回 nil。
func CheckStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return translation.NewRateLimitedError(resp.Status)
	}

	return translation.NewRequestFailedError(resp.StatusCode, ErrorReason(resp.Status, body))
}

// ErrorReason 从响应体中提取错误原因，无法解析时使用 fallback
func ErrorReason(fallback string, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		for _, reason := range []string{eb.Error, eb.Message, eb.Detail} {
			if reason != "" {
				return reason
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return fallback
	}
	if len(text) > maxReasonLength {
		text = text[:maxReasonLength] + "..."
	}
	return text
}

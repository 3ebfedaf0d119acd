// Package retry 提供与远程接口无关的重试策略与网络错误分类
package retry

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// networkPatterns 常见的瞬时网络错误消息
var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"timeout",
	"temporary failure",
	"network is unreachable",
	"no such host",
	"broken pipe",
	"i/o timeout",
	"eof",
}

// IsNetworkError 判断是否为网络瞬时错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	// 检查网络相关错误
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// 检查URL错误
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		if IsNetworkError(urlErr.Err) {
			return true
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

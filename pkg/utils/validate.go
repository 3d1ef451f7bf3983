package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL 规范化目标 URL：去除首尾空白，缺少协议时默认补 https://
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "https://" + trimmed
}

// ValidateTargetURL 校验目标 URL 的合法性，入参应已经过 NormalizeURL
func ValidateTargetURL(targetURL string) error {
	if targetURL == "" {
		return fmt.Errorf("error.url_required")
	}

	if len(targetURL) > 2048 {
		return fmt.Errorf("error.url_max_length")
	}

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("error.url_invalid")
	}

	// 仅允许 http/https，且必须带主机名
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("error.url_invalid")
	}
	return nil
}

package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// base62 字符表，与短链 slug 统一使用
const (
	SlugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	SlugLength   = 6
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// GenerateRandomSlug 生成定长随机 slug，使用加密安全随机源
func GenerateRandomSlug() (string, error) {
	max := big.NewInt(int64(len(SlugAlphabet)))
	b := make([]byte, SlugLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = SlugAlphabet[n.Int64()]
	}
	return string(b), nil
}

// IsValidSlug 校验 slug 格式：1-50 个字符，仅限字母、数字、连字符和下划线
func IsValidSlug(slug string) bool {
	if slug == "" || len(slug) > 50 {
		return false
	}
	return slugPattern.MatchString(slug)
}

// IsReservedSlug 判断 slug 是否为保留字（大小写不敏感）
// 保留字是系统其他路径占用的段，永远不可分配
func IsReservedSlug(slug string) bool {
	lower := strings.ToLower(slug)
	return lower == "admin" ||
		lower == "api" ||
		strings.HasPrefix(lower, "_next") ||
		lower == "favicon.ico" ||
		strings.HasPrefix(lower, "_")
}

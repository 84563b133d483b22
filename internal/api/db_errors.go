package api

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation 判断错误是否为唯一约束冲突。
// 兜底：未启用方言错误翻译时按驱动错误文本识别（Postgres/SQLite）。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate key value") ||
		strings.Contains(lower, "unique constraint failed")
}

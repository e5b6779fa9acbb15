package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// 分页默认值
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, limit, maxLimit int) (int, int) {
	if maxLimit <= 0 {
		maxLimit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// ParsePagination 读取 page 与 limit（兼容 page_size）查询参数。
func ParsePagination(c *gin.Context, maxLimit int) (int, int) {
	page := queryInt(c, "page")
	limit := queryInt(c, "limit")
	if limit == 0 {
		limit = queryInt(c, "page_size")
	}
	return NormalizePagination(page, limit, maxLimit)
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return value
}

package repository

import "gorm.io/gorm"

// applyPagination 应用分页参数，非法页码按第一页处理。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// countAndFind 统计总数后按分页取数据，dest 必须为切片指针。
// Preload 不能与 Count 同时使用，需通过 preloads 传入。
func countAndFind(query *gorm.DB, page, pageSize int, order string, dest interface{}, preloads ...string) (int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	for _, name := range preloads {
		query = query.Preload(name)
	}
	if order != "" {
		query = query.Order(order)
	}
	if err := applyPagination(query, page, pageSize).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

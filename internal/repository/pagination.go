package repository

import "gorm.io/gorm"

// paginate 按页码与页大小追加 Limit/Offset，页码从 1 起算。
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil {
		return nil
	}
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NormalizePagination 校正分页参数，页大小超出上限时截断。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

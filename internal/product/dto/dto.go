package dto

type ProductFilters struct {
	CategoryID  int64
	SearchQuery string // name, sku or description
	Page        int
	PageSize    int
}

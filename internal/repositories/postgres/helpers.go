package postgres

import (
	"fmt"

	"gorm.io/gorm"
)

var sortableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"kind":       true,
	"order":      true,
	"score":      true,
	"status":     true,
	"started_at": true,
}

// applyPaginationAndSort applies the shared limit/offset/sort handling.
// Unknown sort columns fall back to defaultSort to keep ordering out of
// user control.
func applyPaginationAndSort(query *gorm.DB, limit, offset int, sortBy, sortOrder, defaultSort string) *gorm.DB {
	column := defaultSort
	if sortableColumns[sortBy] {
		column = sortBy
	}
	order := "DESC"
	if sortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(fmt.Sprintf("%q %s", column, order))

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

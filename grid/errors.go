package grid

import "errors"

var (
	ErrUnknownColumn     = errors.New("unknown column")
	ErrColumnNotSortable = errors.New("column is not sortable")
	ErrInvalidPageSize   = errors.New("page size must be positive")
	ErrNoRows            = errors.New("no rows to export")
)

package engine

import "errors"

// ============================================================
// Errors
// ============================================================

var (
	// ErrLandmarkCount означает нарушение контракта детектора, а не "руки нет".
	ErrLandmarkCount = errors.New("unexpected hand landmark count")
	ErrInvalidOrder  = errors.New("symmetry order must be >= 1")
	ErrInvalidBrush  = errors.New("brush size must be >= 1")
	ErrInvalidColor  = errors.New("invalid color")
	ErrInvalidSize   = errors.New("surface size must be positive")
)

package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound                  = errors.New("record not found")
	ErrDuplicateCode             = errors.New("code already in use")
	ErrHasActiveBorrowings       = errors.New("item still has active borrowings")
	ErrNotFoundOrAlreadyReturned = errors.New("borrowing not found or already returned")
	ErrStockBelowLent            = errors.New("total stock cannot be lower than the quantity currently lent")
	ErrUsernameTaken             = errors.New("username already in use")

	// ErrStorage marks failures of the underlying database: driver errors, timeouts, lost
	// connections. The original error stays in the chain.
	ErrStorage = errors.New("storage failure")
)

// InsufficientStockError is returned when a stock reservation would leave the item
// outside 0..total_stock.
type InsufficientStockError struct {
	ItemID    uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available: %d", e.ItemID, e.Requested, e.Available)
}

// mapError converts gorm errors into the package taxonomy. Errors already in the
// taxonomy pass through untouched.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ise *InsufficientStockError
	switch {
	case errors.As(err, &ise),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateCode),
		errors.Is(err, ErrHasActiveBorrowings),
		errors.Is(err, ErrNotFoundOrAlreadyReturned),
		errors.Is(err, ErrStockBelowLent),
		errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrStorage):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateCode
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IsDomainError reports whether err is one of the caller-recoverable errors above.
func IsDomainError(err error) bool {
	return err != nil && !errors.Is(err, ErrStorage)
}

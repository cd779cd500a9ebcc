// Package lending owns the operations that touch both an item's stock counter and the
// borrowing ledger. Each one runs as a single database transaction.
package lending

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tkj_lending_tool/db"
	"tkj_lending_tool/models"
)

var (
	ErrItemNotFound = fmt.Errorf("item %w", db.ErrNotFound)

	// ErrCodeExhausted means every generated borrowing code collided with an existing one.
	ErrCodeExhausted = fmt.Errorf("%w: could not allocate a unique borrowing code", db.ErrStorage)
)

type Service interface {
	Create(ctx context.Context, in CreateInput) (*models.Borrowing, error)
	Return(ctx context.Context, code string, signature *string) (*db.BorrowingRow, error)
	DeleteBorrowing(ctx context.Context, id uint) (*models.Borrowing, error)
}

// CreateInput is the borrower form. Photos are references to files uploaded beforehand.
type CreateInput struct {
	ItemID          uint    `json:"itemId" validate:"required"`
	BorrowerName    string  `json:"borrowerName" validate:"required,max=200"`
	Contact         *string `json:"contact" validate:"omitempty,max=100"`
	Purpose         string  `json:"purpose" validate:"required"`
	Staff           string  `json:"staff" validate:"required,max=200"`
	Quantity        int     `json:"quantity" validate:"gt=0"`
	CredentialPhoto *string `json:"credentialPhoto" validate:"omitempty,max=500"`
}

func (in *CreateInput) normalize() {
	in.BorrowerName = strings.TrimSpace(in.BorrowerName)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.Staff = strings.TrimSpace(in.Staff)
	in.Contact = db.NilIfBlank(in.Contact)
	in.CredentialPhoto = db.NilIfBlank(in.CredentialPhoto)
}

// ValidationError lists the form fields that failed, by their JSON names.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid borrowing request: " + strings.Join(e.Fields, ", ")
}

// Outcome buckets err for metrics labels.
func Outcome(err error) string {
	var (
		ve  *ValidationError
		ise *db.InsufficientStockError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ise):
		return "insufficient_stock"
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrNotFoundOrAlreadyReturned):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case db.IsDomainError(err):
		return "conflict"
	}
	return "error"
}

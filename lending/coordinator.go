package lending

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"tkj_lending_tool/codegen"
	"tkj_lending_tool/db"
	"tkj_lending_tool/models"

	"github.com/go-playground/validator/v10"
)

// Coordinator is the Service implementing the stock rules; Logging and Instrumented
// wrap it.
type Coordinator struct {
	Repo *db.Repo

	NewCode      func(now time.Time, attempt int) string
	Now          func() time.Time
	CodeAttempts int
	TxTimeout    time.Duration

	validate *validator.Validate
}

func NewCoordinator(repo *db.Repo, codeAttempts int, txTimeout time.Duration) *Coordinator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Coordinator{
		Repo:         repo,
		NewCode:      codegen.BorrowingCode,
		Now:          time.Now,
		CodeAttempts: codeAttempts,
		TxTimeout:    txTimeout,
		validate:     v,
	}
}

// Create reserves in.Quantity units of the item and records the borrowing. Stock is
// checked against the locked item row and then applied with a conditional update, so
// two requests racing for the last unit cannot both succeed.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (*models.Borrowing, error) {
	in.normalize()
	if err := c.check(in); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var created *models.Borrowing
	err := c.Repo.Tx(ctx, func(tx *db.Repo) error {
		it, err := tx.LockItem(ctx, in.ItemID)
		if errors.Is(err, db.ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if in.Quantity > it.Available() {
			return &db.InsufficientStockError{ItemID: it.ID, Requested: in.Quantity, Available: it.Available()}
		}

		b := &models.Borrowing{
			ItemID:          it.ID,
			BorrowerName:    in.BorrowerName,
			Contact:         in.Contact,
			Purpose:         in.Purpose,
			Staff:           in.Staff,
			Quantity:        in.Quantity,
			CredentialPhoto: in.CredentialPhoto,
			LoanAt:          c.Now().UTC(),
		}
		if err := c.insertWithCode(ctx, tx, b); err != nil {
			return err
		}
		if err := tx.AdjustLent(ctx, it.ID, in.Quantity); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Return closes an active borrowing and gives back exactly the quantity it recorded.
func (c *Coordinator) Return(ctx context.Context, code string, signature *string) (*db.BorrowingRow, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var row *db.BorrowingRow
	err := c.Repo.Tx(ctx, func(tx *db.Repo) error {
		b, err := tx.LockActiveBorrowingByCode(ctx, code)
		if err != nil {
			return err
		}
		if err := tx.MarkReturned(ctx, b.Code, db.NilIfBlank(signature), c.Now().UTC()); err != nil {
			return err
		}
		if err := tx.AdjustLent(ctx, b.ItemID, -b.Quantity); err != nil {
			return err
		}
		row, err = tx.FindBorrowingByID(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteBorrowing removes a record, releasing its reservation first when it is still out.
func (c *Coordinator) DeleteBorrowing(ctx context.Context, id uint) (*models.Borrowing, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var deleted *models.Borrowing
	err := c.Repo.Tx(ctx, func(tx *db.Repo) error {
		b, err := tx.LockBorrowingByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == models.StatusBorrowed {
			if err := tx.AdjustLent(ctx, b.ItemID, -b.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteBorrowingRow(ctx, b.ID); err != nil {
			return err
		}
		deleted = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// insertWithCode retries on code collisions. Each failed insert is rolled back to its own
// savepoint, the enclosing transaction carries on.
func (c *Coordinator) insertWithCode(ctx context.Context, tx *db.Repo, b *models.Borrowing) error {
	for attempt := 1; attempt <= c.CodeAttempts; attempt++ {
		b.Code = c.NewCode(b.LoanAt, attempt)
		err := tx.InsertBorrowing(ctx, b)
		if errors.Is(err, db.ErrDuplicateCode) {
			continue
		}
		return err
	}
	return ErrCodeExhausted
}

func (c *Coordinator) check(in CreateInput) error {
	err := c.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.TxTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.TxTimeout)
}

// db/repo_borrowings.go
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tkj_lending_tool/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BorrowingRow is a borrowing joined with the item it references. Item columns are
// empty when the item row is gone.
type BorrowingRow struct {
	models.Borrowing
	ItemName  string  `json:"itemName"`
	ItemCode  string  `json:"itemCode"`
	ItemPhoto *string `json:"itemPhoto,omitempty"`
}

type BorrowingFilter struct {
	Status models.BorrowingStatus // empty = all
	Q      string
}

// BorrowingFields are the only borrowing columns an admin may edit.
type BorrowingFields struct {
	BorrowerName *string
	Contact      *string
	Purpose      *string
	Staff        *string
}

var borrowingJoinSelect = fmt.Sprintf(
	"%[1]s.*, COALESCE(%[2]s.name, '') AS item_name, COALESCE(%[2]s.code, '') AS item_code, %[2]s.photo AS item_photo",
	models.BorrowingTable, models.ItemTable)

var borrowingJoin = fmt.Sprintf("LEFT JOIN %[2]s ON %[2]s.id = %[1]s.item_id",
	models.BorrowingTable, models.ItemTable)

func (r *Repo) joined(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table(models.BorrowingTable).
		Select(borrowingJoinSelect).
		Joins(borrowingJoin)
}

func (r *Repo) findRow(ctx context.Context, where string, arg any) (*BorrowingRow, error) {
	var row BorrowingRow
	res := r.joined(ctx).Where(models.BorrowingTable+"."+where, arg).Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, mapError("find borrowing", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *Repo) FindBorrowingByID(ctx context.Context, id uint) (*BorrowingRow, error) {
	return r.findRow(ctx, "id = ?", id)
}

func (r *Repo) FindBorrowingByCode(ctx context.Context, code string) (*BorrowingRow, error) {
	return r.findRow(ctx, "code = ?", strings.TrimSpace(code))
}

func (r *Repo) ListBorrowings(ctx context.Context, f BorrowingFilter) ([]BorrowingRow, error) {
	q := r.joined(ctx)
	if f.Status != "" {
		q = q.Where(models.BorrowingTable+".status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(fmt.Sprintf(
			"(LOWER(%[1]s.code) LIKE ? OR LOWER(%[1]s.borrower_name) LIKE ? OR LOWER(%[1]s.staff) LIKE ? OR LOWER(COALESCE(%[2]s.name, '')) LIKE ?)",
			models.BorrowingTable, models.ItemTable), like, like, like, like)
	}
	rows := make([]BorrowingRow, 0)
	if err := q.
		Order(models.BorrowingTable + ".created_at DESC").
		Order(models.BorrowingTable + ".id DESC").
		Scan(&rows).Error; err != nil {
		return nil, mapError("list borrowings", err)
	}
	return rows, nil
}

func (r *Repo) CountActiveBorrowings(ctx context.Context, itemID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Borrowing{}).
		Where("item_id = ? AND status = ?", itemID, models.StatusBorrowed).
		Count(&n).Error
	return n, mapError("count active borrowings", err)
}

// ActiveQuantity is the sum of quantities still out for an item. It always equals the
// item's lent_quantity.
func (r *Repo) ActiveQuantity(ctx context.Context, itemID uint) (int, error) {
	var sum int
	err := r.DB.WithContext(ctx).Model(&models.Borrowing{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("item_id = ? AND status = ?", itemID, models.StatusBorrowed).
		Scan(&sum).Error
	return sum, mapError("sum active quantity", err)
}

func (r *Repo) LockBorrowingByID(ctx context.Context, id uint) (*models.Borrowing, error) {
	var b models.Borrowing
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "id = ?", id).Error; err != nil {
		return nil, mapError("lock borrowing", err)
	}
	return &b, nil
}

// LockActiveBorrowingByCode only sees borrowings that are still out.
func (r *Repo) LockActiveBorrowingByCode(ctx context.Context, code string) (*models.Borrowing, error) {
	var b models.Borrowing
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "code = ? AND status = ?", strings.TrimSpace(code), models.StatusBorrowed).Error
	if err != nil {
		err = mapError("lock borrowing", err)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFoundOrAlreadyReturned
		}
		return nil, err
	}
	return &b, nil
}

// InsertBorrowing writes b as a new Borrowed record. The insert runs in its own savepoint,
// so a duplicate code leaves an enclosing transaction usable for a retry.
func (r *Repo) InsertBorrowing(ctx context.Context, b *models.Borrowing) error {
	b.ID = 0
	b.Status = models.StatusBorrowed
	b.ReturnAt = nil
	b.SignaturePhoto = nil
	if b.LoanAt.IsZero() {
		b.LoanAt = time.Now().UTC()
	}
	err := r.DB.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Create(b).Error
	})
	return mapError("insert borrowing", err)
}

// MarkReturned flips a Borrowed record to Returned. The status condition lives in the
// UPDATE itself; a second return of the same code matches no row.
func (r *Repo) MarkReturned(ctx context.Context, code string, signature *string, at time.Time) error {
	updates := map[string]any{
		"status":     models.StatusReturned,
		"return_at":  at,
		"updated_at": time.Now().UTC(),
	}
	if s := NilIfBlank(signature); s != nil {
		updates["signature_photo"] = *s
	}
	res := r.DB.WithContext(ctx).Model(&models.Borrowing{}).
		Where("code = ? AND status = ?", strings.TrimSpace(code), models.StatusBorrowed).
		Updates(updates)
	if res.Error != nil {
		return mapError("mark returned", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrAlreadyReturned
	}
	return nil
}

func (r *Repo) UpdateBorrowingMetadata(ctx context.Context, id uint, f BorrowingFields) (*BorrowingRow, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if f.BorrowerName != nil {
		updates["borrower_name"] = strings.TrimSpace(*f.BorrowerName)
	}
	if f.Contact != nil {
		updates["contact"] = NilIfBlank(f.Contact)
	}
	if f.Purpose != nil {
		updates["purpose"] = strings.TrimSpace(*f.Purpose)
	}
	if f.Staff != nil {
		updates["staff"] = strings.TrimSpace(*f.Staff)
	}

	res := r.DB.WithContext(ctx).Model(&models.Borrowing{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, mapError("update borrowing", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindBorrowingByID(ctx, id)
}

// DeleteBorrowingRow removes the record only; releasing stock is the caller's job.
func (r *Repo) DeleteBorrowingRow(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Borrowing{}, id)
	if res.Error != nil {
		return mapError("delete borrowing", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

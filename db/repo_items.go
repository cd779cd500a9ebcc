// db/repo_items.go
package db

import (
	"context"
	"strings"
	"time"

	"tkj_lending_tool/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemFields holds the admin-editable columns. Nil leaves a column unchanged; an empty
// Photo or Notes clears it. lent_quantity is deliberately absent.
type ItemFields struct {
	Name       *string
	TotalStock *int
	Photo      *string
	Notes      *string
}

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	it.LentQuantity = 0
	it.Code = strings.TrimSpace(it.Code)
	err := r.DB.WithContext(ctx).Create(it).Error
	return mapError("create item", err)
}

func (r *Repo) FindItemByID(ctx context.Context, id uint) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, mapError("find item", err)
	}
	return &it, nil
}

func (r *Repo) FindItemByCode(ctx context.Context, code string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "code = ?", strings.TrimSpace(code)).Error; err != nil {
		return nil, mapError("find item by code", err)
	}
	return &it, nil
}

// LockItem reads the item under a row lock held until the surrounding transaction ends.
func (r *Repo) LockItem(ctx context.Context, id uint) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "id = ?", id).Error; err != nil {
		return nil, mapError("lock item", err)
	}
	return &it, nil
}

// ListItems returns items newest first; q matches code or name, case-insensitively.
func (r *Repo) ListItems(ctx context.Context, q string) ([]models.Item, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Item{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("(LOWER(code) LIKE ? OR LOWER(name) LIKE ?)", like, like)
	}
	items := make([]models.Item, 0)
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, mapError("list items", err)
	}
	return items, nil
}

// ItemCodesWithPrefix feeds codegen.ItemCode.
func (r *Repo) ItemCodesWithPrefix(ctx context.Context, prefix string) (map[string]bool, error) {
	var codes []string
	if err := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("code LIKE ?", prefix+"%").
		Pluck("code", &codes).Error; err != nil {
		return nil, mapError("list item codes", err)
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set, nil
}

func (r *Repo) UpdateItemMetadata(ctx context.Context, id uint, f ItemFields) (*models.Item, error) {
	var out *models.Item
	err := r.Tx(ctx, func(tx *Repo) error {
		updates := map[string]any{"updated_at": time.Now().UTC()}
		if f.Name != nil {
			updates["name"] = strings.TrimSpace(*f.Name)
		}
		if f.Photo != nil {
			updates["photo"] = NilIfBlank(f.Photo)
		}
		if f.Notes != nil {
			updates["notes"] = NilIfBlank(f.Notes)
		}

		q := tx.DB.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id)
		if f.TotalStock != nil {
			updates["total_stock"] = *f.TotalStock
			q = q.Where("lent_quantity <= ?", *f.TotalStock)
		}

		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := tx.FindItemByID(ctx, id); err != nil {
				return err
			}
			return ErrStockBelowLent
		}

		it, err := tx.FindItemByID(ctx, id)
		if err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdjustLent applies lent_quantity += delta as one conditional statement. The bound check
// and the write cannot be separated by another writer, with or without a row lock.
func (r *Repo) AdjustLent(ctx context.Context, id uint, delta int) error {
	res := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND lent_quantity + ? >= 0 AND lent_quantity + ? <= total_stock", id, delta, delta).
		Updates(map[string]any{
			"lent_quantity": gorm.Expr("lent_quantity + ?", delta),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return mapError("adjust lent", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	it, err := r.FindItemByID(ctx, id)
	if err != nil {
		return err
	}
	return &InsufficientStockError{ItemID: id, Requested: delta, Available: it.Available()}
}

// DeleteItem refuses while any borrowing of the item is still out.
func (r *Repo) DeleteItem(ctx context.Context, id uint) error {
	return r.Tx(ctx, func(tx *Repo) error {
		if _, err := tx.LockItem(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountActiveBorrowings(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHasActiveBorrowings
		}
		res := tx.DB.WithContext(ctx).Delete(&models.Item{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

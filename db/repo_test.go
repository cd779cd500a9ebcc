package db_test

import (
	"context"
	"testing"
	"time"

	"tkj_lending_tool/db"
	"tkj_lending_tool/db/dbtest"
	"tkj_lending_tool/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedItem(t *testing.T, r *db.Repo, code string, stock int) *models.Item {
	t.Helper()
	it := &models.Item{Code: code, Name: "Item " + code, TotalStock: stock}
	require.NoError(t, r.CreateItem(context.Background(), it))
	return it
}

func seedBorrowing(t *testing.T, r *db.Repo, itemID uint, code string, qty int) *models.Borrowing {
	t.Helper()
	b := &models.Borrowing{
		Code:         code,
		ItemID:       itemID,
		BorrowerName: "Budi",
		Purpose:      "praktikum",
		Staff:        "Pak Joko",
		Quantity:     qty,
	}
	require.NoError(t, r.InsertBorrowing(context.Background(), b))
	return b
}

func TestCreateItem(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)

	it := &models.Item{Code: "TKJ-CRMP", Name: "Crimping Tool", TotalStock: 4, LentQuantity: 3}
	require.NoError(t, r.CreateItem(ctx, it))
	assert.NotZero(t, it.ID)
	assert.Equal(t, 0, it.LentQuantity, "lent quantity always starts at zero")

	got, err := r.FindItemByCode(ctx, "TKJ-CRMP")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Available())

	err = r.CreateItem(ctx, &models.Item{Code: "TKJ-CRMP", Name: "Other", TotalStock: 1})
	assert.ErrorIs(t, err, db.ErrDuplicateCode)

	_, err = r.FindItemByID(ctx, 9999)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestListItemsSearch(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)

	seedItem(t, r, "TKJ-LANT", 2)
	seedItem(t, r, "TKJ-CRMP", 2)

	all, err := r.ListItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "TKJ-CRMP", all[0].Code, "newest first")

	found, err := r.ListItems(ctx, "lant")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "TKJ-LANT", found[0].Code)

	codes, err := r.ItemCodesWithPrefix(ctx, "TKJ-C")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"TKJ-CRMP": true}, codes)
}

func TestAdjustLent(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)

	require.NoError(t, r.AdjustLent(ctx, it.ID, 3))

	err := r.AdjustLent(ctx, it.ID, 3)
	var ise *db.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 2, ise.Available)

	err = r.AdjustLent(ctx, it.ID, -4)
	require.ErrorAs(t, err, &ise)

	require.NoError(t, r.AdjustLent(ctx, it.ID, -3))
	got, err := r.FindItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LentQuantity)

	assert.ErrorIs(t, r.AdjustLent(ctx, 9999, 1), db.ErrNotFound)
}

func TestUpdateItemMetadata(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)
	require.NoError(t, r.AdjustLent(ctx, it.ID, 3))

	name := "LAN Tester"
	notes := "rak 2"
	got, err := r.UpdateItemMetadata(ctx, it.ID, db.ItemFields{Name: &name, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "LAN Tester", got.Name)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "rak 2", *got.Notes)
	assert.Equal(t, 3, got.LentQuantity)

	t.Run("stock below lent", func(t *testing.T) {
		two := 2
		_, err := r.UpdateItemMetadata(ctx, it.ID, db.ItemFields{TotalStock: &two})
		assert.ErrorIs(t, err, db.ErrStockBelowLent)
	})

	t.Run("stock equal to lent", func(t *testing.T) {
		three := 3
		got, err := r.UpdateItemMetadata(ctx, it.ID, db.ItemFields{TotalStock: &three})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Available())
	})

	t.Run("clear notes", func(t *testing.T) {
		empty := ""
		got, err := r.UpdateItemMetadata(ctx, it.ID, db.ItemFields{Notes: &empty})
		require.NoError(t, err)
		assert.Nil(t, got.Notes)
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := r.UpdateItemMetadata(ctx, 9999, db.ItemFields{Name: &name})
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestDeleteItemGuard(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)
	b := seedBorrowing(t, r, it.ID, "PMJ-2026-001", 1)

	assert.ErrorIs(t, r.DeleteItem(ctx, it.ID), db.ErrHasActiveBorrowings)

	require.NoError(t, r.MarkReturned(ctx, b.Code, nil, time.Now().UTC()))
	require.NoError(t, r.DeleteItem(ctx, it.ID))

	_, err := r.FindItemByID(ctx, it.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.ErrorIs(t, r.DeleteItem(ctx, it.ID), db.ErrNotFound)

	// returned history survives without its item
	row, err := r.FindBorrowingByCode(ctx, b.Code)
	require.NoError(t, err)
	assert.Empty(t, row.ItemName)
}

func TestInsertBorrowing(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)

	b := seedBorrowing(t, r, it.ID, "PMJ-2026-001", 2)
	assert.Equal(t, models.StatusBorrowed, b.Status)
	assert.False(t, b.LoanAt.IsZero())
	assert.Nil(t, b.ReturnAt)

	dup := &models.Borrowing{Code: "PMJ-2026-001", ItemID: it.ID, BorrowerName: "Ani", Purpose: "x", Staff: "y", Quantity: 1}
	assert.ErrorIs(t, r.InsertBorrowing(ctx, dup), db.ErrDuplicateCode)

	// a failed insert inside a transaction leaves it usable
	err := r.Tx(ctx, func(tx *db.Repo) error {
		again := &models.Borrowing{Code: "PMJ-2026-001", ItemID: it.ID, BorrowerName: "Ani", Purpose: "x", Staff: "y", Quantity: 1}
		require.ErrorIs(t, tx.InsertBorrowing(ctx, again), db.ErrDuplicateCode)
		again.Code = "PMJ-2026-002"
		return tx.InsertBorrowing(ctx, again)
	})
	require.NoError(t, err)

	row, err := r.FindBorrowingByCode(ctx, "PMJ-2026-002")
	require.NoError(t, err)
	assert.Equal(t, "TKJ-LANT", row.ItemCode)
	assert.Equal(t, "Item TKJ-LANT", row.ItemName)
}

func TestMarkReturned(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)
	b := seedBorrowing(t, r, it.ID, "PMJ-2026-001", 1)

	sig := "uploads/sig.png"
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, r.MarkReturned(ctx, b.Code, &sig, at))

	row, err := r.FindBorrowingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, row.Status)
	require.NotNil(t, row.ReturnAt)
	assert.True(t, at.Equal(*row.ReturnAt))
	require.NotNil(t, row.SignaturePhoto)
	assert.Equal(t, sig, *row.SignaturePhoto)

	assert.ErrorIs(t, r.MarkReturned(ctx, b.Code, nil, at), db.ErrNotFoundOrAlreadyReturned)
	assert.ErrorIs(t, r.MarkReturned(ctx, "PMJ-0000-000", nil, at), db.ErrNotFoundOrAlreadyReturned)

	_, err = r.LockActiveBorrowingByCode(ctx, b.Code)
	assert.ErrorIs(t, err, db.ErrNotFoundOrAlreadyReturned)
}

func TestListBorrowingsFilter(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)
	first := seedBorrowing(t, r, it.ID, "PMJ-2026-001", 1)
	seedBorrowing(t, r, it.ID, "PMJ-2026-002", 1)
	require.NoError(t, r.MarkReturned(ctx, first.Code, nil, time.Now().UTC()))

	cases := []struct {
		name   string
		filter db.BorrowingFilter
		codes  []string
	}{
		{"all newest first", db.BorrowingFilter{}, []string{"PMJ-2026-002", "PMJ-2026-001"}},
		{"active", db.BorrowingFilter{Status: models.StatusBorrowed}, []string{"PMJ-2026-002"}},
		{"returned", db.BorrowingFilter{Status: models.StatusReturned}, []string{"PMJ-2026-001"}},
		{"search by item name", db.BorrowingFilter{Q: "item tkj"}, []string{"PMJ-2026-002", "PMJ-2026-001"}},
		{"search by code", db.BorrowingFilter{Q: "-001"}, []string{"PMJ-2026-001"}},
		{"no match", db.BorrowingFilter{Q: "zzz"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := r.ListBorrowings(ctx, tc.filter)
			require.NoError(t, err)
			codes := make([]string, 0, len(rows))
			for _, row := range rows {
				codes = append(codes, row.Code)
			}
			assert.Equal(t, tc.codes, codes)
		})
	}
}

func TestUpdateBorrowingMetadata(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)
	b := seedBorrowing(t, r, it.ID, "PMJ-2026-001", 2)

	name := "Budi Santoso"
	contact := "0812"
	row, err := r.UpdateBorrowingMetadata(ctx, b.ID, db.BorrowingFields{BorrowerName: &name, Contact: &contact})
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", row.BorrowerName)
	require.NotNil(t, row.Contact)
	assert.Equal(t, "0812", *row.Contact)
	assert.Equal(t, 2, row.Quantity)
	assert.Equal(t, models.StatusBorrowed, row.Status)

	_, err = r.UpdateBorrowingMetadata(ctx, 9999, db.BorrowingFields{BorrowerName: &name})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDeleteBorrowingRow(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)
	it := seedItem(t, r, "TKJ-LANT", 5)
	b := seedBorrowing(t, r, it.ID, "PMJ-2026-001", 2)

	require.NoError(t, r.DeleteBorrowingRow(ctx, b.ID))
	assert.ErrorIs(t, r.DeleteBorrowingRow(ctx, b.ID), db.ErrNotFound)
	_, err := r.FindBorrowingByID(ctx, b.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)

	empty, err := r.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, db.Statistics{}, *empty)

	a := seedItem(t, r, "TKJ-LANT", 5)
	seedItem(t, r, "TKJ-CRMP", 3)
	b1 := seedBorrowing(t, r, a.ID, "PMJ-2026-001", 2)
	require.NoError(t, r.AdjustLent(ctx, a.ID, 2))
	seedBorrowing(t, r, a.ID, "PMJ-2026-002", 1)
	require.NoError(t, r.AdjustLent(ctx, a.ID, 1))
	require.NoError(t, r.MarkReturned(ctx, b1.Code, nil, time.Now().UTC()))
	require.NoError(t, r.AdjustLent(ctx, a.ID, -2))

	s, err := r.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, db.Statistics{
		TotalItems:          2,
		TotalBorrowings:     2,
		ActiveBorrowings:    1,
		CompletedBorrowings: 1,
		TotalStock:          8,
		TotalLent:           1,
		TotalAvailable:      7,
	}, *s)

	sum, err := r.ActiveQuantity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum)
}

func TestAdmins(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)

	a := &models.Admin{Username: " Admin ", PasswordHash: "x", FullName: "Admin TKJ"}
	require.NoError(t, r.CreateAdmin(ctx, a))
	assert.Equal(t, "admin", a.Username)

	err := r.CreateAdmin(ctx, &models.Admin{Username: "ADMIN", PasswordHash: "y"})
	assert.ErrorIs(t, err, db.ErrUsernameTaken)

	n, err := r.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, r.TouchAdminLogin(ctx, a.ID, "127.0.0.1"))
	got, err := r.FindAdminByUsername(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LoginCount)
	assert.NotNil(t, got.LastLoginAt)

	require.NoError(t, r.UpdateAdminPassword(ctx, a.ID, "z"))
	got, err = r.FindAdminByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "z", got.PasswordHash)
	assert.ErrorIs(t, r.UpdateAdminPassword(ctx, 9999, "z"), db.ErrNotFound)
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	r := dbtest.Repo(t)

	require.NoError(t, r.LogAudit(ctx, &models.AuditLog{ActorID: 1, ActorUsername: "admin", Action: "item.create", TargetType: "item", TargetID: 7}))
	require.NoError(t, r.LogAudit(ctx, &models.AuditLog{ActorID: 1, ActorUsername: "admin", Action: "borrowing.delete", TargetType: "borrowing", TargetID: 3}))

	all, err := r.ListAudit(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "borrowing.delete", all[0].Action)

	items, err := r.ListAudit(ctx, "item", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(7), items[0].TargetID)
}

func TestNilIfBlank(t *testing.T) {
	blank, padded := "   ", "  rak 2 "
	assert.Nil(t, db.NilIfBlank(nil))
	assert.Nil(t, db.NilIfBlank(&blank))
	require.NotNil(t, db.NilIfBlank(&padded))
	assert.Equal(t, "rak 2", *db.NilIfBlank(&padded))
}

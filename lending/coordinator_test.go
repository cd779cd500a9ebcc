package lending

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tkj_lending_tool/db"
	"tkj_lending_tool/db/dbtest"
	"tkj_lending_tool/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Coordinator, *db.Repo) {
	t.Helper()
	repo := dbtest.Repo(t)
	c := NewCoordinator(repo, 8, 5*time.Second)

	var mu sync.Mutex
	n := 0
	c.NewCode = func(now time.Time, _ int) string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("PMJ-%d-%03d", now.Year(), n)
	}
	c.Now = func() time.Time { return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) }
	return c, repo
}

func newItem(t *testing.T, repo *db.Repo, stock int) *models.Item {
	t.Helper()
	it := &models.Item{Code: fmt.Sprintf("TKJ-T%03d", stock), Name: "Tester", TotalStock: stock}
	require.NoError(t, repo.CreateItem(context.Background(), it))
	return it
}

func form(itemID uint, qty int) CreateInput {
	return CreateInput{
		ItemID:       itemID,
		BorrowerName: "Budi",
		Purpose:      "praktikum jaringan",
		Staff:        "Bu Sari",
		Quantity:     qty,
	}
}

func lent(t *testing.T, repo *db.Repo, id uint) int {
	t.Helper()
	it, err := repo.FindItemByID(context.Background(), id)
	require.NoError(t, err)
	return it.LentQuantity
}

// lent_quantity must equal the quantities still out.
func requireConserved(t *testing.T, repo *db.Repo, id uint) {
	t.Helper()
	sum, err := repo.ActiveQuantity(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, sum, lent(t, repo, id))
}

func TestCreateAndReturnScenario(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 10)

	b, err := c.Create(ctx, form(it.ID, 4))
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, "PMJ-2026-001", b.Code)
	assert.Equal(t, models.StatusBorrowed, b.Status)
	assert.Equal(t, 4, lent(t, repo, it.ID))

	_, err = c.Create(ctx, form(it.ID, 7))
	var ise *db.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 6, ise.Available)
	assert.Contains(t, err.Error(), "available: 6")
	assert.Equal(t, 4, lent(t, repo, it.ID))

	row, err := c.Return(ctx, b.Code, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, row.Status)
	require.NotNil(t, row.ReturnAt)
	assert.Equal(t, "Tester", row.ItemName)
	assert.Equal(t, 0, lent(t, repo, it.ID))
	requireConserved(t, repo, it.ID)
}

func TestCreateExhaustsStock(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 10)

	_, err := c.Create(ctx, form(it.ID, 10))
	require.NoError(t, err)
	got, err := repo.FindItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available())

	_, err = c.Create(ctx, form(it.ID, 1))
	var ise *db.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 0, ise.Available)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 3)

	cases := []struct {
		name   string
		in     CreateInput
		fields []string
	}{
		{"zero quantity", form(it.ID, 0), []string{"quantity"}},
		{"negative quantity", form(it.ID, -2), []string{"quantity"}},
		{"blank borrower", func() CreateInput { f := form(it.ID, 1); f.BorrowerName = "   "; return f }(), []string{"borrowerName"}},
		{"missing purpose and staff", CreateInput{ItemID: it.ID, BorrowerName: "Budi", Quantity: 1}, []string{"purpose", "staff"}},
		{"missing item", form(0, 1), []string{"itemId"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Create(ctx, tc.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.fields, ve.Fields)
		})
	}
	assert.Equal(t, 0, lent(t, repo, it.ID))
}

func TestCreateUnknownItem(t *testing.T) {
	c, _ := setup(t)
	_, err := c.Create(context.Background(), form(404, 1))
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCreateRetriesCodeCollision(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 5)

	first, err := c.Create(ctx, form(it.ID, 1))
	require.NoError(t, err)

	// the first two attempts hit the existing code
	var attempts []int
	c.NewCode = func(_ time.Time, attempt int) string {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return first.Code
		}
		return "PMJ-2026-999"
	}
	b, err := c.Create(ctx, form(it.ID, 2))
	require.NoError(t, err)
	assert.Equal(t, "PMJ-2026-999", b.Code)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, 3, lent(t, repo, it.ID))
	requireConserved(t, repo, it.ID)
}

func TestCreateRollsBackWhenCodesExhausted(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 5)

	first, err := c.Create(ctx, form(it.ID, 1))
	require.NoError(t, err)

	c.CodeAttempts = 3
	c.NewCode = func(time.Time, int) string { return first.Code }
	_, err = c.Create(ctx, form(it.ID, 2))
	assert.ErrorIs(t, err, ErrCodeExhausted)

	assert.Equal(t, 1, lent(t, repo, it.ID))
	rows, err := repo.ListBorrowings(ctx, db.BorrowingFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReturnTwice(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 5)

	b, err := c.Create(ctx, form(it.ID, 2))
	require.NoError(t, err)

	sig := " uploads/ttd.png "
	row, err := c.Return(ctx, b.Code, &sig)
	require.NoError(t, err)
	require.NotNil(t, row.SignaturePhoto)
	assert.Equal(t, "uploads/ttd.png", *row.SignaturePhoto)

	_, err = c.Return(ctx, b.Code, nil)
	assert.ErrorIs(t, err, db.ErrNotFoundOrAlreadyReturned)
	assert.Equal(t, 0, lent(t, repo, it.ID))

	_, err = c.Return(ctx, "PMJ-1999-000", nil)
	assert.ErrorIs(t, err, db.ErrNotFoundOrAlreadyReturned)
}

func TestReturnUsesRecordedQuantity(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 10)

	b, err := c.Create(ctx, form(it.ID, 3))
	require.NoError(t, err)

	// an admin edit of the stock in between must not change what is released
	stock := 4
	_, err = repo.UpdateItemMetadata(ctx, it.ID, db.ItemFields{TotalStock: &stock})
	require.NoError(t, err)

	_, err = c.Return(ctx, b.Code, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, lent(t, repo, it.ID))
}

func TestDeleteBorrowingReleasesStock(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 10)

	keep, err := c.Create(ctx, form(it.ID, 2))
	require.NoError(t, err)
	drop, err := c.Create(ctx, form(it.ID, 3))
	require.NoError(t, err)
	assert.Equal(t, 5, lent(t, repo, it.ID))

	deleted, err := c.DeleteBorrowing(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, drop.Code, deleted.Code)
	assert.Equal(t, 2, lent(t, repo, it.ID))

	_, err = repo.FindBorrowingByID(ctx, drop.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// returned records leave the counter alone
	_, err = c.Return(ctx, keep.Code, nil)
	require.NoError(t, err)
	_, err = c.DeleteBorrowing(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, lent(t, repo, it.ID))

	_, err = c.DeleteBorrowing(ctx, keep.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDeleteWholeReservation(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 5)

	b, err := c.Create(ctx, form(it.ID, 5))
	require.NoError(t, err)
	_, err = c.DeleteBorrowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, lent(t, repo, it.ID))
}

func TestItemDeletionGuard(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 5)

	b, err := c.Create(ctx, form(it.ID, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, repo.DeleteItem(ctx, it.ID), db.ErrHasActiveBorrowings)

	_, err = c.Return(ctx, b.Code, nil)
	require.NoError(t, err)
	assert.NoError(t, repo.DeleteItem(ctx, it.ID))
}

func TestConcurrentCreateForLastUnit(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 1)

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = c.Create(ctx, form(it.ID, 1))
		}(i)
	}
	close(start)
	wg.Wait()

	ok, short := 0, 0
	for _, err := range errs {
		var ise *db.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case assert.ErrorAs(t, err, &ise):
			short++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 1, lent(t, repo, it.ID))
	requireConserved(t, repo, it.ID)
}

func TestConservationOverMixedOperations(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	it := newItem(t, repo, 20)

	var out []*models.Borrowing
	for _, q := range []int{3, 1, 4, 1, 5} {
		b, err := c.Create(ctx, form(it.ID, q))
		require.NoError(t, err)
		out = append(out, b)
		requireConserved(t, repo, it.ID)
	}

	_, err := c.Return(ctx, out[0].Code, nil)
	require.NoError(t, err)
	requireConserved(t, repo, it.ID)

	_, err = c.DeleteBorrowing(ctx, out[2].ID)
	require.NoError(t, err)
	requireConserved(t, repo, it.ID)

	_, err = c.DeleteBorrowing(ctx, out[0].ID)
	require.NoError(t, err)
	requireConserved(t, repo, it.ID)

	assert.Equal(t, 1+1+5, lent(t, repo, it.ID))

	rows, err := repo.ListBorrowings(ctx, db.BorrowingFilter{})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, r.Status == models.StatusBorrowed, r.ReturnAt == nil, r.Code)
	}
}

func TestStatisticsEmpty(t *testing.T) {
	_, repo := setup(t)
	s, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.TotalAvailable)
	assert.Zero(t, s.TotalItems)
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                 nil,
		"invalid":            &ValidationError{Fields: []string{"quantity"}},
		"insufficient_stock": fmt.Errorf("wrap: %w", &db.InsufficientStockError{}),
		"not_found":          ErrItemNotFound,
		"conflict":           db.ErrHasActiveBorrowings,
		"error":              ErrCodeExhausted,
	}
	for want, err := range cases {
		assert.Equal(t, want, Outcome(err))
	}
	assert.Equal(t, "not_found", Outcome(db.ErrNotFoundOrAlreadyReturned))
}

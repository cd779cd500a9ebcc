// db/repo_stats.go
package db

import (
	"context"
	"fmt"

	"tkj_lending_tool/models"
)

// Statistics keeps the JSON keys the dashboard has always read.
type Statistics struct {
	TotalItems          int64 `gorm:"column:total_barang" json:"total_barang"`
	TotalBorrowings     int64 `gorm:"column:total_peminjaman" json:"total_peminjaman"`
	ActiveBorrowings    int64 `gorm:"column:active_peminjaman" json:"active_peminjaman"`
	CompletedBorrowings int64 `gorm:"column:completed_peminjaman" json:"completed_peminjaman"`
	TotalStock          int64 `gorm:"column:total_stok" json:"total_stok"`
	TotalLent           int64 `gorm:"column:total_dipinjam" json:"total_dipinjam"`
	TotalAvailable      int64 `gorm:"-" json:"total_tersedia"`
}

// one statement, so every figure comes from the same snapshot
var statisticsQuery = fmt.Sprintf(`
SELECT
  (SELECT COUNT(*) FROM %[1]s) AS total_barang,
  (SELECT COUNT(*) FROM %[2]s) AS total_peminjaman,
  (SELECT COUNT(*) FROM %[2]s WHERE status = '%[3]s') AS active_peminjaman,
  (SELECT COUNT(*) FROM %[2]s WHERE status = '%[4]s') AS completed_peminjaman,
  (SELECT COALESCE(SUM(total_stock), 0) FROM %[1]s) AS total_stok,
  (SELECT COALESCE(SUM(lent_quantity), 0) FROM %[1]s) AS total_dipinjam
`, models.ItemTable, models.BorrowingTable, models.StatusBorrowed, models.StatusReturned)

func (r *Repo) Statistics(ctx context.Context) (*Statistics, error) {
	var s Statistics
	if err := r.DB.WithContext(ctx).Raw(statisticsQuery).Scan(&s).Error; err != nil {
		return nil, mapError("statistics", err)
	}
	s.TotalAvailable = s.TotalStock - s.TotalLent
	return &s, nil
}

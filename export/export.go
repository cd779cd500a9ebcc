// Package export renders list results as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"tkj_lending_tool/db"
	"tkj_lending_tool/models"

	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04"

var (
	itemHeader = []interface{}{
		"id", "code", "name", "total_stock", "lent_quantity", "available", "notes", "created_at",
	}
	borrowingHeader = []interface{}{
		"id", "code", "item_code", "item_name", "borrower_name", "contact", "purpose", "staff",
		"quantity", "status", "loan_at", "return_at",
	}
)

func ItemsWorkbook(items []models.Item) ([]byte, error) {
	rows := make([][]interface{}, 0, len(items))
	for _, it := range items {
		rows = append(rows, []interface{}{
			it.ID,
			it.Code,
			it.Name,
			it.TotalStock,
			it.LentQuantity,
			it.Available(),
			str(it.Notes),
			it.CreatedAt.Format(timeLayout),
		})
	}
	return workbook("Items", itemHeader, rows)
}

func BorrowingsWorkbook(list []db.BorrowingRow) ([]byte, error) {
	rows := make([][]interface{}, 0, len(list))
	for _, b := range list {
		returned := ""
		if b.ReturnAt != nil {
			returned = b.ReturnAt.Format(timeLayout)
		}
		rows = append(rows, []interface{}{
			b.ID,
			b.Code,
			b.ItemCode,
			b.ItemName,
			b.BorrowerName,
			str(b.Contact),
			b.Purpose,
			b.Staff,
			b.Quantity,
			string(b.Status),
			b.LoanAt.Format(timeLayout),
			returned,
		})
	}
	return workbook("Borrowings", borrowingHeader, rows)
}

// FileName is the download name for a workbook exported at now.
func FileName(kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, now.Format("20060102_150405"))
}

func workbook(sheet string, header []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

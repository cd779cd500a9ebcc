// controllers/export_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"time"

	"tkj_lending_tool/export"

	"github.com/gin-gonic/gin"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportController struct{ *Srv }

func NewExportController(s *Srv) *ExportController { return &ExportController{Srv: s} }

// GET /api/export/items.xlsx
func (ec *ExportController) Items(c *gin.Context) {
	items, err := ec.Repo.ListItems(c.Request.Context(), c.Query("q"))
	if err != nil {
		ec.fail(c, err)
		return
	}
	b, err := export.ItemsWorkbook(items)
	if err != nil {
		ec.fail(c, err)
		return
	}
	ec.attach(c, "items", b)
}

// GET /api/export/borrowings.xlsx?status=&q=
func (ec *ExportController) Borrowings(c *gin.Context) {
	f, ok := borrowingFilter(c)
	if !ok {
		return
	}
	rows, err := ec.Repo.ListBorrowings(c.Request.Context(), f)
	if err != nil {
		ec.fail(c, err)
		return
	}
	b, err := export.BorrowingsWorkbook(rows)
	if err != nil {
		ec.fail(c, err)
		return
	}
	ec.attach(c, "borrowings", b)
}

func (ec *ExportController) attach(c *gin.Context, kind string, b []byte) {
	name := export.FileName(kind, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxMime, b)
}

// controllers/borrowings_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"tkj_lending_tool/app"
	"tkj_lending_tool/db"
	"tkj_lending_tool/lending"
	"tkj_lending_tool/models"

	"github.com/gin-gonic/gin"
)

type BorrowingController struct{ *Srv }

func NewBorrowingController(s *Srv) *BorrowingController { return &BorrowingController{Srv: s} }

// POST /api/borrowings
func (bc *BorrowingController) Create(c *gin.Context) {
	var in lending.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
		return
	}
	b, err := bc.Lending.Create(c.Request.Context(), in)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.changed(c, "borrowing.create", "borrowing", b.ID, b.Code)
	c.JSON(http.StatusCreated, app.H{"id": b.ID, "code": b.Code, "borrowing": b})
}

// GET /api/borrowings/code/:code
func (bc *BorrowingController) GetByCode(c *gin.Context) {
	row, err := bc.Repo.FindBorrowingByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowing": row})
}

type returnRequest struct {
	SignaturePhoto *string `json:"signaturePhoto"`
}

// PUT /api/borrowings/return/:code. The body is optional.
func (bc *BorrowingController) Return(c *gin.Context) {
	var in returnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
			return
		}
	}
	row, err := bc.Lending.Return(c.Request.Context(), c.Param("code"), in.SignaturePhoto)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.changed(c, "borrowing.return", "borrowing", row.ID, row.Code)
	c.JSON(http.StatusOK, app.H{"borrowing": row})
}

// GET /api/borrowings?status=Borrowed|Returned&q=
func (bc *BorrowingController) List(c *gin.Context) {
	f, ok := borrowingFilter(c)
	if !ok {
		return
	}
	rows, err := bc.Repo.ListBorrowings(c.Request.Context(), f)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowings": rows})
}

// GET /api/borrowings/:id
func (bc *BorrowingController) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	row, err := bc.Repo.FindBorrowingByID(c.Request.Context(), id)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrowing": row})
}

// GET /api/borrowings/statistics
func (bc *BorrowingController) Statistics(c *gin.Context) {
	st, err := bc.Stats.Get(c.Request.Context(), bc.Repo.Statistics)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type updateBorrowingRequest struct {
	BorrowerName *string `json:"borrowerName"`
	Contact      *string `json:"contact"`
	Purpose      *string `json:"purpose"`
	Staff        *string `json:"staff"`
}

// PUT /api/borrowings/:id. Status, quantity and item are not editable here.
func (bc *BorrowingController) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in updateBorrowingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
		return
	}
	var blank []string
	for name, v := range map[string]*string{"borrowerName": in.BorrowerName, "purpose": in.Purpose, "staff": in.Staff} {
		if v != nil && strings.TrimSpace(*v) == "" {
			blank = append(blank, name)
		}
	}
	if len(blank) > 0 {
		bc.fail(c, &lending.ValidationError{Fields: blank})
		return
	}

	row, err := bc.Repo.UpdateBorrowingMetadata(c.Request.Context(), id, db.BorrowingFields{
		BorrowerName: in.BorrowerName,
		Contact:      in.Contact,
		Purpose:      in.Purpose,
		Staff:        in.Staff,
	})
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.changed(c, "borrowing.update", "borrowing", row.ID, row.Code)
	c.JSON(http.StatusOK, app.H{"borrowing": row})
}

// DELETE /api/borrowings/:id
func (bc *BorrowingController) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	b, err := bc.Lending.DeleteBorrowing(c.Request.Context(), id)
	if err != nil {
		bc.fail(c, err)
		return
	}
	bc.changed(c, "borrowing.delete", "borrowing", b.ID, fmt.Sprintf("%s status=%s quantity=%d", b.Code, b.Status, b.Quantity))
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func borrowingFilter(c *gin.Context) (db.BorrowingFilter, bool) {
	f := db.BorrowingFilter{Status: models.BorrowingStatus(c.Query("status")), Q: c.Query("q")}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, app.H{"error": "status must be Borrowed or Returned"})
		return f, false
	}
	return f, true
}

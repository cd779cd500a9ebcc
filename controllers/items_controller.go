// controllers/items_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tkj_lending_tool/app"
	"tkj_lending_tool/codegen"
	"tkj_lending_tool/db"
	"tkj_lending_tool/models"

	"github.com/gin-gonic/gin"
)

var errItemCodeExhausted = fmt.Errorf("%w: could not allocate a unique item code", db.ErrStorage)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// GET /api/items?q=
func (ic *ItemController) ListItems(c *gin.Context) {
	items, err := ic.Repo.ListItems(c.Request.Context(), c.Query("q"))
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// GET /api/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	it, err := ic.Repo.FindItemByID(c.Request.Context(), id)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"item": it})
}

// GET /api/items/code/:code, the QR scan and manual lookup path
func (ic *ItemController) GetItemByCode(c *gin.Context) {
	it, err := ic.Repo.FindItemByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"item": it})
}

type createItemRequest struct {
	Code       string  `json:"code"` // derived from the name when empty
	Name       string  `json:"name" binding:"required"`
	TotalStock *int    `json:"totalStock" binding:"required,min=0"`
	Photo      *string `json:"photo"`
	Notes      *string `json:"notes"`
}

// POST /api/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	var in createItemRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "name is required", "fields": []string{"name"}})
		return
	}

	ctx := c.Request.Context()
	it := &models.Item{
		Code:       strings.TrimSpace(in.Code),
		Name:       in.Name,
		TotalStock: *in.TotalStock,
		Photo:      db.NilIfBlank(in.Photo),
		Notes:      db.NilIfBlank(in.Notes),
	}
	var err error
	if it.Code == "" {
		err = ic.createWithDerivedCode(ctx, it)
	} else {
		err = ic.Repo.CreateItem(ctx, it)
	}
	if err != nil {
		ic.fail(c, err)
		return
	}
	ic.changed(c, "item.create", "item", it.ID, it.Code)
	c.JSON(http.StatusCreated, app.H{"item": it})
}

// createWithDerivedCode derives the code from the item name. A duplicate means another
// insert took that code after the taken set was read, so the set is read again.
func (ic *ItemController) createWithDerivedCode(ctx context.Context, it *models.Item) error {
	for attempt := 1; attempt <= ic.Cfg.CodeAttempts; attempt++ {
		taken, err := ic.Repo.ItemCodesWithPrefix(ctx, codegen.ItemPrefix+"-")
		if err != nil {
			return err
		}
		it.Code = codegen.ItemCode(it.Name, func(s string) bool { return taken[s] })
		err = ic.Repo.CreateItem(ctx, it)
		if !errors.Is(err, db.ErrDuplicateCode) {
			return err
		}
	}
	return errItemCodeExhausted
}

type updateItemRequest struct {
	Code       *string `json:"code"`
	Name       *string `json:"name"`
	TotalStock *int    `json:"totalStock" binding:"omitempty,min=0"`
	Photo      *string `json:"photo"`
	Notes      *string `json:"notes"`
}

// PUT /api/items/:id. lentQuantity is not accepted; the code may be echoed back but
// not changed.
func (ic *ItemController) UpdateItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in updateItemRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "name cannot be empty", "fields": []string{"name"}})
		return
	}

	ctx := c.Request.Context()
	if in.Code != nil {
		cur, err := ic.Repo.FindItemByID(ctx, id)
		if err != nil {
			ic.fail(c, err)
			return
		}
		if strings.TrimSpace(*in.Code) != cur.Code {
			c.JSON(http.StatusBadRequest, app.H{"error": "item code cannot be changed", "fields": []string{"code"}})
			return
		}
	}

	it, err := ic.Repo.UpdateItemMetadata(ctx, id, db.ItemFields{
		Name:       in.Name,
		TotalStock: in.TotalStock,
		Photo:      in.Photo,
		Notes:      in.Notes,
	})
	if err != nil {
		ic.fail(c, err)
		return
	}
	ic.changed(c, "item.update", "item", it.ID, fmt.Sprintf("totalStock=%d", it.TotalStock))
	c.JSON(http.StatusOK, app.H{"item": it})
}

// DELETE /api/items/:id
func (ic *ItemController) DeleteItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := ic.Repo.DeleteItem(c.Request.Context(), id); err != nil {
		ic.fail(c, err)
		return
	}
	ic.changed(c, "item.delete", "item", id, "")
	c.JSON(http.StatusOK, app.H{"ok": true})
}

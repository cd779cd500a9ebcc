// controllers/audit_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"tkj_lending_tool/app"

	"github.com/gin-gonic/gin"
)

type AuditController struct{ *Srv }

func NewAuditController(s *Srv) *AuditController { return &AuditController{Srv: s} }

// GET /api/admin/audit?targetType=item|borrowing|admin&limit=
func (au *AuditController) List(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	logs, err := au.Repo.ListAudit(c.Request.Context(), c.Query("targetType"), limit)
	if err != nil {
		au.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"logs": logs})
}

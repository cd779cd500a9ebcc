package routes

import (
	"net/http"

	"tkj_lending_tool/app"
	"tkj_lending_tool/controllers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// controllers and dependencies
	s := controllers.GetSrv(a)
	itemCtl := controllers.NewItemController(s)
	borrowCtl := controllers.NewBorrowingController(s)
	adminCtl := controllers.NewAdminController(s)
	auditCtl := controllers.NewAuditController(s)
	exportCtl := controllers.NewExportController(s)

	// shared middleware
	authMW := app.AuthRequired(s.Sessions, s.Signer, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, a.Config.SeenThrottle, a.Log)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	if a.Config.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	}

	// ------------------------------
	// Public: kiosk browsing, borrowing and returning
	// ------------------------------
	items := r.Group("/api/items")
	{
		items.GET("", itemCtl.ListItems) // ?q=
		items.GET("/:id", itemCtl.GetItem)
		items.GET("/code/:code", itemCtl.GetItemByCode)
	}

	borrowings := r.Group("/api/borrowings")
	{
		borrowings.POST("", borrowCtl.Create)
		borrowings.GET("/code/:code", borrowCtl.GetByCode)
		borrowings.PUT("/return/:code", borrowCtl.Return)
	}

	r.POST("/api/admin/login", adminCtl.Login)

	// ------------------------------
	// Admin only
	// ------------------------------
	itemsAdmin := r.Group("/api/items", authMW, seenMW)
	{
		itemsAdmin.POST("", itemCtl.CreateItem)
		itemsAdmin.PUT("/:id", itemCtl.UpdateItem)
		itemsAdmin.DELETE("/:id", itemCtl.DeleteItem)
	}

	borrowingsAdmin := r.Group("/api/borrowings", authMW, seenMW)
	{
		borrowingsAdmin.GET("", borrowCtl.List) // ?status=Borrowed|Returned&q=
		borrowingsAdmin.GET("/statistics", borrowCtl.Statistics)
		borrowingsAdmin.GET("/:id", borrowCtl.Get)
		borrowingsAdmin.PUT("/:id", borrowCtl.Update)
		borrowingsAdmin.DELETE("/:id", borrowCtl.Delete)
	}

	exports := r.Group("/api/export", authMW, seenMW)
	{
		exports.GET("/items.xlsx", exportCtl.Items)
		exports.GET("/borrowings.xlsx", exportCtl.Borrowings) // ?status=&q=
	}

	admin := r.Group("/api/admin", authMW, seenMW)
	{
		admin.GET("/profile", adminCtl.Profile)
		admin.POST("/logout", adminCtl.Logout)
		admin.POST("/register", adminCtl.Register)
		admin.PUT("/password", adminCtl.ChangePassword)
		admin.GET("/audit", auditCtl.List) // ?targetType=&limit=
	}
}

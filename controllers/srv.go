// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tkj_lending_tool/app"
	"tkj_lending_tool/auth"
	"tkj_lending_tool/cache"
	"tkj_lending_tool/config"
	"tkj_lending_tool/db"
	"tkj_lending_tool/lending"
	"tkj_lending_tool/models"
	"tkj_lending_tool/session"

	"github.com/gin-gonic/gin"
)

type Srv struct {
	Repo     *db.Repo
	Lending  lending.Service
	Stats    *cache.Stats
	Sessions *session.AdminSessionStore
	Logins   *session.LoginLimiter
	Signer   *auth.Signer
	Log      *slog.Logger
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     a.Repo,
		Lending:  a.Lending,
		Stats:    a.Stats,
		Sessions: a.AdminSessions(),
		Logins:   a.Logins(),
		Signer:   a.Signer,
		Log:      a.Log,
		Cfg:      a.Config,
	}
}

// --- helpers ---

// setSessionCookie with a negative maxAge clears the cookie.
func (s *Srv) setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	age := int(maxAge / time.Second)
	if maxAge < 0 {
		age = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     app.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.Cfg.WebOrigin, "https://"),
		MaxAge:   age,
	})
}

// fail maps an error from the store or the coordinator onto a response.
func (s *Srv) fail(c *gin.Context, err error) {
	var (
		ve  *lending.ValidationError
		ise *db.InsufficientStockError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "fields": ve.Fields})
	case errors.As(err, &ise):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "available": ise.Available})
	case errors.Is(err, lending.ErrItemNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "item not found"})
	case errors.Is(err, db.ErrNotFoundOrAlreadyReturned):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
	case errors.Is(err, db.ErrDuplicateCode),
		errors.Is(err, db.ErrUsernameTaken),
		errors.Is(err, db.ErrHasActiveBorrowings),
		errors.Is(err, db.ErrStockBelowLent):
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "request timed out"})
	default:
		s.Log.Error("request failed", slog.String("route", c.FullPath()), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

// changed runs after every successful item or borrowing mutation: it drops the cached
// statistics and, for admin actions, appends an audit entry. Neither can fail the request.
func (s *Srv) changed(c *gin.Context, action, targetType string, targetID uint, detail string) {
	ctx := c.Request.Context()
	s.Stats.Invalidate(ctx)

	actorID, actor := app.Actor(c)
	if actorID == 0 {
		return
	}
	entry := &models.AuditLog{
		ActorID:       actorID,
		ActorUsername: actor,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
	}
	if detail != "" {
		entry.Detail = &detail
	}
	if err := s.Repo.LogAudit(ctx, entry); err != nil {
		s.Log.Error("can't write audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// controllers/admin_controller.go
package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"tkj_lending_tool/app"
	"tkj_lending_tool/auth"
	"tkj_lending_tool/db"
	"tkj_lending_tool/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminController struct{ *Srv }

func NewAdminController(s *Srv) *AdminController { return &AdminController{Srv: s} }

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/admin/login
func (ac *AdminController) Login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username and password are required"})
		return
	}
	ctx := c.Request.Context()
	ip := c.ClientIP()

	locked, err := ac.Logins.Locked(ctx, in.Username, ip)
	if err != nil {
		ac.Log.Warn("can't check login limiter", slog.Any("error", err))
	}
	if locked {
		c.JSON(http.StatusTooManyRequests, app.H{"error": "too many failed attempts, try again later"})
		return
	}

	a, err := ac.Repo.FindAdminByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		ac.fail(c, err)
		return
	}
	if a == nil || !auth.CheckPassword(a.PasswordHash, in.Password) {
		if _, err := ac.Logins.Fail(ctx, in.Username, ip); err != nil {
			ac.Log.Warn("can't record failed login", slog.Any("error", err))
		}
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid username or password"})
		return
	}
	if err := ac.Logins.Reset(ctx, in.Username, ip); err != nil {
		ac.Log.Warn("can't reset login limiter", slog.Any("error", err))
	}

	sid := uuid.NewString()
	if err := ac.Sessions.Create(ctx, sid, a.ID, a.Username); err != nil {
		ac.Log.Error("can't create session", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "session store unavailable"})
		return
	}
	token, exp, err := ac.Signer.Issue(a.ID, a.Username, sid)
	if err != nil {
		_ = ac.Sessions.Delete(ctx, sid)
		ac.fail(c, err)
		return
	}
	if err := ac.Repo.TouchAdminLogin(ctx, a.ID, ip); err != nil {
		ac.Log.Warn("can't touch admin login", slog.Uint64("admin_id", uint64(a.ID)), slog.Any("error", err))
	}

	ac.setSessionCookie(c.Writer, token, ac.Sessions.TTL())
	ac.Log.Info("admin logged in", slog.String("username", a.Username), slog.String("ip", ip))
	c.JSON(http.StatusOK, app.H{"token": token, "expiresAt": exp, "admin": a})
}

// POST /api/admin/logout
func (ac *AdminController) Logout(c *gin.Context) {
	if sid := c.GetString("sessionID"); sid != "" {
		if err := ac.Sessions.Delete(c.Request.Context(), sid); err != nil {
			ac.Log.Warn("can't delete session", slog.Any("error", err))
		}
	}
	ac.setSessionCookie(c.Writer, "", -1)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/admin/profile
func (ac *AdminController) Profile(c *gin.Context) {
	id, _ := app.Actor(c)
	a, err := ac.Repo.FindAdminByID(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"admin": a})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
}

// POST /api/admin/register, only reachable by an authenticated admin
func (ac *AdminController) Register(c *gin.Context) {
	var in registerRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username, password and fullName are required"})
		return
	}
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.FullName) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "username and fullName cannot be blank"})
		return
	}
	if len(in.Password) < app.MinPasswordLen {
		c.JSON(http.StatusBadRequest, app.H{
			"error":  fmt.Sprintf("password must be at least %d characters", app.MinPasswordLen),
			"fields": []string{"password"},
		})
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		ac.fail(c, err)
		return
	}
	a := &models.Admin{Username: in.Username, PasswordHash: hash, FullName: strings.TrimSpace(in.FullName)}
	if err := ac.Repo.CreateAdmin(c.Request.Context(), a); err != nil {
		ac.fail(c, err)
		return
	}

	actorID, actor := app.Actor(c)
	if err := ac.Repo.LogAudit(c.Request.Context(), &models.AuditLog{
		ActorID:       actorID,
		ActorUsername: actor,
		Action:        "admin.register",
		TargetType:    "admin",
		TargetID:      a.ID,
	}); err != nil {
		ac.Log.Error("can't write audit log", slog.Any("error", err))
	}
	c.JSON(http.StatusCreated, app.H{"admin": a})
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// PUT /api/admin/password. Every session of the admin is revoked, this one included.
func (ac *AdminController) ChangePassword(c *gin.Context) {
	var in passwordRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "currentPassword and newPassword are required"})
		return
	}
	if len(in.NewPassword) < app.MinPasswordLen {
		c.JSON(http.StatusBadRequest, app.H{
			"error":  fmt.Sprintf("password must be at least %d characters", app.MinPasswordLen),
			"fields": []string{"newPassword"},
		})
		return
	}

	ctx := c.Request.Context()
	id, username := app.Actor(c)
	a, err := ac.Repo.FindAdminByID(ctx, id)
	if err != nil {
		ac.fail(c, err)
		return
	}
	if !auth.CheckPassword(a.PasswordHash, in.CurrentPassword) {
		c.JSON(http.StatusForbidden, app.H{"error": "current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		ac.fail(c, err)
		return
	}
	if err := ac.Repo.UpdateAdminPassword(ctx, a.ID, hash); err != nil {
		ac.fail(c, err)
		return
	}
	if err := ac.Sessions.RevokeAllForAdmin(ctx, a.ID); err != nil {
		ac.Log.Error("can't revoke sessions", slog.Uint64("admin_id", uint64(a.ID)), slog.Any("error", err))
	}
	if err := ac.Repo.LogAudit(ctx, &models.AuditLog{
		ActorID:       a.ID,
		ActorUsername: username,
		Action:        "admin.password",
		TargetType:    "admin",
		TargetID:      a.ID,
	}); err != nil {
		ac.Log.Error("can't write audit log", slog.Any("error", err))
	}

	ac.setSessionCookie(c.Writer, "", -1)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

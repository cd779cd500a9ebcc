package app

import (
	"errors"
	"net/http"
	"strings"

	"tkj_lending_tool/auth"
	"tkj_lending_tool/db"
	"tkj_lending_tool/session"

	"github.com/gin-gonic/gin"
)

const SessionCookie = "tkj_session"

// AuthRequired accepts a bearer token or the session cookie. The token's session must
// still exist in redis and the admin must still exist in the database.
func AuthRequired(sessions *session.AdminSessionStore, signer *auth.Signer, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			if ck, err := c.Request.Cookie(SessionCookie); err == nil {
				token = ck.Value
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}

		claims, err := signer.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid token"})
			return
		}

		ctx := c.Request.Context()
		if _, err := sessions.Get(ctx, claims.ID); err != nil {
			if errors.Is(err, session.ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "session expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "session store unavailable"})
			return
		}

		a, err := repo.FindAdminByID(ctx, claims.AdminID)
		if err != nil {
			_ = sessions.Delete(ctx, claims.ID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}

		c.Set("adminID", a.ID)
		c.Set("username", a.Username)
		c.Set("sessionID", claims.ID)
		c.Next()
	}
}

// Actor returns the admin set by AuthRequired.
func Actor(c *gin.Context) (uint, string) {
	id := c.GetUint("adminID")
	return id, c.GetString("username")
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

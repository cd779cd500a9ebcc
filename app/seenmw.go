// app/seenmw.go
package app

import (
	"fmt"
	"log/slog"
	"time"

	"tkj_lending_tool/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen updates last_seen_at at most once per throttle window per admin.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := Actor(c)
		if id == 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("tkj:admin:lastseen:%d", id)
		ok, err := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result()
		if err != nil {
			log.Warn("can't throttle last seen", slog.Any("error", err))
		}
		if ok {
			if err := repo.TouchAdminSeen(c.Request.Context(), id); err != nil {
				log.Warn("can't touch last seen", slog.Uint64("admin_id", uint64(id)), slog.Any("error", err))
			}
		}
		c.Next()
	}
}

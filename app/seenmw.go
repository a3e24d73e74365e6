// app/seenmw.go
package app

import (
	"Gin_postgres_redis_asset_lending/db"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchPresence marks the acting user Online, at most once per throttle window.
func TouchPresence(repo *db.Repo, rdb *redis.Client, throttle time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := ActorID(c)
		if uid == "" {
			c.Next()
			return
		}

		key := "user:lastseen:" + uid
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			// 忽略错误，不阻塞请求
			if err := repo.TouchUserSeen(c, uid, time.Now()); err != nil {
				logger.Warn("touch presence", "user", uid, "err", err)
			}
		}
		c.Next()
	}
}

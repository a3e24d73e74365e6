package app

import (
	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/models"
	"Gin_postgres_redis_asset_lending/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

// Context keys set by ResolveActor.
const (
	CtxUserID = "userID"
	CtxRole   = "role"
)

// ResolveActor looks up the app_session cookie and, when it names a live
// user, puts the user's id and role in the context. Requests without a valid
// session pass through anonymous.
func ResolveActor(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.Next()
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.Next()
			return
		}

		// 确认用户仍存在（可能已被归档）
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.Next()
			return
		}
		c.Set(CtxUserID, u.ID)
		c.Set(CtxRole, u.Role)
		c.Next()
	}
}

func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// AdminOnly admits Admin and SuperAdmin actors. Use after ActorRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		switch role {
		case models.RoleAdmin, models.RoleSuperAdmin:
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
		}
	}
}

func ActorID(c *gin.Context) string {
	v, _ := c.Get(CtxUserID)
	uid, _ := v.(string)
	return uid
}

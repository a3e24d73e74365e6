// controllers/srv.go
package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"Gin_postgres_redis_asset_lending/app"
	"Gin_postgres_redis_asset_lending/config"
	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Srv struct {
	Repo     *db.Repo
	Lending  *lending.Service
	Archiver *lending.Archiver
	AppSess  *session.AppSessionStore
	Log      *slog.Logger
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     a.Repo,
		Lending:  a.Lending,
		Archiver: a.Archiver,
		AppSess:  a.AppSessions(),
		Log:      a.Log,
		Cfg:      a.Config,
	}
}

func (s *Srv) GetAppSess() *session.AppSessionStore { return s.AppSess }

// --- helpers ---

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg, "code": "BadRequest"})
}

// validUUID answers 400 and returns false when v is not a UUID.
func validUUID(c *gin.Context, v string) bool {
	if _, err := uuid.Parse(v); err != nil {
		badRequest(c, "invalid uuid")
		return false
	}
	return true
}

func queryInt(c *gin.Context, k string, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery(k, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

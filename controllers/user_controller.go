package controllers

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_asset_lending/app"
	"Gin_postgres_redis_asset_lending/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		uc.respondError(c, err)
		return
	}
	online, err := uc.Repo.CountOnline(c.Request.Context())
	if err != nil {
		uc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total":  res.Total,
		"online": online,
		"users":  res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if !validUUID(c, id) { // 校验 UUID 格式
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found", "code": "UserNotFound"})
		return
	}
	if err != nil {
		uc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// PUT /api/users/:id/presence {"presence":"Offline"}
// 在线用户不能归档，管理员可先强制下线
func (uc *UserController) SetPresence(c *gin.Context) {
	var in struct {
		Presence models.Presence `json:"presence" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.Presence != models.PresenceOnline && in.Presence != models.PresenceOffline {
		badRequest(c, "presence must be Online or Offline")
		return
	}
	id := c.Param("id")
	if !validUUID(c, id) {
		return
	}
	err := uc.Repo.SetUserPresence(c.Request.Context(), id, in.Presence)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found", "code": "UserNotFound"})
		return
	}
	if err != nil {
		uc.respondError(c, err)
		return
	}
	if in.Presence == models.PresenceOffline {
		_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

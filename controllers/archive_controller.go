package controllers

import (
	"net/http"

	"Gin_postgres_redis_asset_lending/app"

	"github.com/gin-gonic/gin"
)

type ArchiveController struct{ *Srv }

func NewArchiveController(s *Srv) *ArchiveController { return &ArchiveController{Srv: s} }

// Assets

func (ac *ArchiveController) ArchiveAsset(c *gin.Context) {
	rec, err := ac.Archiver.ArchiveAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (ac *ArchiveController) RestoreAsset(c *gin.Context) {
	a, err := ac.Archiver.RestoreAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ac *ArchiveController) PurgeAsset(c *gin.Context) {
	if err := ac.Archiver.PurgeArchivedAsset(c.Request.Context(), c.Param("id")); err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (ac *ArchiveController) ListAssets(c *gin.Context) {
	as, err := ac.Repo.ListArchivedAssets(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": as})
}

// Loans

func (ac *ArchiveController) ArchiveLoan(c *gin.Context) {
	rec, err := ac.Archiver.ArchiveLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (ac *ArchiveController) RestoreLoan(c *gin.Context) {
	l, err := ac.Archiver.RestoreLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (ac *ArchiveController) UpdateLoanNote(c *gin.Context) {
	var in struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := ac.Archiver.UpdateArchivedLoanNote(c.Request.Context(), c.Param("id"), in.Note)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (ac *ArchiveController) PurgeLoan(c *gin.Context) {
	if err := ac.Archiver.PurgeArchivedLoan(c.Request.Context(), c.Param("id")); err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (ac *ArchiveController) ListLoans(c *gin.Context) {
	ls, err := ac.Repo.ListArchivedLoans(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ls})
}

// Users

// 归档用户：成功后撤销其所有会话
func (ac *ArchiveController) ArchiveUser(c *gin.Context) {
	id := c.Param("id")
	rec, err := ac.Archiver.ArchiveUser(c.Request.Context(), app.ActorID(c), id)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	if err := ac.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
		ac.Log.Warn("revoke sessions of archived user", "user", id, "err", err)
	}
	c.JSON(http.StatusOK, rec)
}

func (ac *ArchiveController) RestoreUser(c *gin.Context) {
	u, err := ac.Archiver.RestoreUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (ac *ArchiveController) PurgeUser(c *gin.Context) {
	if err := ac.Archiver.PurgeArchivedUser(c.Request.Context(), c.Param("id")); err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (ac *ArchiveController) ListUsers(c *gin.Context) {
	us, err := ac.Repo.ListArchivedUsers(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": us})
}

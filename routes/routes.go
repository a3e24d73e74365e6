package routes

import (
	"Gin_postgres_redis_asset_lending/app"
	"Gin_postgres_redis_asset_lending/controllers"
	"Gin_postgres_redis_asset_lending/metrics"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	itemCtl := controllers.NewItemController(s)
	archiveCtl := controllers.NewArchiveController(s)
	uc := controllers.GetUserController(s)

	// 复用的中间件
	actorMW := app.ResolveActor(s.GetAppSess(), s.Repo)
	requireMW := app.ActorRequired()
	adminMW := app.AdminOnly()
	seenMW := app.TouchPresence(s.Repo, a.RDB, 5*time.Minute, a.Log)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler(a.Registry)))

	api := r.Group("/api", actorMW, seenMW)

	// ------------------------------
	// 资产
	// ------------------------------
	assets := api.Group("/assets")
	{
		assets.GET("", itemCtl.ListAssets) // ?q=&status=&page=&size=
		assets.POST("", itemCtl.CreateAsset)
		assets.GET("/barcode", itemCtl.AssetBarcode) // ?serial=
		assets.PUT("/:id/condition", itemCtl.UpdateCondition)
		assets.GET("/:id/loans", itemCtl.AssetLoans)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	loans := api.Group("/loans")
	{
		loans.GET("", itemCtl.ListLoans)
		loans.POST("", itemCtl.CreateLoan)
		loans.GET("/barcode", itemCtl.LoanBarcode) // ?date=YYYY-MM-DD
		loans.GET("/:barcode", itemCtl.GetLoan)
		loans.PUT("/:barcode/status", itemCtl.UpdateStatus)
		loans.PUT("/:barcode/hidden", itemCtl.SetHidden)
	}

	// ------------------------------
	// 归档 / 恢复 / 永久删除
	// ------------------------------
	archive := api.Group("/archive")
	{
		archive.GET("/assets", archiveCtl.ListAssets)
		archive.POST("/assets/:id", archiveCtl.ArchiveAsset)
		archive.POST("/assets/:id/restore", archiveCtl.RestoreAsset)
		archive.DELETE("/assets/:id", archiveCtl.PurgeAsset)

		archive.GET("/loans", archiveCtl.ListLoans)
		archive.POST("/loans/:id", archiveCtl.ArchiveLoan)
		archive.POST("/loans/:id/restore", archiveCtl.RestoreLoan)
		archive.PUT("/loans/:id/note", archiveCtl.UpdateLoanNote)
		archive.DELETE("/loans/:id", archiveCtl.PurgeLoan)
	}

	// 用户归档需要知道操作者是谁
	archiveUsers := archive.Group("/users", requireMW, adminMW)
	{
		archiveUsers.GET("", archiveCtl.ListUsers)
		archiveUsers.POST("/:id", archiveCtl.ArchiveUser)
		archiveUsers.POST("/:id/restore", archiveCtl.RestoreUser)
		archiveUsers.DELETE("/:id", archiveCtl.PurgeUser)
	}

	// ------------------------------
	// 用户（仅管理员）
	// ------------------------------
	users := api.Group("/users", requireMW, adminMW)
	{
		users.GET("", uc.ListUsers) // ?q=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.PUT("/:id/presence", uc.SetPresence)
	}

	api.POST("/maintenance/expire-reservations", itemCtl.ExpireReservations)
}

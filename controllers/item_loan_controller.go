// controllers/item_loan_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"Gin_postgres_redis_asset_lending/app"
	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/models"

	"github.com/gin-gonic/gin"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// 登记资产，条码由序列号生成
func (ic *ItemController) CreateAsset(c *gin.Context) {
	var in struct {
		Serial    string                `json:"serial"`
		Name      string                `json:"name"`
		Category  string                `json:"category"`
		Condition models.AssetCondition `json:"condition"`
		Status    models.AssetStatus    `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := ic.Lending.RegisterAsset(c.Request.Context(), lending.RegisterAssetInput{
		Serial:    in.Serial,
		Name:      in.Name,
		Category:  in.Category,
		Condition: in.Condition,
		Status:    in.Status,
	})
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (ic *ItemController) UpdateCondition(c *gin.Context) {
	var in struct {
		Condition models.AssetCondition `json:"condition" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := ic.Lending.UpdateAssetCondition(c.Request.Context(), c.Param("id"), in.Condition)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /api/assets/barcode?serial=
func (ic *ItemController) AssetBarcode(c *gin.Context) {
	c.JSON(http.StatusOK, app.H{"barcode": ic.Lending.GenerateAssetBarcode(c.Query("serial"))})
}

// GET /api/assets?q=&status=&page=&size=
func (ic *ItemController) ListAssets(c *gin.Context) {
	res, err := ic.Repo.ListAssetsWithCurrentLoan(c.Request.Context(), db.AdminAssetsQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"), // "", "lent", "available", "due", "defective"
		Page:   queryInt(c, "page", 1),
		Size:   queryInt(c, "size", 20),
	})
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ic *ItemController) AssetLoans(c *gin.Context) {
	ls, err := ic.Lending.ListLoansForAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ls})
}

// GET /api/loans/barcode?date=2025-01-01 （不传则为当天 UTC）
// Each call consumes a sequence number.
func (ic *ItemController) LoanBarcode(c *gin.Context) {
	var date *time.Time
	if v := strings.TrimSpace(c.Query("date")); v != "" {
		d, err := parseDay(v)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD or YYYYMMDD")
			return
		}
		date = &d
	}
	code, err := ic.Lending.GenerateLoanBarcode(c.Request.Context(), date)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"barcode": code})
}

func parseDay(v string) (time.Time, error) {
	if d, err := time.Parse("2006-01-02", v); err == nil {
		return d, nil
	}
	return time.Parse(lending.DayLayout, v)
}

type borrowerReq struct {
	Kind         models.BorrowerKind `json:"kind"`
	UserID       string              `json:"userId"`
	GuestName    string              `json:"guestName"`
	GuestContact string              `json:"guestContact"`
}

func (b borrowerReq) model() models.Borrower {
	out := models.Borrower{Kind: b.Kind, GuestName: b.GuestName, GuestContact: b.GuestContact}
	if b.UserID != "" {
		uid := b.UserID
		out.UserID = &uid
	}
	return out
}

// 借出：新建 Pending 借用记录
func (ic *ItemController) CreateLoan(c *gin.Context) {
	var in struct {
		AssetID     string      `json:"assetId" binding:"required"`
		Borrower    borrowerReq `json:"borrower"`
		ReservedFor *time.Time  `json:"reservedFor"`
		Note        string      `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	loan, err := ic.Lending.CreateLoan(c.Request.Context(), lending.CreateLoanInput{
		AssetID:     in.AssetID,
		Borrower:    in.Borrower.model(),
		ReservedFor: in.ReservedFor,
		Note:        in.Note,
	})
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (ic *ItemController) GetLoan(c *gin.Context) {
	loan, err := ic.Lending.GetLoanByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// PUT /api/loans/:barcode/status {"status":"Borrowed"} | {"status":"Reserved","reservedFor":"..."}
func (ic *ItemController) UpdateStatus(c *gin.Context) {
	var in struct {
		Status      models.LoanStatus `json:"status" binding:"required"`
		ReservedFor *time.Time        `json:"reservedFor"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	var (
		loan *models.LoanRecord
		err  error
	)
	if in.Status == models.LoanReserved && in.ReservedFor != nil {
		loan, err = ic.Lending.Reserve(c.Request.Context(), c.Param("barcode"), *in.ReservedFor)
	} else {
		loan, err = ic.Lending.UpdateLoanStatus(c.Request.Context(), c.Param("barcode"), in.Status)
	}
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (ic *ItemController) SetHidden(c *gin.Context) {
	var in struct {
		Hidden *bool `json:"hidden" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	loan, err := ic.Lending.SetLoanHidden(c.Request.Context(), c.Param("barcode"), *in.Hidden)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// 借还记录 ?userId=&assetId=&status=&includeHidden=
func (ic *ItemController) ListLoans(c *gin.Context) {
	status := models.LoanStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "unknown status")
		return
	}
	for _, k := range []string{"userId", "assetId"} {
		if v := c.Query(k); v != "" && !validUUID(c, v) {
			return
		}
	}
	includeHidden, _ := strconv.ParseBool(c.DefaultQuery("includeHidden", "false"))
	ls, err := ic.Repo.ListLoans(c.Request.Context(), c.Query("userId"), c.Query("assetId"), status, includeHidden)
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ls})
}

// 手动触发一次过期预约清理
func (ic *ItemController) ExpireReservations(c *gin.Context) {
	n, err := ic.Lending.CancelExpiredReservations(c.Request.Context())
	if err != nil {
		ic.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"cancelled": n})
}

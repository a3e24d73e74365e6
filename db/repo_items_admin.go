// db/repo_items_admin.go
package db

import (
	"Gin_postgres_redis_asset_lending/models"
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type AdminAssetRow struct {
	// Asset fields
	ID        string    `json:"id"`
	Serial    string    `json:"serial"`
	Barcode   string    `json:"barcode"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Condition string    `json:"condition"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Current active loan (nullable)
	LoanID           *string    `json:"loanId,omitempty"`
	LoanBarcode      *string    `json:"loanBarcode,omitempty"`
	LoanStatus       *string    `json:"loanStatus,omitempty"`
	BorrowerID       *string    `json:"borrowerId,omitempty"`
	BorrowerFullName *string    `json:"borrowerFullName,omitempty"`
	GuestName        *string    `json:"guestName,omitempty"`
	LentAt           *time.Time `json:"lentAt,omitempty"`
	ReservedFor      *time.Time `json:"reservedFor,omitempty"`
	ReservationDue   bool       `json:"reservationDue"` // 由 SQL 计算
}

type AdminAssetsQuery struct {
	Q      string // 模糊搜索：serial/name/barcode
	Status string // "", "lent", "available", "due", "defective"
	Page   int
	Size   int
	Now    time.Time
}

type PagedAdminAssets struct {
	Total int64           `json:"total"`
	Items []AdminAssetRow `json:"items"`
}

const adminAssetSelect = `
	a.id, a.serial, a.barcode, a.name, a.category, a.status, a.condition, a.created_at, a.updated_at,
	ol.id            AS loan_id,
	ol.barcode       AS loan_barcode,
	ol.status        AS loan_status,
	ol.user_id       AS borrower_id,
	u.full_name      AS borrower_full_name,
	ol.guest_name    AS guest_name,
	ol.lent_at,
	ol.reserved_for,
	CASE WHEN ol.status = ? AND ol.reserved_for < ? THEN 1 ELSE 0 END AS reservation_due
`

// ListAssetsWithCurrentLoan lists assets joined with their active loan, if any.
func (r *Repo) ListAssetsWithCurrentLoan(ctx context.Context, q AdminAssetsQuery) (*PagedAdminAssets, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	offset := (q.Page - 1) * q.Size
	now := q.Now.UTC()

	db := r.DB.WithContext(ctx)
	active := statusStrings(models.ActiveLoanStatuses)

	// 主查询与计数共用同一组 JOIN 和过滤条件
	base := func() *gorm.DB {
		qry := db.
			Table(models.AssetTable+" a").
			Joins("LEFT JOIN "+models.LoanTable+" ol ON ol.asset_id = a.id AND ol.status IN ?", active).
			Joins("LEFT JOIN lsb_users u ON u.id = ol.user_id")

		if s := strings.TrimSpace(q.Q); s != "" {
			pat := "%" + strings.ToLower(s) + "%"
			qry = qry.Where("LOWER(a.serial) LIKE ? OR LOWER(a.name) LIKE ? OR LOWER(a.barcode) LIKE ?", pat, pat, pat)
		}
		switch q.Status {
		case "lent":
			qry = qry.Where("ol.id IS NOT NULL")
		case "available":
			qry = qry.Where("a.status = ? AND ol.id IS NULL", string(models.AssetAvailable))
		case "due":
			qry = qry.Where("ol.status = ? AND ol.reserved_for < ?", string(models.LoanReserved), now)
		case "defective":
			qry = qry.Where("a.condition = ?", string(models.ConditionDefective))
		default:
			// all
		}
		return qry
	}

	var total int64
	if err := base().Select("a.id").Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []AdminAssetRow
	if err := base().
		Select(adminAssetSelect, string(models.LoanReserved), now).
		Order("a.created_at DESC").
		Offset(offset).
		Limit(q.Size).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return &PagedAdminAssets{Total: total, Items: rows}, nil
}

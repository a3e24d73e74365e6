package db

import (
	"context"
	"time"

	"Gin_postgres_redis_asset_lending/models"

	"gorm.io/gorm/clause"
)

// Assets
func (r *Repo) CreateAsset(ctx context.Context, a *models.Asset) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *Repo) FindAssetByID(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// 锁住该资产行，直到事务结束
func (r *Repo) LockAssetByID(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindAssetBySerial(ctx context.Context, serial string) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).Where("serial = ?", serial).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindAssetByBarcode(ctx context.Context, barcode string) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).Where("barcode = ?", barcode).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) UpdateAssetStatus(ctx context.Context, id string, status models.AssetStatus) error {
	return affected(r.DB.WithContext(ctx).Model(&models.Asset{}).
		Where("id = ?", id).
		Update("status", string(status)))
}

func (r *Repo) UpdateAssetCondition(ctx context.Context, id string, condition models.AssetCondition) error {
	return affected(r.DB.WithContext(ctx).Model(&models.Asset{}).
		Where("id = ?", id).
		Update("condition", string(condition)))
}

func (r *Repo) DeleteAsset(ctx context.Context, id string) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.Asset{}, "id = ?", id))
}

// Loans
func (r *Repo) CreateLoanRecord(ctx context.Context, l *models.LoanRecord) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *Repo) FindLoanByID(ctx context.Context, id string) (*models.LoanRecord, error) {
	var l models.LoanRecord
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) LockLoanByID(ctx context.Context, id string) (*models.LoanRecord, error) {
	var l models.LoanRecord
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) FindLoanByBarcode(ctx context.Context, barcode string) (*models.LoanRecord, error) {
	var l models.LoanRecord
	if err := r.DB.WithContext(ctx).Where("barcode = ?", barcode).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// 当前未结束的借用（部分唯一索引保证最多一条）
func (r *Repo) ListActiveLoansForAsset(ctx context.Context, assetID string) ([]models.LoanRecord, error) {
	var ls []models.LoanRecord
	if err := r.DB.WithContext(ctx).
		Where("asset_id = ? AND status IN ?", assetID, statusStrings(models.ActiveLoanStatuses)).
		Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *Repo) ListLoansForAsset(ctx context.Context, assetID string) ([]models.LoanRecord, error) {
	var ls []models.LoanRecord
	if err := r.DB.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *Repo) ListExpiredReservations(ctx context.Context, now time.Time) ([]models.LoanRecord, error) {
	var ls []models.LoanRecord
	if err := r.DB.WithContext(ctx).
		Where("status = ? AND reserved_for IS NOT NULL AND reserved_for < ?", string(models.LoanReserved), now.UTC()).
		Order("reserved_for ASC").
		Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *Repo) SaveLoanRecord(ctx context.Context, l *models.LoanRecord) error {
	return r.DB.WithContext(ctx).Save(l).Error
}

func (r *Repo) DeleteLoanRecord(ctx context.Context, id string) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.LoanRecord{}, "id = ?", id))
}

// ListLoans filters by borrower user, asset and status; empty values match all.
// Loans hidden from the borrower are left out when includeHidden is false.
func (r *Repo) ListLoans(ctx context.Context, userID, assetID string, status models.LoanStatus, includeHidden bool) ([]models.LoanRecord, error) {
	q := r.DB.WithContext(ctx).Model(&models.LoanRecord{}).Order("created_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if assetID != "" {
		q = q.Where("asset_id = ?", assetID)
	}
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if !includeHidden {
		q = q.Where("is_hidden_from_user = ?", false)
	}
	var ls []models.LoanRecord
	if err := q.Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

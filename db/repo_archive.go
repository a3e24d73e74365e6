package db

import (
	"context"

	"Gin_postgres_redis_asset_lending/models"
)

// Archived assets

func (r *Repo) CreateArchivedAsset(ctx context.Context, a *models.ArchivedAsset) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *Repo) FindArchivedAsset(ctx context.Context, id string) (*models.ArchivedAsset, error) {
	var a models.ArchivedAsset
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindArchivedAssetByOriginalID returns the most recent snapshot of a live id.
func (r *Repo) FindArchivedAssetByOriginalID(ctx context.Context, originalID string) (*models.ArchivedAsset, error) {
	var a models.ArchivedAsset
	if err := r.DB.WithContext(ctx).
		Where("original_id = ?", originalID).
		Order("archived_at DESC").
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) DeleteArchivedAsset(ctx context.Context, id string) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.ArchivedAsset{}, "id = ?", id))
}

func (r *Repo) ListArchivedAssets(ctx context.Context, limit int) ([]models.ArchivedAsset, error) {
	var as []models.ArchivedAsset
	err := r.DB.WithContext(ctx).Order("archived_at DESC").Limit(pageLimit(limit)).Find(&as).Error
	return as, err
}

// Archived loans

func (r *Repo) CreateArchivedLoan(ctx context.Context, l *models.ArchivedLoanRecord) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *Repo) FindArchivedLoan(ctx context.Context, id string) (*models.ArchivedLoanRecord, error) {
	var l models.ArchivedLoanRecord
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) SaveArchivedLoan(ctx context.Context, l *models.ArchivedLoanRecord) error {
	return r.DB.WithContext(ctx).Save(l).Error
}

func (r *Repo) DeleteArchivedLoan(ctx context.Context, id string) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.ArchivedLoanRecord{}, "id = ?", id))
}

func (r *Repo) ListArchivedLoans(ctx context.Context, limit int) ([]models.ArchivedLoanRecord, error) {
	var ls []models.ArchivedLoanRecord
	err := r.DB.WithContext(ctx).Order("archived_at DESC").Limit(pageLimit(limit)).Find(&ls).Error
	return ls, err
}

// Archived users

func (r *Repo) CreateArchivedUser(ctx context.Context, u *models.ArchivedUser) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *Repo) FindArchivedUser(ctx context.Context, id string) (*models.ArchivedUser, error) {
	var u models.ArchivedUser
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindArchivedUserByOriginalID(ctx context.Context, originalID string) (*models.ArchivedUser, error) {
	var u models.ArchivedUser
	if err := r.DB.WithContext(ctx).
		Where("original_id = ?", originalID).
		Order("archived_at DESC").
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) DeleteArchivedUser(ctx context.Context, id string) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.ArchivedUser{}, "id = ?", id))
}

func (r *Repo) ListArchivedUsers(ctx context.Context, limit int) ([]models.ArchivedUser, error) {
	var us []models.ArchivedUser
	err := r.DB.WithContext(ctx).Order("archived_at DESC").Limit(pageLimit(limit)).Find(&us).Error
	return us, err
}

func pageLimit(n int) int {
	if n <= 0 || n > 200 {
		return 50
	}
	return n
}

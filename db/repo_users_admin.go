// db/repo_users_admin.go
package db

import (
	"Gin_postgres_redis_asset_lending/models"
	"context"
)

func (r *Repo) SetUserPresence(ctx context.Context, userID string, p models.Presence) error {
	return affected(r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("presence", string(p)))
}

func (r *Repo) CountOnline(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("presence = ?", string(models.PresenceOnline)).
		Count(&n).Error
	return n, err
}

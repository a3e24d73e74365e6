package lending

import "Gin_postgres_redis_asset_lending/models"

// CanLend reports whether the asset may enter a loan right now.
// It returns ErrDefectiveCondition or ErrAlreadyUnavailable, in that order of precedence.
func CanLend(a *models.Asset) error {
	if a.Condition == models.ConditionDefective {
		return ErrDefectiveCondition
	}
	if a.Status != models.AssetAvailable {
		return ErrAlreadyUnavailable
	}
	return nil
}

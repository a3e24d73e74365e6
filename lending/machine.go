package lending

import (
	"time"

	"Gin_postgres_redis_asset_lending/models"
)

// transitions lists the allowed target statuses per source status.
// Returned and Cancelled are terminal and have no entry.
var transitions = map[models.LoanStatus][]models.LoanStatus{
	models.LoanPending:  {models.LoanReserved, models.LoanBorrowed, models.LoanCancelled},
	models.LoanReserved: {models.LoanBorrowed, models.LoanCancelled},
	models.LoanBorrowed: {models.LoanReturned, models.LoanCancelled},
}

// CanTransition reports whether a loan may move from one status to another.
func CanTransition(from, to models.LoanStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// assetStatusAfter returns the asset status a loan entering `to` forces, if any.
func assetStatusAfter(to models.LoanStatus) (models.AssetStatus, bool) {
	switch to {
	case models.LoanBorrowed:
		return models.AssetBorrowed, true
	case models.LoanReturned, models.LoanCancelled:
		return models.AssetAvailable, true
	case models.LoanPending, models.LoanReserved:
		return "", false
	}
	return "", false
}

// applyTransition validates and applies a status change to loan. The asset is
// the locked row the loan points at; its status is updated in memory only, the
// caller persists both rows in the same transaction.
func applyTransition(loan *models.LoanRecord, asset *models.Asset, to models.LoanStatus, now time.Time) error {
	from := loan.Status
	if !CanTransition(from, to) {
		return withMessage(ErrInvalidTransition, "cannot move loan %s from %s to %s", loan.Barcode, from, to)
	}

	switch to {
	case models.LoanReserved:
		if loan.ReservedFor == nil || !loan.ReservedFor.After(now) {
			return ErrInvalidReservation
		}
	case models.LoanBorrowed:
		if err := CanLend(asset); err != nil {
			return err
		}
		t := now
		loan.LentAt = &t
	case models.LoanReturned:
		t := now
		loan.ReturnedAt = &t
	case models.LoanCancelled, models.LoanPending:
	}

	loan.Status = to
	if st, ok := assetStatusAfter(to); ok {
		asset.Status = st
	}
	return nil
}

package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_asset_lending/models"
)

var allLoanStatuses = []models.LoanStatus{
	models.LoanPending, models.LoanReserved, models.LoanBorrowed, models.LoanReturned, models.LoanCancelled,
}

func Test_CanTransition_Table(t *testing.T) {
	allowed := map[[2]models.LoanStatus]bool{
		{models.LoanPending, models.LoanReserved}:   true,
		{models.LoanPending, models.LoanBorrowed}:   true,
		{models.LoanPending, models.LoanCancelled}:  true,
		{models.LoanReserved, models.LoanBorrowed}:  true,
		{models.LoanReserved, models.LoanCancelled}: true,
		{models.LoanBorrowed, models.LoanReturned}:  true,
		{models.LoanBorrowed, models.LoanCancelled}: true,
	}

	for _, from := range allLoanStatuses {
		for _, to := range allLoanStatuses {
			assert.Equal(t, allowed[[2]models.LoanStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func Test_CanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, to := range allLoanStatuses {
		assert.False(t, CanTransition(models.LoanReturned, to))
		assert.False(t, CanTransition(models.LoanCancelled, to))
	}
}

func Test_ApplyTransition_BorrowSetsLentAtAndFlipsAsset(t *testing.T) {
	// arrange
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	loan := &models.LoanRecord{Barcode: "LENT-20250301-001", Status: models.LoanPending}
	asset := &models.Asset{Status: models.AssetAvailable, Condition: models.ConditionGood}

	// act
	err := applyTransition(loan, asset, models.LoanBorrowed, now)

	// assert
	require.NoError(t, err)
	assert.Equal(t, models.LoanBorrowed, loan.Status)
	require.NotNil(t, loan.LentAt)
	assert.Equal(t, now, *loan.LentAt)
	assert.Equal(t, models.AssetBorrowed, asset.Status)
}

func Test_ApplyTransition_BorrowRechecksGuard(t *testing.T) {
	// arrange
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	loan := &models.LoanRecord{Status: models.LoanReserved}
	asset := &models.Asset{Status: models.AssetAvailable, Condition: models.ConditionDefective}

	// act
	err := applyTransition(loan, asset, models.LoanBorrowed, now)

	// assert
	assert.ErrorIs(t, err, ErrDefectiveCondition)
	assert.Equal(t, models.LoanReserved, loan.Status)
	assert.Nil(t, loan.LentAt)
	assert.Equal(t, models.AssetAvailable, asset.Status)
}

func Test_ApplyTransition_ReturnSetsReturnedAtAndReleasesAsset(t *testing.T) {
	// arrange
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	loan := &models.LoanRecord{Status: models.LoanBorrowed}
	asset := &models.Asset{Status: models.AssetBorrowed}

	// act
	err := applyTransition(loan, asset, models.LoanReturned, now)

	// assert
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, loan.Status)
	require.NotNil(t, loan.ReturnedAt)
	assert.Equal(t, models.AssetAvailable, asset.Status)
}

func Test_ApplyTransition_ReturnFromNonBorrowedIsInvalid(t *testing.T) {
	for _, from := range []models.LoanStatus{models.LoanPending, models.LoanReserved, models.LoanReturned, models.LoanCancelled} {
		t.Run(string(from), func(t *testing.T) {
			loan := &models.LoanRecord{Status: from}
			asset := &models.Asset{Status: models.AssetAvailable}

			err := applyTransition(loan, asset, models.LoanReturned, time.Now())

			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, KindConflict, KindOf(err))
			assert.Equal(t, from, loan.Status)
			assert.Nil(t, loan.ReturnedAt)
		})
	}
}

func Test_ApplyTransition_ReserveNeedsFutureDeadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	err := applyTransition(&models.LoanRecord{Status: models.LoanPending}, &models.Asset{}, models.LoanReserved, now)
	assert.ErrorIs(t, err, ErrInvalidReservation)

	err = applyTransition(&models.LoanRecord{Status: models.LoanPending, ReservedFor: &past}, &models.Asset{}, models.LoanReserved, now)
	assert.ErrorIs(t, err, ErrInvalidReservation)

	loan := &models.LoanRecord{Status: models.LoanPending, ReservedFor: &future}
	asset := &models.Asset{Status: models.AssetAvailable}
	err = applyTransition(loan, asset, models.LoanReserved, now)
	require.NoError(t, err)
	assert.Equal(t, models.LoanReserved, loan.Status)
	assert.Equal(t, models.AssetAvailable, asset.Status)
}

func Test_ApplyTransition_CancelReleasesAsset(t *testing.T) {
	for _, from := range []models.LoanStatus{models.LoanPending, models.LoanReserved, models.LoanBorrowed} {
		t.Run(string(from), func(t *testing.T) {
			loan := &models.LoanRecord{Status: from}
			asset := &models.Asset{Status: models.AssetBorrowed}

			err := applyTransition(loan, asset, models.LoanCancelled, time.Now())

			require.NoError(t, err)
			assert.Equal(t, models.LoanCancelled, loan.Status)
			assert.Equal(t, models.AssetAvailable, asset.Status)
		})
	}
}

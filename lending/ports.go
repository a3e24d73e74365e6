package lending

import (
	"context"
	"time"

	"Gin_postgres_redis_asset_lending/models"
)

// Repositories return gorm.ErrRecordNotFound for missing rows, including
// deletes and updates that matched nothing. Lock* methods take a row lock
// that is held until the surrounding transaction ends.

type AssetRepository interface {
	CreateAsset(ctx context.Context, a *models.Asset) error
	FindAssetByID(ctx context.Context, id string) (*models.Asset, error)
	LockAssetByID(ctx context.Context, id string) (*models.Asset, error)
	FindAssetBySerial(ctx context.Context, serial string) (*models.Asset, error)
	FindAssetByBarcode(ctx context.Context, barcode string) (*models.Asset, error)
	UpdateAssetStatus(ctx context.Context, id string, status models.AssetStatus) error
	UpdateAssetCondition(ctx context.Context, id string, condition models.AssetCondition) error
	DeleteAsset(ctx context.Context, id string) error
}

type LoanRepository interface {
	CreateLoanRecord(ctx context.Context, l *models.LoanRecord) error
	FindLoanByID(ctx context.Context, id string) (*models.LoanRecord, error)
	LockLoanByID(ctx context.Context, id string) (*models.LoanRecord, error)
	FindLoanByBarcode(ctx context.Context, barcode string) (*models.LoanRecord, error)
	ListActiveLoansForAsset(ctx context.Context, assetID string) ([]models.LoanRecord, error)
	ListLoansForAsset(ctx context.Context, assetID string) ([]models.LoanRecord, error)
	ListExpiredReservations(ctx context.Context, now time.Time) ([]models.LoanRecord, error)
	SaveLoanRecord(ctx context.Context, l *models.LoanRecord) error
	DeleteLoanRecord(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	LockUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUserByID(ctx context.Context, id string) error
}

type ArchiveRepository interface {
	CreateArchivedAsset(ctx context.Context, a *models.ArchivedAsset) error
	FindArchivedAsset(ctx context.Context, id string) (*models.ArchivedAsset, error)
	FindArchivedAssetByOriginalID(ctx context.Context, originalID string) (*models.ArchivedAsset, error)
	DeleteArchivedAsset(ctx context.Context, id string) error

	CreateArchivedLoan(ctx context.Context, l *models.ArchivedLoanRecord) error
	FindArchivedLoan(ctx context.Context, id string) (*models.ArchivedLoanRecord, error)
	SaveArchivedLoan(ctx context.Context, l *models.ArchivedLoanRecord) error
	DeleteArchivedLoan(ctx context.Context, id string) error

	CreateArchivedUser(ctx context.Context, u *models.ArchivedUser) error
	FindArchivedUser(ctx context.Context, id string) (*models.ArchivedUser, error)
	FindArchivedUserByOriginalID(ctx context.Context, originalID string) (*models.ArchivedUser, error)
	DeleteArchivedUser(ctx context.Context, id string) error
}

// Tx is the repository surface available inside one transaction.
type Tx interface {
	AssetRepository
	LoanRepository
	UserRepository
	ArchiveRepository
}

// Store is the live + archive data store. Calls made directly on the Store
// run outside any transaction; Transaction commits when fn returns nil and
// rolls back otherwise.
type Store interface {
	Tx
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Sequence hands out the next loan number for a YYYYMMDD day namespace.
// Concurrent callers for the same day must never receive the same value.
type Sequence interface {
	Next(ctx context.Context, day string) (int, error)
}

// Notifier receives lifecycle events after they are committed. Errors are
// logged by the caller and never fail the operation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type Clock interface {
	Now() time.Time
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives operational counters.
type Metrics interface {
	LoanTransition(from, to models.LoanStatus)
	BarcodeGenerated(kind string)
	ArchiveOperation(kind, op, result string)
	SweepCompleted(cancelled, failed int)
}

package lending

import (
	"context"
	"errors"
	"strings"
	"time"

	"Gin_postgres_redis_asset_lending/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	kindAsset = "asset"
	kindLoan  = "loan"
	kindUser  = "user"
)

// Archiver moves assets, loans and users between the live tables and the
// archive tables. Each move is one transaction: insert on one side, delete on
// the other.
type Archiver struct {
	store Store
	options
}

func NewArchiver(store Store, opts ...Option) *Archiver {
	return &Archiver{store: store, options: buildOptions(opts)}
}

// run executes fn in a transaction. Errors raised by this package, other than
// persistence failures, are returned untouched; everything else is logged and
// wrapped as an archive or restore failure.
func (a *Archiver) run(ctx context.Context, kind, op, id string, fn func(tx Tx) error) error {
	err := a.store.Transaction(ctx, fn)
	if err == nil {
		a.metrics.ArchiveOperation(kind, op, "ok")
		return nil
	}
	if KindOf(err) != KindPersistence {
		a.metrics.ArchiveOperation(kind, op, "rejected")
		return err
	}
	a.metrics.ArchiveOperation(kind, op, "failed")
	a.logger.Error(kind+" "+op+" failed", "id", id, "err", err)
	if op == "restore" {
		return wrap(ErrRestoreOperationFailed, err)
	}
	return wrap(ErrArchiveOperationFailed, err)
}

func (a *Archiver) reject(kind, op string, err error) error {
	a.metrics.ArchiveOperation(kind, op, "rejected")
	return err
}

// Assets

// ArchiveAsset snapshots the asset with status Archived and removes it from
// the live table. An asset that still has a Pending, Reserved or Borrowed loan
// is refused with ErrAssetHasActiveLoan; archive or finish the loan first.
func (a *Archiver) ArchiveAsset(ctx context.Context, id string) (*models.ArchivedAsset, error) {
	if err := checkID(id); err != nil {
		return nil, a.reject(kindAsset, "archive", err)
	}
	var out *models.ArchivedAsset
	err := a.run(ctx, kindAsset, "archive", id, func(tx Tx) error {
		asset, err := tx.LockAssetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrAssetNotFound)
		}
		active, err := tx.ListActiveLoansForAsset(ctx, id)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return ErrAssetHasActiveLoan
		}

		asset.Status = models.AssetArchived
		rec := archivedAsset(asset, a.now())
		if err := tx.CreateArchivedAsset(ctx, rec); err != nil {
			return err
		}
		if err := tx.DeleteAsset(ctx, asset.ID); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.notify(ctx, Event{Type: EventRecordArchived, Kind: kindAsset, ID: out.OriginalID, Barcode: out.Barcode, At: out.ArchivedAt})
	return out, nil
}

// RestoreAsset brings an archived asset back under its original id, always
// as Available.
func (a *Archiver) RestoreAsset(ctx context.Context, archiveID string) (*models.Asset, error) {
	if err := checkID(archiveID); err != nil {
		return nil, a.reject(kindAsset, "restore", err)
	}
	var out *models.Asset
	err := a.run(ctx, kindAsset, "restore", archiveID, func(tx Tx) error {
		rec, err := tx.FindArchivedAsset(ctx, archiveID)
		if err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		if err := absent(tx.FindAssetByID(ctx, rec.OriginalID)); err != nil {
			return orConflict(err, ErrAlreadyLive)
		}
		if err := absent(tx.FindAssetBySerial(ctx, rec.Serial)); err != nil {
			return orConflict(err, ErrDuplicateSerial)
		}
		if err := absent(tx.FindAssetByBarcode(ctx, rec.Barcode)); err != nil {
			return orConflict(err, ErrAlreadyLive)
		}

		asset := liveAsset(rec)
		if err := tx.CreateAsset(ctx, asset); err != nil {
			// unique keys were checked above; only a concurrent restore gets here
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return wrap(ErrAlreadyLive, err)
			}
			return err
		}
		if err := tx.DeleteArchivedAsset(ctx, rec.ID); err != nil {
			return err
		}
		out = asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.notify(ctx, Event{Type: EventRecordRestored, Kind: kindAsset, ID: out.ID, Barcode: out.Barcode, At: a.now()})
	return out, nil
}

func (a *Archiver) PurgeArchivedAsset(ctx context.Context, archiveID string) error {
	if err := checkID(archiveID); err != nil {
		return a.reject(kindAsset, "purge", err)
	}
	return a.run(ctx, kindAsset, "purge", archiveID, func(tx Tx) error {
		if err := tx.DeleteArchivedAsset(ctx, archiveID); err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		return nil
	})
}

// Loans

// ArchiveLoan snapshots the loan with the item name and borrower full name
// copied in, then removes it from the live table. A loan that still holds its
// asset releases it back to Available instead of blocking the archive.
func (a *Archiver) ArchiveLoan(ctx context.Context, id string) (*models.ArchivedLoanRecord, error) {
	if err := checkID(id); err != nil {
		return nil, a.reject(kindLoan, "archive", err)
	}
	var out *models.ArchivedLoanRecord
	err := a.run(ctx, kindLoan, "archive", id, func(tx Tx) error {
		pre, err := tx.FindLoanByID(ctx, id)
		if err != nil {
			return notFound(err, ErrLoanNotFound)
		}
		// asset row first, same order as the state machine
		asset, err := tx.LockAssetByID(ctx, pre.AssetID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		loan, err := tx.LockLoanByID(ctx, id)
		if err != nil {
			return notFound(err, ErrLoanNotFound)
		}

		if asset != nil && !loan.Status.Terminal() && asset.Status != models.AssetAvailable {
			if err := tx.UpdateAssetStatus(ctx, asset.ID, models.AssetAvailable); err != nil {
				return err
			}
		}

		rec := archivedLoan(loan, a.now())
		if rec.ItemName, rec.ItemSerial, err = itemLabel(ctx, tx, asset, loan.AssetID); err != nil {
			return err
		}
		if rec.BorrowerFullName, err = borrowerName(ctx, tx, loan.Borrower); err != nil {
			return err
		}
		if err := tx.CreateArchivedLoan(ctx, rec); err != nil {
			return err
		}
		if err := tx.DeleteLoanRecord(ctx, loan.ID); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.notify(ctx, Event{Type: EventRecordArchived, Kind: kindLoan, ID: out.OriginalID, Barcode: out.Barcode, AssetID: out.AssetID, From: string(out.Status), At: out.ArchivedAt})
	return out, nil
}

// RestoreLoan brings an archived loan back under its original id. A loan
// archived while still open comes back Cancelled: archiving released its asset.
func (a *Archiver) RestoreLoan(ctx context.Context, archiveID string) (*models.LoanRecord, error) {
	if err := checkID(archiveID); err != nil {
		return nil, a.reject(kindLoan, "restore", err)
	}
	var out *models.LoanRecord
	err := a.run(ctx, kindLoan, "restore", archiveID, func(tx Tx) error {
		rec, err := tx.FindArchivedLoan(ctx, archiveID)
		if err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		if err := absent(tx.FindLoanByID(ctx, rec.OriginalID)); err != nil {
			return orConflict(err, ErrAlreadyLive)
		}
		if err := absent(tx.FindLoanByBarcode(ctx, rec.Barcode)); err != nil {
			return orConflict(err, ErrBarcodeInUse)
		}

		loan := liveLoan(rec)
		if err := tx.CreateLoanRecord(ctx, loan); err != nil {
			// unique keys were checked above; only a concurrent restore gets here
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return wrap(ErrAlreadyLive, err)
			}
			return err
		}
		if err := tx.DeleteArchivedLoan(ctx, rec.ID); err != nil {
			return err
		}
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.notify(ctx, Event{Type: EventRecordRestored, Kind: kindLoan, ID: out.ID, Barcode: out.Barcode, AssetID: out.AssetID, To: string(out.Status), At: a.now()})
	return out, nil
}

// UpdateArchivedLoanNote edits the note on an archived loan. A missing archive
// id is ErrArchiveNotFound; nothing is created.
func (a *Archiver) UpdateArchivedLoanNote(ctx context.Context, archiveID, note string) (*models.ArchivedLoanRecord, error) {
	if err := checkID(archiveID); err != nil {
		return nil, a.reject(kindLoan, "note", err)
	}
	var out *models.ArchivedLoanRecord
	err := a.run(ctx, kindLoan, "note", archiveID, func(tx Tx) error {
		rec, err := tx.FindArchivedLoan(ctx, archiveID)
		if err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		rec.Note = strings.TrimSpace(note)
		if err := tx.SaveArchivedLoan(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

func (a *Archiver) PurgeArchivedLoan(ctx context.Context, archiveID string) error {
	if err := checkID(archiveID); err != nil {
		return a.reject(kindLoan, "purge", err)
	}
	return a.run(ctx, kindLoan, "purge", archiveID, func(tx Tx) error {
		if err := tx.DeleteArchivedLoan(ctx, archiveID); err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		return nil
	})
}

// Users

// ArchiveUser archives targetID on behalf of actorID. Self-archive is refused
// without touching the store; SuperAdmin and Online targets are refused after
// a fresh read, and checked again under the row lock.
func (a *Archiver) ArchiveUser(ctx context.Context, actorID, targetID string) (*models.ArchivedUser, error) {
	if actorID == targetID {
		return nil, a.reject(kindUser, "archive", ErrSelfArchive)
	}
	if err := checkID(targetID); err != nil {
		return nil, a.reject(kindUser, "archive", err)
	}
	u, err := a.store.FindUserByID(ctx, targetID)
	if err != nil {
		return nil, a.reject(kindUser, "archive", notFound(err, ErrUserNotFound))
	}
	if err := archivable(u); err != nil {
		return nil, a.reject(kindUser, "archive", err)
	}

	var out *models.ArchivedUser
	err = a.run(ctx, kindUser, "archive", targetID, func(tx Tx) error {
		u, err := tx.LockUserByID(ctx, targetID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if err := archivable(u); err != nil {
			return err
		}
		rec, err := archivedUser(u, a.now())
		if err != nil {
			return err
		}
		if err := tx.CreateArchivedUser(ctx, rec); err != nil {
			return err
		}
		if err := tx.DeleteUserByID(ctx, u.ID); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.notify(ctx, Event{Type: EventRecordArchived, Kind: kindUser, ID: out.OriginalID, At: out.ArchivedAt})
	return out, nil
}

// RestoreUser brings an archived user back under the original id, always Offline.
func (a *Archiver) RestoreUser(ctx context.Context, archiveID string) (*models.User, error) {
	if err := checkID(archiveID); err != nil {
		return nil, a.reject(kindUser, "restore", err)
	}
	var out *models.User
	err := a.run(ctx, kindUser, "restore", archiveID, func(tx Tx) error {
		rec, err := tx.FindArchivedUser(ctx, archiveID)
		if err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		if err := absent(tx.FindUserByID(ctx, rec.OriginalID)); err != nil {
			return orConflict(err, ErrAlreadyLive)
		}
		if err := absent(tx.FindUserByUsername(ctx, rec.Username)); err != nil {
			return orConflict(err, ErrAlreadyLive)
		}

		u, err := liveUser(rec)
		if err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			// unique keys were checked above; only a concurrent restore gets here
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return wrap(ErrAlreadyLive, err)
			}
			return err
		}
		if err := tx.DeleteArchivedUser(ctx, rec.ID); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.notify(ctx, Event{Type: EventRecordRestored, Kind: kindUser, ID: out.ID, At: a.now()})
	return out, nil
}

func (a *Archiver) PurgeArchivedUser(ctx context.Context, archiveID string) error {
	if err := checkID(archiveID); err != nil {
		return a.reject(kindUser, "purge", err)
	}
	return a.run(ctx, kindUser, "purge", archiveID, func(tx Tx) error {
		if err := tx.DeleteArchivedUser(ctx, archiveID); err != nil {
			return notFound(err, ErrArchiveNotFound)
		}
		return nil
	})
}

func archivable(u *models.User) error {
	if u.Role == models.RoleSuperAdmin {
		return ErrSuperAdminArchive
	}
	if u.Presence == models.PresenceOnline {
		return ErrOnlineUserArchive
	}
	return nil
}

// absent turns a lookup result into nil when the row does not exist, and
// errAlreadyPresent when it does.
func absent(_ any, err error) error {
	if err == nil {
		return errAlreadyPresent
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

var errAlreadyPresent = errors.New("row already present")

func orConflict(err error, conflict *Error) error {
	if errors.Is(err, errAlreadyPresent) {
		return conflict
	}
	return err
}

func itemLabel(ctx context.Context, tx Tx, asset *models.Asset, assetID string) (string, string, error) {
	if asset != nil {
		return asset.Name, asset.Serial, nil
	}
	rec, err := tx.FindArchivedAssetByOriginalID(ctx, assetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return rec.Name, rec.Serial, nil
}

func borrowerName(ctx context.Context, tx Tx, b models.Borrower) (string, error) {
	switch b.Kind {
	case models.BorrowerGuest:
		return b.GuestName, nil
	case models.BorrowerUser:
		if b.UserID == nil {
			return "", nil
		}
		u, err := tx.FindUserByID(ctx, *b.UserID)
		if err == nil {
			return u.FullName, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		au, err := tx.FindArchivedUserByOriginalID(ctx, *b.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return au.FullName, nil
	}
	return "", nil
}

// Mappers

func archivedAsset(a *models.Asset, now time.Time) *models.ArchivedAsset {
	return &models.ArchivedAsset{
		ID:                uuid.NewString(),
		OriginalID:        a.ID,
		Serial:            a.Serial,
		Barcode:           a.Barcode,
		Name:              a.Name,
		Category:          a.Category,
		Status:            a.Status,
		Condition:         a.Condition,
		OriginalCreatedAt: a.CreatedAt,
		ArchivedAt:        now,
	}
}

func liveAsset(r *models.ArchivedAsset) *models.Asset {
	return &models.Asset{
		ID:        r.OriginalID,
		Serial:    r.Serial,
		Barcode:   r.Barcode,
		Name:      r.Name,
		Category:  r.Category,
		Status:    models.AssetAvailable,
		Condition: r.Condition,
		CreatedAt: r.OriginalCreatedAt,
	}
}

func archivedLoan(l *models.LoanRecord, now time.Time) *models.ArchivedLoanRecord {
	return &models.ArchivedLoanRecord{
		ID:                uuid.NewString(),
		OriginalID:        l.ID,
		AssetID:           l.AssetID,
		Borrower:          l.Borrower,
		Barcode:           l.Barcode,
		Status:            l.Status,
		LentAt:            l.LentAt,
		ReservedFor:       l.ReservedFor,
		ReturnedAt:        l.ReturnedAt,
		IsHiddenFromUser:  l.IsHiddenFromUser,
		Note:              l.Note,
		OriginalCreatedAt: l.CreatedAt,
		ArchivedAt:        now,
	}
}

func liveLoan(r *models.ArchivedLoanRecord) *models.LoanRecord {
	status := r.Status
	if !status.Terminal() {
		status = models.LoanCancelled
	}
	return &models.LoanRecord{
		ID:               r.OriginalID,
		AssetID:          r.AssetID,
		Borrower:         r.Borrower,
		Barcode:          r.Barcode,
		Status:           status,
		LentAt:           r.LentAt,
		ReservedFor:      r.ReservedFor,
		ReturnedAt:       r.ReturnedAt,
		IsHiddenFromUser: r.IsHiddenFromUser,
		Note:             r.Note,
		CreatedAt:        r.OriginalCreatedAt,
	}
}

// archivedUser keeps only the fields that belong to the user's role.
func archivedUser(u *models.User, now time.Time) (*models.ArchivedUser, error) {
	rec := &models.ArchivedUser{
		ID:                uuid.NewString(),
		OriginalID:        u.ID,
		Username:          u.Username,
		FullName:          u.FullName,
		Role:              u.Role,
		Presence:          u.Presence,
		OriginalCreatedAt: u.CreatedAt,
		ArchivedAt:        now,
	}
	switch u.Role {
	case models.RoleStudent:
		rec.StudentNumber = u.StudentNumber
	case models.RoleTeacher, models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin:
		rec.Department = u.Department
	default:
		return nil, withMessage(ErrUnknownRole, "unknown role %q", u.Role)
	}
	return rec, nil
}

func liveUser(r *models.ArchivedUser) (*models.User, error) {
	u := &models.User{
		ID:        r.OriginalID,
		Username:  r.Username,
		FullName:  r.FullName,
		Role:      r.Role,
		Presence:  models.PresenceOffline,
		CreatedAt: r.OriginalCreatedAt,
	}
	switch r.Role {
	case models.RoleStudent:
		u.StudentNumber = r.StudentNumber
	case models.RoleTeacher, models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin:
		u.Department = r.Department
	default:
		return nil, withMessage(ErrUnknownRole, "unknown role %q", r.Role)
	}
	return u, nil
}

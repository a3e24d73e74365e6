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

// Service owns loan records and the asset status changes that go with them.
type Service struct {
	store    Store
	barcodes *Generator
	options
}

func NewService(store Store, seq Sequence, opts ...Option) *Service {
	o := buildOptions(opts)
	return &Service{store: store, barcodes: NewGenerator(seq, o.clock, o.metrics), options: o}
}

// GenerateAssetBarcode returns "ITEM-" + serial.
func (s *Service) GenerateAssetBarcode(serial string) string {
	return s.barcodes.AssetBarcode(serial)
}

// GenerateLoanBarcode reserves the next loan barcode for date (today, UTC, when nil).
func (s *Service) GenerateLoanBarcode(ctx context.Context, date *time.Time) (string, error) {
	return s.barcodes.LoanBarcode(ctx, date)
}

// Assets

type RegisterAssetInput struct {
	Serial    string
	Name      string
	Category  string
	Condition models.AssetCondition // default Good
	Status    models.AssetStatus    // Available (default) or Unavailable
}

func (s *Service) RegisterAsset(ctx context.Context, in RegisterAssetInput) (*models.Asset, error) {
	serial := strings.TrimSpace(in.Serial)
	if serial == "" {
		return nil, ErrEmptySerial
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, withMessage(ErrInvalidAsset, "asset name is required")
	}
	cond := in.Condition
	if cond == "" {
		cond = models.ConditionGood
	}
	if !cond.Valid() {
		return nil, withMessage(ErrInvalidAsset, "unknown condition %q", cond)
	}
	status := in.Status
	if status == "" {
		status = models.AssetAvailable
	}
	if status != models.AssetAvailable && status != models.AssetUnavailable {
		return nil, withMessage(ErrInvalidAsset, "new assets must be Available or Unavailable, got %q", status)
	}

	if _, err := s.store.FindAssetBySerial(ctx, serial); err == nil {
		return nil, ErrDuplicateSerial
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence(err)
	}

	a := &models.Asset{
		ID:        uuid.NewString(),
		Serial:    serial,
		Barcode:   s.barcodes.AssetBarcode(serial),
		Name:      name,
		Category:  strings.TrimSpace(in.Category),
		Status:    status,
		Condition: cond,
	}
	if err := s.store.CreateAsset(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, wrap(ErrDuplicateSerial, err)
		}
		return nil, persistence(err)
	}
	return a, nil
}

// UpdateAssetCondition changes the physical condition of an asset. It never
// touches the asset's status.
func (s *Service) UpdateAssetCondition(ctx context.Context, id string, cond models.AssetCondition) (*models.Asset, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if !cond.Valid() {
		return nil, withMessage(ErrInvalidAsset, "unknown condition %q", cond)
	}
	var asset *models.Asset
	err := s.store.Transaction(ctx, func(tx Tx) error {
		a, err := tx.LockAssetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrAssetNotFound)
		}
		if err := tx.UpdateAssetCondition(ctx, id, cond); err != nil {
			return persistence(err)
		}
		a.Condition = cond
		asset = a
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}
	return asset, nil
}

// Loans

type CreateLoanInput struct {
	AssetID     string
	Borrower    models.Borrower
	ReservedFor *time.Time
	Note        string
}

// CreateLoan opens a Pending loan for the asset. The guard and the
// one-active-loan rule are checked again under the asset row lock, in the
// transaction that inserts the record.
func (s *Service) CreateLoan(ctx context.Context, in CreateLoanInput) (*models.LoanRecord, error) {
	now := s.now()
	if in.ReservedFor != nil && !in.ReservedFor.After(now) {
		return nil, ErrInvalidReservation
	}
	if err := checkID(in.AssetID); err != nil {
		return nil, err
	}
	borrower := in.Borrower
	if err := s.checkBorrower(ctx, &borrower); err != nil {
		return nil, err
	}

	// fail fast before a sequence number is spent
	asset, err := s.store.FindAssetByID(ctx, in.AssetID)
	if err != nil {
		return nil, notFound(err, ErrAssetNotFound)
	}
	if err := CanLend(asset); err != nil {
		return nil, err
	}

	loan := &models.LoanRecord{
		AssetID:     asset.ID,
		Borrower:    borrower,
		Status:      models.LoanPending,
		ReservedFor: utc(in.ReservedFor),
		Note:        strings.TrimSpace(in.Note),
	}
	for attempt := 1; ; attempt++ {
		loan.ID = uuid.NewString()
		loan.Barcode, err = s.barcodes.LoanBarcode(ctx, &now)
		if err != nil {
			return nil, err
		}
		err = s.insertLoan(ctx, loan)
		if !errors.Is(err, ErrBarcodeInUse) || attempt == maxBarcodeAttempts {
			break
		}
		s.logger.Warn("loan barcode already taken, drawing another", "barcode", loan.Barcode, "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.LoanTransition("", loan.Status)
	s.notify(ctx, Event{Type: EventLoanCreated, Kind: "loan", ID: loan.ID, Barcode: loan.Barcode, AssetID: loan.AssetID, To: string(loan.Status), At: now})
	return loan, nil
}

// maxBarcodeAttempts bounds how many sequence values CreateLoan draws when
// the generated barcode is already held by a live loan.
const maxBarcodeAttempts = 3

// insertLoan inserts loan under the asset row lock after re-checking the
// guard, the one-active-loan rule and the barcode. A unique violation that
// slips past the checks is classified after the rollback.
func (s *Service) insertLoan(ctx context.Context, loan *models.LoanRecord) error {
	err := s.store.Transaction(ctx, func(tx Tx) error {
		locked, err := tx.LockAssetByID(ctx, loan.AssetID)
		if err != nil {
			return notFound(err, ErrAssetNotFound)
		}
		if err := CanLend(locked); err != nil {
			return err
		}
		active, err := tx.ListActiveLoansForAsset(ctx, loan.AssetID)
		if err != nil {
			return persistence(err)
		}
		if len(active) > 0 {
			return ErrActiveLoanExists
		}
		if err := absent(tx.FindLoanByBarcode(ctx, loan.Barcode)); err != nil {
			return orConflict(err, ErrBarcodeInUse)
		}
		return tx.CreateLoanRecord(ctx, loan)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return s.duplicateLoan(ctx, loan, err)
	}
	if err != nil {
		return persistence(err)
	}
	return nil
}

// duplicateLoan tells the two unique keys on loan records apart: the
// one-open-loan-per-asset index and the barcode.
func (s *Service) duplicateLoan(ctx context.Context, loan *models.LoanRecord, cause error) error {
	active, err := s.store.ListActiveLoansForAsset(ctx, loan.AssetID)
	if err != nil {
		return persistence(cause)
	}
	if len(active) > 0 {
		return wrap(ErrActiveLoanExists, cause)
	}
	if err := absent(s.store.FindLoanByBarcode(ctx, loan.Barcode)); errors.Is(err, errAlreadyPresent) {
		return wrap(ErrBarcodeInUse, cause)
	}
	return persistence(cause)
}

func (s *Service) checkBorrower(ctx context.Context, b *models.Borrower) error {
	switch b.Kind {
	case models.BorrowerUser:
		if b.UserID == nil || *b.UserID == "" {
			return withMessage(ErrInvalidBorrower, "a user borrower needs a user id")
		}
		if err := checkID(*b.UserID); err != nil {
			return err
		}
		b.GuestName, b.GuestContact = "", ""
		if _, err := s.store.FindUserByID(ctx, *b.UserID); err != nil {
			return notFound(err, ErrUserNotFound)
		}
	case models.BorrowerGuest:
		b.GuestName = strings.TrimSpace(b.GuestName)
		if b.GuestName == "" {
			return withMessage(ErrInvalidBorrower, "a guest borrower needs a name")
		}
		b.UserID = nil
	default:
		return ErrInvalidBorrower
	}
	return nil
}

// GetLoanByBarcode distinguishes a malformed barcode (ErrInvalidBarcodeFormat)
// from a well-formed one that matches nothing (ErrLoanNotFound).
func (s *Service) GetLoanByBarcode(ctx context.Context, barcode string) (*models.LoanRecord, error) {
	if !ValidLoanBarcode(barcode) {
		return nil, ErrInvalidBarcodeFormat
	}
	l, err := s.store.FindLoanByBarcode(ctx, barcode)
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	return l, nil
}

func (s *Service) ListLoansForAsset(ctx context.Context, assetID string) ([]models.LoanRecord, error) {
	if err := checkID(assetID); err != nil {
		return nil, err
	}
	if _, err := s.store.FindAssetByID(ctx, assetID); err != nil {
		return nil, notFound(err, ErrAssetNotFound)
	}
	ls, err := s.store.ListLoansForAsset(ctx, assetID)
	if err != nil {
		return nil, persistence(err)
	}
	return ls, nil
}

// UpdateLoanStatus moves the loan identified by barcode to status `to`,
// together with the asset status change the transition implies.
func (s *Service) UpdateLoanStatus(ctx context.Context, barcode string, to models.LoanStatus) (*models.LoanRecord, error) {
	return s.transition(ctx, barcode, to, nil)
}

// Reserve moves a Pending loan to Reserved, holding it until `until`.
func (s *Service) Reserve(ctx context.Context, barcode string, until time.Time) (*models.LoanRecord, error) {
	if !until.After(s.now()) {
		return nil, ErrInvalidReservation
	}
	return s.transition(ctx, barcode, models.LoanReserved, func(l *models.LoanRecord) error {
		l.ReservedFor = utc(&until)
		return nil
	})
}

// SetLoanHidden hides a finished loan from its borrower's history, or shows it again.
func (s *Service) SetLoanHidden(ctx context.Context, barcode string, hidden bool) (*models.LoanRecord, error) {
	pre, err := s.GetLoanByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	var loan *models.LoanRecord
	err = s.store.Transaction(ctx, func(tx Tx) error {
		l, err := tx.LockLoanByID(ctx, pre.ID)
		if err != nil {
			return notFound(err, ErrLoanNotFound)
		}
		if hidden && !l.Status.Terminal() {
			return ErrHideActiveLoan
		}
		l.IsHiddenFromUser = hidden
		if err := tx.SaveLoanRecord(ctx, l); err != nil {
			return persistence(err)
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}
	return loan, nil
}

var errNotDue = errors.New("reservation not due")

// CancelExpiredReservations cancels every Reserved loan whose deadline has
// passed and returns how many were cancelled. A failing record is logged and
// skipped. Each cancellation runs detached from ctx, so a shutdown lets the
// record in flight commit or roll back; ctx is checked between records.
func (s *Service) CancelExpiredReservations(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.store.ListExpiredReservations(ctx, now)
	if err != nil {
		return 0, persistence(err)
	}

	cancelled, failed := 0, 0
	for _, rec := range expired {
		if ctx.Err() != nil {
			break
		}
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
		ok, err := s.expireReservation(recCtx, rec, now)
		cancel()
		if err != nil {
			failed++
			s.logger.Error("cancel expired reservation", "loan", rec.ID, "barcode", rec.Barcode, "err", err)
			continue
		}
		if ok {
			cancelled++
		}
	}

	s.metrics.SweepCompleted(cancelled, failed)
	s.logger.Info("expired reservations swept", "due", len(expired), "cancelled", cancelled, "failed", failed)
	return cancelled, ctx.Err()
}

// expireReservation cancels one reservation if it is still Reserved and due.
// Anything else (already cancelled, returned, borrowed or extended) is a no-op.
func (s *Service) expireReservation(ctx context.Context, rec models.LoanRecord, now time.Time) (bool, error) {
	var (
		loan *models.LoanRecord
		from models.LoanStatus
	)
	err := s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		loan, from, err = s.transitionTx(ctx, tx, rec.AssetID, rec.ID, models.LoanCancelled, func(l *models.LoanRecord) error {
			if l.Status != models.LoanReserved || l.ReservedFor == nil || !l.ReservedFor.Before(now) {
				return errNotDue
			}
			return nil
		})
		return err
	})
	if errors.Is(err, errNotDue) || errors.Is(err, ErrLoanNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.afterTransition(ctx, loan, from, EventReservationExpired)
	return true, nil
}

func (s *Service) transition(ctx context.Context, barcode string, to models.LoanStatus, prepare func(*models.LoanRecord) error) (*models.LoanRecord, error) {
	if !ValidLoanBarcode(barcode) {
		return nil, ErrInvalidBarcodeFormat
	}
	if !to.Valid() {
		return nil, withMessage(ErrInvalidStatus, "unknown loan status %q", to)
	}
	pre, err := s.store.FindLoanByBarcode(ctx, barcode)
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}

	var (
		loan *models.LoanRecord
		from models.LoanStatus
	)
	err = s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		loan, from, err = s.transitionTx(ctx, tx, pre.AssetID, pre.ID, to, prepare)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}
	s.afterTransition(ctx, loan, from, EventLoanStatusChanged)
	return loan, nil
}

// transitionTx locks the asset row first and the loan row second. Every
// writer of both rows uses that order.
func (s *Service) transitionTx(ctx context.Context, tx Tx, assetID, loanID string, to models.LoanStatus, prepare func(*models.LoanRecord) error) (*models.LoanRecord, models.LoanStatus, error) {
	asset, err := tx.LockAssetByID(ctx, assetID)
	if err != nil {
		return nil, "", notFound(err, ErrAssetNotFound)
	}
	loan, err := tx.LockLoanByID(ctx, loanID)
	if err != nil {
		return nil, "", notFound(err, ErrLoanNotFound)
	}
	if prepare != nil {
		if err := prepare(loan); err != nil {
			return nil, "", err
		}
	}

	from, before := loan.Status, asset.Status
	if err := applyTransition(loan, asset, to, s.now()); err != nil {
		return nil, "", err
	}
	if err := tx.SaveLoanRecord(ctx, loan); err != nil {
		return nil, "", persistence(err)
	}
	if asset.Status != before {
		if err := tx.UpdateAssetStatus(ctx, asset.ID, asset.Status); err != nil {
			return nil, "", persistence(err)
		}
	}
	return loan, from, nil
}

func (s *Service) afterTransition(ctx context.Context, loan *models.LoanRecord, from models.LoanStatus, eventType string) {
	s.metrics.LoanTransition(from, loan.Status)
	s.notify(ctx, Event{
		Type:    eventType,
		Kind:    "loan",
		ID:      loan.ID,
		Barcode: loan.Barcode,
		AssetID: loan.AssetID,
		From:    string(from),
		To:      string(loan.Status),
		At:      s.now(),
	})
}

// checkID rejects ids that cannot name a row. Id columns are uuid typed, so
// Postgres would fail the lookup itself instead of finding nothing.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return withMessage(ErrInvalidID, "%q is not a valid id", id)
	}
	return nil
}

func notFound(err error, base *Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return base
	}
	return persistence(err)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package lending_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/models"
	"Gin_postgres_redis_asset_lending/testutil"

	"gorm.io/gorm"
)

// 2025-01-01 09:00:00 UTC
var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	gdb    *gorm.DB
	repo   *db.Repo
	clock  *testutil.Clock
	events *eventLog
	svc    *lending.Service
	arch   *lending.Archiver
}

func newFixture(t *testing.T, opts ...lending.Option) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	f := &fixture{
		gdb:    gdb,
		repo:   db.NewRepo(gdb),
		clock:  testutil.NewClock(t0),
		events: &eventLog{},
	}
	return f.with(opts...)
}

func (f *fixture) with(opts ...lending.Option) *fixture {
	return f.withStore(f.repo, opts...)
}

func (f *fixture) withStore(store lending.Store, opts ...lending.Option) *fixture {
	all := append([]lending.Option{lending.WithClock(f.clock), lending.WithNotifier(f.events)}, opts...)
	f.svc = lending.NewService(store, db.NewSequence(f.gdb), all...)
	f.arch = lending.NewArchiver(store, all...)
	return f
}

func (f *fixture) asset(t *testing.T, id string) *models.Asset {
	t.Helper()
	var a models.Asset
	if err := f.gdb.First(&a, "id = ?", id).Error; err != nil {
		t.Fatalf("load asset %s: %v", id, err)
	}
	return &a
}

func (f *fixture) loan(t *testing.T, id string) *models.LoanRecord {
	t.Helper()
	var l models.LoanRecord
	if err := f.gdb.First(&l, "id = ?", id).Error; err != nil {
		t.Fatalf("load loan %s: %v", id, err)
	}
	return &l
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.gdb.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (f *fixture) guestLoan(t *testing.T, assetID string) *models.LoanRecord {
	t.Helper()
	l, err := f.svc.CreateLoan(context.Background(), lending.CreateLoanInput{
		AssetID:  assetID,
		Borrower: models.Borrower{Kind: models.BorrowerGuest, GuestName: "Ada Guest"},
	})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return l
}

type eventLog struct {
	mu     sync.Mutex
	events []lending.Event
	err    error
}

func (e *eventLog) Notify(_ context.Context, ev lending.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.err
}

func (e *eventLog) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

var errInjected = errors.New("injected failure")

// faultyStore fails chosen writes inside transactions.
type faultyStore struct {
	lending.Store
	failSaveLoan    map[string]bool
	failAssetStatus bool
	failDelete      bool
}

func (s *faultyStore) Transaction(ctx context.Context, fn func(tx lending.Tx) error) error {
	return s.Store.Transaction(ctx, func(tx lending.Tx) error {
		return fn(&faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	lending.Tx
	s *faultyStore
}

func (t *faultyTx) SaveLoanRecord(ctx context.Context, l *models.LoanRecord) error {
	if t.s.failSaveLoan[l.ID] {
		return errInjected
	}
	return t.Tx.SaveLoanRecord(ctx, l)
}

func (t *faultyTx) UpdateAssetStatus(ctx context.Context, id string, st models.AssetStatus) error {
	if t.s.failAssetStatus {
		return errInjected
	}
	return t.Tx.UpdateAssetStatus(ctx, id, st)
}

func (t *faultyTx) DeleteAsset(ctx context.Context, id string) error {
	if t.s.failDelete {
		return errInjected
	}
	return t.Tx.DeleteAsset(ctx, id)
}

func (t *faultyTx) DeleteLoanRecord(ctx context.Context, id string) error {
	if t.s.failDelete {
		return errInjected
	}
	return t.Tx.DeleteLoanRecord(ctx, id)
}

func (t *faultyTx) DeleteUserByID(ctx context.Context, id string) error {
	if t.s.failDelete {
		return errInjected
	}
	return t.Tx.DeleteUserByID(ctx, id)
}

func (t *faultyTx) DeleteArchivedAsset(ctx context.Context, id string) error {
	if t.s.failDelete {
		return errInjected
	}
	return t.Tx.DeleteArchivedAsset(ctx, id)
}

func (t *faultyTx) DeleteArchivedLoan(ctx context.Context, id string) error {
	if t.s.failDelete {
		return errInjected
	}
	return t.Tx.DeleteArchivedLoan(ctx, id)
}

func (t *faultyTx) DeleteArchivedUser(ctx context.Context, id string) error {
	if t.s.failDelete {
		return errInjected
	}
	return t.Tx.DeleteArchivedUser(ctx, id)
}

// scriptedSequence hands out values in order and repeats the last one.
type scriptedSequence struct {
	mu     sync.Mutex
	values []int
	calls  int
}

func (s *scriptedSequence) Next(context.Context, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.calls++
	return s.values[i], nil
}

func (s *scriptedSequence) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// blindStore hides existing rows from the in-transaction pre-insert checks,
// so the insert runs into the unique indexes instead.
type blindStore struct {
	lending.Store
	hideBarcode bool
	hideActive  bool
}

func (s *blindStore) Transaction(ctx context.Context, fn func(tx lending.Tx) error) error {
	return s.Store.Transaction(ctx, func(tx lending.Tx) error {
		return fn(&blindTx{Tx: tx, s: s})
	})
}

type blindTx struct {
	lending.Tx
	s *blindStore
}

func (t *blindTx) FindLoanByBarcode(ctx context.Context, barcode string) (*models.LoanRecord, error) {
	if t.s.hideBarcode {
		return nil, gorm.ErrRecordNotFound
	}
	return t.Tx.FindLoanByBarcode(ctx, barcode)
}

func (t *blindTx) ListActiveLoansForAsset(ctx context.Context, assetID string) ([]models.LoanRecord, error) {
	if t.s.hideActive {
		return nil, nil
	}
	return t.Tx.ListActiveLoansForAsset(ctx, assetID)
}

// untouchableStore panics on any call.
type untouchableStore struct{ lending.Store }

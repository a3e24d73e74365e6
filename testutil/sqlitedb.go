// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite database in a temp dir. The pool holds a
// single connection, so transactions serialize; never call the outer *gorm.DB
// from inside a transaction callback.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "lending.db") + "?_pragma=busy_timeout(5000)"
	gdb, err := db.Open(sqlite.Open(dsn), db.Options{LogLevel: logger.Silent, MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func GivenUser(t testing.TB, gdb *gorm.DB, mutators ...func(*models.User)) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{
		ID:            id,
		Username:      "user-" + id[:8],
		FullName:      "Test User " + id[:4],
		Role:          models.RoleStudent,
		StudentNumber: "S-" + id[:6],
		Presence:      models.PresenceOffline,
	}
	for _, m := range mutators {
		m(u)
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func GivenAsset(t testing.TB, gdb *gorm.DB, mutators ...func(*models.Asset)) *models.Asset {
	t.Helper()
	id := uuid.NewString()
	a := &models.Asset{
		ID:        id,
		Serial:    "SN-" + id[:8],
		Name:      "Projector",
		Category:  "AV",
		Status:    models.AssetAvailable,
		Condition: models.ConditionGood,
	}
	for _, m := range mutators {
		m(a)
	}
	if a.Barcode == "" {
		a.Barcode = "ITEM-" + a.Serial
	}
	require.NoError(t, gdb.Create(a).Error)
	return a
}

// GivenLoan inserts a loan record as-is, without touching the asset.
func GivenLoan(t testing.TB, gdb *gorm.DB, asset *models.Asset, barcode string, mutators ...func(*models.LoanRecord)) *models.LoanRecord {
	t.Helper()
	l := &models.LoanRecord{
		ID:       uuid.NewString(),
		AssetID:  asset.ID,
		Borrower: models.Borrower{Kind: models.BorrowerGuest, GuestName: "Walk-in Guest"},
		Barcode:  barcode,
		Status:   models.LoanPending,
	}
	for _, m := range mutators {
		m(l)
	}
	require.NoError(t, gdb.Create(l).Error)
	return l
}

// Clock is a settable lending.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t.UTC()} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

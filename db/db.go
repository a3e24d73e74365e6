package db

import (
	"Gin_postgres_redis_asset_lending/models"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	LogLevel        logger.LogLevel
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DSN(host, user, password, name, port string) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, user, password, name, port,
	)
}

// ConnectDB opens Postgres and runs migrations.
func ConnectDB(dsn string, opts Options) (*gorm.DB, error) {
	gdb, err := Open(postgres.Open(dsn), opts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}

// Open wraps gorm.Open with the settings every dialector shares. Driver errors
// are translated so unique violations surface as gorm.ErrDuplicatedKey.
func Open(d gorm.Dialector, opts Options) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	gdb, err := gorm.Open(d, &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return gdb, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Asset{},
		&models.LoanRecord{},
		&models.BarcodeSequence{},
		&models.ArchivedAsset{},
		&models.ArchivedLoanRecord{},
		&models.ArchivedUser{},
	); err != nil {
		return err
	}

	// 同一资产最多一条未结束的借用记录
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_asset
	  ON %s (asset_id)
	  WHERE status IN (%s);
	`, models.LoanTable, models.LoanTable, quotedStatuses(models.ActiveLoanStatuses))).Error; err != nil {
		return err
	}

	// 过期预约扫描
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_reserved_due
	  ON %s (reserved_for)
	  WHERE status = '%s';
	`, models.LoanTable, models.LoanTable, models.LoanReserved)).Error; err != nil {
		return err
	}

	return nil
}

func quotedStatuses(ss []models.LoanStatus) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = "'" + string(s) + "'"
	}
	return strings.Join(q, ",")
}

func statusStrings(ss []models.LoanStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

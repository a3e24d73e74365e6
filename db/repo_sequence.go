package db

import (
	"context"
	"fmt"
	"time"

	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/models"

	"gorm.io/gorm"
)

// Sequence hands out loan barcode numbers from one counter row per day. The
// increment is a single UPDATE ... RETURNING, so concurrent callers serialize
// on the row. The first call of a day seeds the row from the highest suffix
// already used by live and archived loans.
type Sequence struct{ DB *gorm.DB }

func NewSequence(db *gorm.DB) *Sequence { return &Sequence{DB: db} }

var _ lending.Sequence = (*Sequence)(nil)

func (s *Sequence) Next(ctx context.Context, day string) (int, error) {
	db := s.DB.WithContext(ctx)
	now := time.Now().UTC()

	n, ok, err := queryInt(db.Raw(fmt.Sprintf(
		`UPDATE %s SET value = value + 1, updated_at = ? WHERE day = ? RETURNING value`,
		models.SequenceTable), now, day))
	if err != nil {
		return 0, err
	}
	if ok {
		return n, nil
	}

	// 当天第一次：按已有条码的最大序号初始化；并发初始化由 ON CONFLICT 兜底
	seed, err := NewRepo(s.DB).MaxLoanSequence(ctx, day)
	if err != nil {
		return 0, err
	}
	n, ok, err = queryInt(db.Raw(fmt.Sprintf(`
		INSERT INTO %[1]s (day, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET value = %[1]s.value + 1, updated_at = excluded.updated_at
		RETURNING value`,
		models.SequenceTable), day, seed+1, now))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("sequence %s: upsert returned no row", day)
	}
	return n, nil
}

// MaxLoanSequence scans live and archived loan barcodes of day and returns
// the highest suffix, or 0.
func (r *Repo) MaxLoanSequence(ctx context.Context, day string) (int, error) {
	prefix := lending.LoanBarcodeDayPrefix(day)
	var live, archived []string
	if err := r.DB.WithContext(ctx).Model(&models.LoanRecord{}).
		Where("barcode LIKE ?", prefix+"%").
		Pluck("barcode", &live).Error; err != nil {
		return 0, err
	}
	if err := r.DB.WithContext(ctx).Model(&models.ArchivedLoanRecord{}).
		Where("barcode LIKE ?", prefix+"%").
		Pluck("barcode", &archived).Error; err != nil {
		return 0, err
	}
	return lending.MaxSequenceSuffix(append(live, archived...), prefix), nil
}

func queryInt(q *gorm.DB) (int, bool, error) {
	rows, err := q.Rows()
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var n int
	if err := rows.Scan(&n); err != nil {
		return 0, false, err
	}
	return n, true, rows.Err()
}

package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_asset_lending/db"
	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/models"
	"Gin_postgres_redis_asset_lending/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_DSN_PinsUTC(t *testing.T) {
	dsn := db.DSN("pg", "lender", "secret", "lending", "5432")

	assert.Equal(t, "host=pg user=lender password=secret dbname=lending port=5432 sslmode=disable TimeZone=UTC", dsn)
}

func Test_Migrate_IsIdempotent(t *testing.T) {
	gdb := testutil.NewDB(t)

	assert.NoError(t, db.Migrate(gdb))
}

func Test_Sequence_StartsAtOneAndIncrements(t *testing.T) {
	gdb := testutil.NewDB(t)
	seq := db.NewSequence(gdb)

	for want := 1; want <= 5; want++ {
		n, err := seq.Next(context.Background(), "20250101")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := seq.Next(context.Background(), "20250102")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func Test_Sequence_SeedsFromHighestExistingSuffix(t *testing.T) {
	// arrange
	gdb := testutil.NewDB(t)
	a := testutil.GivenAsset(t, gdb)
	for _, b := range []string{"LENT-20250101-003", "LENT-20250101-011", "LENT-20250102-040"} {
		testutil.GivenLoan(t, gdb, a, b, func(l *models.LoanRecord) { l.Status = models.LoanReturned })
	}
	seq := db.NewSequence(gdb)

	// act
	n, err := seq.Next(context.Background(), "20250101")

	// assert
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func Test_Sequence_DoesNotRescanOnceSeeded(t *testing.T) {
	gdb := testutil.NewDB(t)
	seq := db.NewSequence(gdb)
	n, err := seq.Next(context.Background(), "20250101")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// a later row with a higher suffix does not move the counter
	a := testutil.GivenAsset(t, gdb)
	testutil.GivenLoan(t, gdb, a, "LENT-20250101-050")

	n, err = seq.Next(context.Background(), "20250101")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func Test_Sequence_ConcurrentNextIsUnique(t *testing.T) {
	const k = 20
	gdb := testutil.NewDB(t)
	seq := db.NewSequence(gdb)

	var wg sync.WaitGroup
	got := make([]int, k)
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = seq.Next(context.Background(), "20250101")
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for i := range got {
		require.NoError(t, errs[i])
		seen[got[i]] = true
	}
	assert.Len(t, seen, k)
	for n := 1; n <= k; n++ {
		assert.True(t, seen[n], "missing %d", n)
	}
}

func Test_MaxLoanSequence_IncludesArchive(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	a := testutil.GivenAsset(t, gdb)
	testutil.GivenLoan(t, gdb, a, "LENT-20250101-004", func(l *models.LoanRecord) { l.Status = models.LoanReturned })
	require.NoError(t, repo.CreateArchivedLoan(context.Background(), &models.ArchivedLoanRecord{
		ID:         uuid.NewString(),
		OriginalID: uuid.NewString(),
		AssetID:    a.ID,
		Borrower:   models.Borrower{Kind: models.BorrowerGuest, GuestName: "g"},
		Barcode:    "LENT-20250101-009",
		Status:     models.LoanReturned,
		ArchivedAt: time.Now().UTC(),
	}))

	n, err := repo.MaxLoanSequence(context.Background(), "20250101")
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	n, err = repo.MaxLoanSequence(context.Background(), "20250103")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func Test_ActiveLoanIndex_RejectsSecondOpenLoan(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	a := testutil.GivenAsset(t, gdb)
	testutil.GivenLoan(t, gdb, a, "LENT-20250101-001", func(l *models.LoanRecord) { l.Status = models.LoanBorrowed })

	err := repo.CreateLoanRecord(context.Background(), &models.LoanRecord{
		ID:       uuid.NewString(),
		AssetID:  a.ID,
		Barcode:  "LENT-20250101-002",
		Status:   models.LoanPending,
		Borrower: models.Borrower{Kind: models.BorrowerGuest, GuestName: "g"},
	})

	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func Test_ActiveLoanIndex_AllowsFinishedHistory(t *testing.T) {
	gdb := testutil.NewDB(t)
	a := testutil.GivenAsset(t, gdb)
	testutil.GivenLoan(t, gdb, a, "LENT-20250101-001", func(l *models.LoanRecord) { l.Status = models.LoanReturned })
	testutil.GivenLoan(t, gdb, a, "LENT-20250101-002", func(l *models.LoanRecord) { l.Status = models.LoanCancelled })
	testutil.GivenLoan(t, gdb, a, "LENT-20250101-003", func(l *models.LoanRecord) { l.Status = models.LoanReserved })

	active, err := db.NewRepo(gdb).ListActiveLoansForAsset(context.Background(), a.ID)

	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "LENT-20250101-003", active[0].Barcode)
}

func Test_Repo_ZeroRowWritesAreNotFound(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	ctx := context.Background()
	missing := uuid.NewString()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "update_asset_status", call: func() error { return repo.UpdateAssetStatus(ctx, missing, models.AssetBorrowed) }},
		{name: "update_asset_condition", call: func() error { return repo.UpdateAssetCondition(ctx, missing, models.ConditionGood) }},
		{name: "delete_asset", call: func() error { return repo.DeleteAsset(ctx, missing) }},
		{name: "delete_loan", call: func() error { return repo.DeleteLoanRecord(ctx, missing) }},
		{name: "delete_user", call: func() error { return repo.DeleteUserByID(ctx, missing) }},
		{name: "delete_archived_asset", call: func() error { return repo.DeleteArchivedAsset(ctx, missing) }},
		{name: "delete_archived_loan", call: func() error { return repo.DeleteArchivedLoan(ctx, missing) }},
		{name: "delete_archived_user", call: func() error { return repo.DeleteArchivedUser(ctx, missing) }},
		{name: "set_presence", call: func() error { return repo.SetUserPresence(ctx, missing, models.PresenceOnline) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), gorm.ErrRecordNotFound)
		})
	}
}

func Test_Repo_TransactionRollsBackOnError(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	a := testutil.GivenAsset(t, gdb)

	err := repo.Transaction(context.Background(), func(tx lending.Tx) error {
		if err := tx.UpdateAssetStatus(context.Background(), a.ID, models.AssetBorrowed); err != nil {
			return err
		}
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	got, err := repo.FindAssetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetAvailable, got.Status)
}

func Test_ListExpiredReservations(t *testing.T) {
	gdb := testutil.NewDB(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mk := func(barcode string, st models.LoanStatus, due *time.Time) {
		a := testutil.GivenAsset(t, gdb)
		testutil.GivenLoan(t, gdb, a, barcode, func(l *models.LoanRecord) {
			l.Status = st
			l.ReservedFor = due
		})
	}
	early, late, past := now.Add(-2*time.Hour), now.Add(time.Hour), now.Add(-time.Hour)
	mk("LENT-20250101-001", models.LoanReserved, &past)
	mk("LENT-20250101-002", models.LoanReserved, &early)
	mk("LENT-20250101-003", models.LoanReserved, &late)
	mk("LENT-20250101-004", models.LoanCancelled, &early)
	mk("LENT-20250101-005", models.LoanPending, nil)

	got, err := db.NewRepo(gdb).ListExpiredReservations(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "LENT-20250101-002", got[0].Barcode)
	assert.Equal(t, "LENT-20250101-001", got[1].Barcode)
}

func Test_ListLoans_Filters(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	u := testutil.GivenUser(t, gdb)
	a1 := testutil.GivenAsset(t, gdb)
	a2 := testutil.GivenAsset(t, gdb)
	testutil.GivenLoan(t, gdb, a1, "LENT-20250101-001", func(l *models.LoanRecord) {
		l.Status = models.LoanReturned
		l.Borrower = models.Borrower{Kind: models.BorrowerUser, UserID: &u.ID}
		l.IsHiddenFromUser = true
	})
	testutil.GivenLoan(t, gdb, a1, "LENT-20250101-002", func(l *models.LoanRecord) {
		l.Borrower = models.Borrower{Kind: models.BorrowerUser, UserID: &u.ID}
	})
	testutil.GivenLoan(t, gdb, a2, "LENT-20250101-003")

	tests := []struct {
		name          string
		userID        string
		assetID       string
		status        models.LoanStatus
		includeHidden bool
		want          int
	}{
		{name: "all_visible", want: 2},
		{name: "all_including_hidden", includeHidden: true, want: 3},
		{name: "by_user", userID: u.ID, want: 1},
		{name: "by_user_including_hidden", userID: u.ID, includeHidden: true, want: 2},
		{name: "by_asset", assetID: a2.ID, want: 1},
		{name: "by_status", status: models.LoanReturned, includeHidden: true, want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ls, err := repo.ListLoans(context.Background(), tc.userID, tc.assetID, tc.status, tc.includeHidden)
			require.NoError(t, err)
			assert.Len(t, ls, tc.want)
		})
	}
}

func Test_ListUsers_SearchAndPaging(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	testutil.GivenUser(t, gdb, func(u *models.User) { u.Username, u.FullName = "alice", "Alice Liddell" })
	testutil.GivenUser(t, gdb, func(u *models.User) { u.Username, u.FullName = "bob", "Bob Builder" })
	testutil.GivenUser(t, gdb, func(u *models.User) { u.Username, u.FullName = "carol", "Carol Alison" })

	res, err := repo.ListUsers(context.Background(), "ALI", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Len(t, res.Users, 2)

	res, err = repo.ListUsers(context.Background(), "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Len(t, res.Users, 1)
}

func Test_TouchUserSeenAndCountOnline(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	u := testutil.GivenUser(t, gdb)
	testutil.GivenUser(t, gdb)
	at := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.TouchUserSeen(context.Background(), u.ID, at))

	got, err := repo.FindUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOnline, got.Presence)
	require.NotNil(t, got.LastSeenAt)
	assert.True(t, got.LastSeenAt.Equal(at))
	n, err := repo.CountOnline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.SetUserPresence(context.Background(), u.ID, models.PresenceOffline))
	n, err = repo.CountOnline(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func Test_ListAssetsWithCurrentLoan(t *testing.T) {
	// arrange
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	u := testutil.GivenUser(t, gdb, func(u *models.User) { u.FullName = "Lent To" })

	lent := testutil.GivenAsset(t, gdb, func(a *models.Asset) {
		a.Name = "Drone"
		a.Status = models.AssetBorrowed
	})
	testutil.GivenLoan(t, gdb, lent, "LENT-20250101-001", func(l *models.LoanRecord) {
		l.Status = models.LoanBorrowed
		l.Borrower = models.Borrower{Kind: models.BorrowerUser, UserID: &u.ID}
	})
	due := testutil.GivenAsset(t, gdb, func(a *models.Asset) { a.Name = "Tripod" })
	past := now.Add(-time.Hour)
	testutil.GivenLoan(t, gdb, due, "LENT-20250101-002", func(l *models.LoanRecord) {
		l.Status = models.LoanReserved
		l.ReservedFor = &past
	})
	testutil.GivenAsset(t, gdb, func(a *models.Asset) {
		a.Name = "Broken Lamp"
		a.Condition = models.ConditionDefective
	})
	free := testutil.GivenAsset(t, gdb, func(a *models.Asset) { a.Name = "Spare Cable" })
	testutil.GivenLoan(t, gdb, free, "LENT-20241201-001", func(l *models.LoanRecord) { l.Status = models.LoanReturned })

	tests := []struct {
		name     string
		query    db.AdminAssetsQuery
		validate func(t *testing.T, res *db.PagedAdminAssets)
	}{
		{
			name:  "all_assets_once_each",
			query: db.AdminAssetsQuery{Now: now},
			validate: func(t *testing.T, res *db.PagedAdminAssets) {
				assert.Equal(t, int64(4), res.Total)
				assert.Len(t, res.Items, 4)
			},
		},
		{
			name:  "lent_joins_borrower",
			query: db.AdminAssetsQuery{Status: "lent", Now: now},
			validate: func(t *testing.T, res *db.PagedAdminAssets) {
				assert.Equal(t, int64(2), res.Total)
				for _, row := range res.Items {
					require.NotNil(t, row.LoanBarcode)
					if row.ID == lent.ID {
						require.NotNil(t, row.BorrowerFullName)
						assert.Equal(t, "Lent To", *row.BorrowerFullName)
					}
				}
			},
		},
		{
			name:  "due_reservations",
			query: db.AdminAssetsQuery{Status: "due", Now: now},
			validate: func(t *testing.T, res *db.PagedAdminAssets) {
				require.Len(t, res.Items, 1)
				assert.Equal(t, due.ID, res.Items[0].ID)
				assert.True(t, res.Items[0].ReservationDue)
			},
		},
		{
			name:  "available_excludes_open_loans",
			query: db.AdminAssetsQuery{Status: "available", Now: now},
			validate: func(t *testing.T, res *db.PagedAdminAssets) {
				assert.Equal(t, int64(2), res.Total)
				for _, row := range res.Items {
					assert.Nil(t, row.LoanID)
				}
			},
		},
		{
			name:  "defective",
			query: db.AdminAssetsQuery{Status: "defective", Now: now},
			validate: func(t *testing.T, res *db.PagedAdminAssets) {
				require.Len(t, res.Items, 1)
				assert.Equal(t, "Broken Lamp", res.Items[0].Name)
			},
		},
		{
			name:  "search_is_case_insensitive",
			query: db.AdminAssetsQuery{Q: "drONE", Now: now},
			validate: func(t *testing.T, res *db.PagedAdminAssets) {
				require.Len(t, res.Items, 1)
				assert.Equal(t, lent.ID, res.Items[0].ID)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := repo.ListAssetsWithCurrentLoan(context.Background(), tc.query)
			require.NoError(t, err)
			tc.validate(t, res)
		})
	}
}

func Test_ArchiveLookupsPreferNewest(t *testing.T) {
	gdb := testutil.NewDB(t)
	repo := db.NewRepo(gdb)
	original := uuid.NewString()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 6, 0)
	for _, at := range []time.Time{older, newer} {
		require.NoError(t, repo.CreateArchivedUser(context.Background(), &models.ArchivedUser{
			ID:         uuid.NewString(),
			OriginalID: original,
			Username:   "u",
			FullName:   "Name " + at.Format("2006-01"),
			Role:       models.RoleStaff,
			Presence:   models.PresenceOffline,
			ArchivedAt: at,
		}))
	}

	got, err := repo.FindArchivedUserByOriginalID(context.Background(), original)

	require.NoError(t, err)
	assert.Equal(t, "Name 2024-07", got.FullName)
	list, err := repo.ListArchivedUsers(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

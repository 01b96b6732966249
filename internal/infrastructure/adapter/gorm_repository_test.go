package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/business"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestUpdateTokenIfUnchanged(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormConnectionRepository(db)
	conn := &connection.Connection{ID: "conn-1", AccessToken: "new", Status: connection.StatusActive}

	mock.ExpectExec(`UPDATE "review_sources" SET .* WHERE id = \$\d+ AND access_token = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	updated, err := repo.UpdateTokenIfUnchanged(context.Background(), conn, "old")
	require.NoError(t, err)
	assert.True(t, updated)

	mock.ExpectExec(`UPDATE "review_sources" SET .* WHERE id = \$\d+ AND access_token = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	updated, err = repo.UpdateTokenIfUnchanged(context.Background(), conn, "old")
	require.NoError(t, err)
	assert.False(t, updated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindConnectionNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormConnectionRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "review_sources" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, connection.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRepliedSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReviewRepository(db)
	since := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reviews" WHERE \(business_id = \$1 AND location_id = \$2\) AND reply_status IN \(\$3,\$4\) AND reply_status_changed_at >= \$5`).
		WithArgs("biz-1", "loc-1", "approved", "posted", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountRepliedSince(context.Background(), "biz-1", "loc-1", since)

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReplyStateRefusesTerminalRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReviewRepository(db)

	mock.ExpectExec(`UPDATE "reviews" SET .* WHERE id = \$\d+ AND \(reply_status IS NULL OR reply_status NOT IN \(\$\d+,\$\d+\)\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "reviews" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reply_status"}).AddRow("rev-1", "posted"))

	err := repo.SaveReplyState(context.Background(), &review.Review{ID: "rev-1", ReplyStatus: review.StatusFailed})

	assert.ErrorIs(t, err, review.ErrInvalidTransition)
	assert.ErrorContains(t, err, "review rev-1 is already posted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUnprocessedUsesKeyset(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReviewRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "reviews" WHERE .*reply_status IS NULL OR reply_status = ''.* AND business_id = \$1 AND id > \$2 ORDER BY id ASC LIMIT \$3`).
		WithArgs("biz-1", "rev-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "rating"}).AddRow("rev-2", "biz-1", 5))

	rows, err := repo.FindByStatus(context.Background(), review.Filter{Status: review.StatusUnprocessed, BusinessID: "biz-1", AfterID: "rev-1", Limit: 2})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "rev-2", rows[0].ID)
	assert.Equal(t, review.StatusUnprocessed, rows[0].ReplyStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindFailedRespectsCooldown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormReviewRepository(db)
	cutoff := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "reviews" WHERE reply_status = \$1 AND reply_status_changed_at < \$2 ORDER BY id ASC LIMIT \$3`).
		WithArgs("failed", cutoff, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reply_status"}).AddRow("rev-7", "failed"))

	rows, err := repo.FindByStatus(context.Background(), review.Filter{Status: review.StatusFailed, ChangedBefore: cutoff, Limit: 50})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, review.StatusFailed, rows[0].ReplyStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindProfileAppliesSettingDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormBusinessRepository(db)
	columns := []string{"id", "business_id", "name", "auto_reply"}

	mock.ExpectQuery(`SELECT \* FROM "business_profiles" WHERE business_id = \$1`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p-1", "biz-1", "Harbor Inn", []byte(`{"enabled": true}`)))
	profile, err := repo.FindProfile(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Harbor Inn", profile.Name)
	assert.Equal(t, business.ModePositive, profile.AutoReply.Mode)
	assert.Equal(t, business.DefaultMaxRepliesPerDay, profile.AutoReply.MaxRepliesPerDay)

	mock.ExpectQuery(`SELECT \* FROM "business_profiles" WHERE business_id = \$1`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p-2", "biz-2", "Dune Cafe", []byte(`{"enabled": true, "maxRepliesPerDay": 0, "delayHours": 6}`)))
	profile, err = repo.FindProfile(context.Background(), "biz-2")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.AutoReply.MaxRepliesPerDay)
	assert.Equal(t, 6, profile.AutoReply.DelayHours)

	mock.ExpectQuery(`SELECT \* FROM "business_profiles" WHERE business_id = \$1`).
		WillReturnRows(sqlmock.NewRows(columns))
	profile, err = repo.FindProfile(context.Background(), "biz-3")
	require.NoError(t, err)
	assert.Nil(t, profile)

	assert.NoError(t, mock.ExpectationsWereMet())
}

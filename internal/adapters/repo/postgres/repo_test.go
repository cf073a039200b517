package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phenrril/protoquote/internal/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(pgdriver.New(pgdriver.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestQuoteRepoFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "status", "email", "price", "time_label", "created_at"}).
		AddRow(id.String(), "pending", "maker@example.com", 220, "0h 57m", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "quote_requests" WHERE id = $1`)).
		WillReturnRows(rows)

	q, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, q.ID)
	assert.Equal(t, domain.QuoteStatusPending, q.Status)
	assert.Equal(t, 220, q.Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteRepoFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db)

	mock.ExpectQuery(`SELECT (.+) FROM "quote_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteRepoList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "quote_requests" WHERE status = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT (.+) FROM "quote_requests" WHERE status = \$1 ORDER BY created_at desc`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow(uuid.New().String(), "pending").
			AddRow(uuid.New().String(), "pending"))

	list, total, err := repo.List(context.Background(), domain.QuoteFilter{Status: domain.QuoteStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteRepoUpdateStatusMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "quote_requests" SET "status"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), domain.QuoteStatusQuoted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepoFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepo(db)

	mock.ExpectQuery(`SELECT (.+) FROM "customers" WHERE LOWER\(email\) = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(uuid.New().String(), "maker@example.com"))

	c, err := repo.FindByEmail(context.Background(), "  Maker@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "maker@example.com", c.Email)

	_, err = repo.FindByEmail(context.Background(), " ")
	assert.Error(t, err)
}

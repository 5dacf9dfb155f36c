package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oXide0/simplicity/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func announcementRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title", "body", "publication_date", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "Title "+id, "Body "+id, time.Now(), time.Now(), time.Now())
	}
	return rows
}

func TestAnnouncementRepositoryListNoFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, body, publication_date, created_at, updated_at FROM announcements WHERE 1=1 ORDER BY updated_at DESC")).
		WillReturnRows(announcementRows("a1", "a2"))
	mock.ExpectQuery("SELECT ac.announcement_id, c.id AS category_id, c.name").
		WillReturnRows(sqlmock.NewRows([]string{"announcement_id", "category_id", "name"}).
			AddRow("a1", int64(2), "Event").
			AddRow("a1", int64(4), "HR").
			AddRow("a2", int64(2), "Event"))

	list, err := repo.List(context.Background(), models.AnnouncementFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []models.Category{{ID: 2, Name: "Event"}, {ID: 4, Name: "HR"}}, list[0].Categories)
	assert.Equal(t, []models.Category{{ID: 2, Name: "Event"}}, list[1].Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("EXISTS (SELECT 1 FROM announcement_categories ac WHERE ac.announcement_id = announcements.id AND ac.category_id = ANY($1)) AND (title LIKE $2 OR body LIKE $2) ORDER BY updated_at DESC")).
		WithArgs(sqlmock.AnyArg(), "%Cloud%").
		WillReturnRows(announcementRows("a1"))
	mock.ExpectQuery("SELECT ac.announcement_id, c.id AS category_id, c.name").
		WillReturnRows(sqlmock.NewRows([]string{"announcement_id", "category_id", "name"}).
			AddRow("a1", int64(1), "Company News"))

	list, err := repo.List(context.Background(), models.AnnouncementFilter{
		CategoryIDs: []int64{1, 5},
		Search:      "Cloud",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery("SELECT id, title, body, publication_date, created_at, updated_at FROM announcements").
		WillReturnRows(announcementRows())

	list, err := repo.List(context.Background(), models.AnnouncementFilter{Search: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, body, publication_date, created_at, updated_at FROM announcements WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO announcements").
		WithArgs(sqlmock.AnyArg(), "Retreat", "See you there", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO announcement_categories").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT ac.announcement_id, c.id AS category_id, c.name").
		WillReturnRows(sqlmock.NewRows([]string{"announcement_id", "category_id", "name"}).
			AddRow("ignored", int64(1), "HR").
			AddRow("ignored", int64(2), "Event"))
	mock.ExpectCommit()

	announcement := &models.Announcement{
		Title:           "Retreat",
		Body:            "See you there",
		PublicationDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), announcement, []int64{1, 2})
	require.NoError(t, err)
	assert.NotEmpty(t, announcement.ID)
	assert.False(t, announcement.CreatedAt.IsZero())
	assert.Equal(t, announcement.CreatedAt, announcement.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreateUnknownCategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Announcement{Title: "x", Body: "y"}, []int64{1, 99})
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryUpdateReplacesCategories(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE announcements SET title = $1, body = $2, publication_date = $3, updated_at = $4")).
		WithArgs("New title", "New body", sqlmock.AnyArg(), sqlmock.AnyArg(), "a1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcement_categories WHERE announcement_id = $1")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO announcement_categories").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT ac.announcement_id, c.id AS category_id, c.name").
		WillReturnRows(sqlmock.NewRows([]string{"announcement_id", "category_id", "name"}).
			AddRow("a1", int64(2), "Event"))
	mock.ExpectCommit()

	announcement := &models.Announcement{
		ID:              "a1",
		Title:           "New title",
		Body:            "New body",
		PublicationDate: time.Now(),
	}
	err := repo.Update(context.Background(), announcement, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, createdAt, announcement.CreatedAt)
	assert.True(t, announcement.UpdatedAt.After(createdAt))
	assert.Equal(t, []models.Category{{ID: 2, Name: "Event"}}, announcement.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("UPDATE announcements SET").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Announcement{ID: "missing", Title: "t", Body: "b"}, []int64{1})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcement_categories WHERE announcement_id = $1")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcements WHERE id = $1")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcement_categories WHERE announcement_id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM announcements WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

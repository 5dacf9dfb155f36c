package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/oXide0/simplicity/internal/models"
)

// ErrUnknownCategory is returned when a create or update references a
// category id that does not exist. The transaction is rolled back so no
// dangling association row is ever written.
var ErrUnknownCategory = errors.New("unknown category id")

const announcementColumns = "id, title, body, publication_date, created_at, updated_at"

// AnnouncementRepository provides persistence for announcements and
// exclusively owns the announcement_categories association rows.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns announcements matching the filter, most recently updated
// first, with their categories attached. An empty result is not an
// error.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	base := "FROM announcements WHERE 1=1"
	var conditions []string
	var args []interface{}

	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM announcement_categories ac WHERE ac.announcement_id = announcements.id AND ac.category_id = ANY($%d))",
			len(args)+1))
		args = append(args, pq.Array(filter.CategoryIDs))
	}
	if filter.Search != "" {
		// LIKE keeps the match case-sensitive on purpose.
		conditions = append(conditions, fmt.Sprintf("(title LIKE $%d OR body LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY updated_at DESC", announcementColumns, base)
	announcements := []models.Announcement{}
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	if err := r.attachCategories(ctx, r.db, announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// GetByID returns an announcement by identifier including its categories.
// Absence surfaces as sql.ErrNoRows.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf("SELECT %s FROM announcements WHERE id = $1", announcementColumns)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	rows := []models.Announcement{announcement}
	if err := r.attachCategories(ctx, r.db, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// Create inserts a new announcement and one association row per
// category id in a single transaction. The id and both timestamps are
// assigned here.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement, categoryIDs []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create announcement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = ensureCategoriesExist(ctx, tx, categoryIDs); err != nil {
		return err
	}

	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now

	const insertQuery = `INSERT INTO announcements (id, title, body, publication_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertQuery,
		announcement.ID, announcement.Title, announcement.Body,
		announcement.PublicationDate, announcement.CreatedAt, announcement.UpdatedAt); err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}

	if err = insertAssociations(ctx, tx, announcement.ID, categoryIDs); err != nil {
		return err
	}
	if err = r.attachCategoriesTx(ctx, tx, announcement); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create announcement: %w", err)
	}
	return nil
}

// Update fully replaces title, body, publication date and the category
// association set in one transaction, so a concurrent reader never
// observes an announcement without categories. createdAt is preserved;
// updatedAt is refreshed. Absence surfaces as sql.ErrNoRows.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement, categoryIDs []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update announcement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = ensureCategoriesExist(ctx, tx, categoryIDs); err != nil {
		return err
	}

	announcement.UpdatedAt = time.Now().UTC()

	const updateQuery = `UPDATE announcements SET title = $1, body = $2, publication_date = $3, updated_at = $4
WHERE id = $5 RETURNING created_at`
	if err = tx.GetContext(ctx, &announcement.CreatedAt, updateQuery,
		announcement.Title, announcement.Body, announcement.PublicationDate,
		announcement.UpdatedAt, announcement.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update announcement: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM announcement_categories WHERE announcement_id = $1", announcement.ID); err != nil {
		return fmt.Errorf("clear announcement categories: %w", err)
	}
	if err = insertAssociations(ctx, tx, announcement.ID, categoryIDs); err != nil {
		return err
	}
	if err = r.attachCategoriesTx(ctx, tx, announcement); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement and its association rows. The boolean
// reports whether a row existed; a missing id is not an error.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) (deleted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete announcement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM announcement_categories WHERE announcement_id = $1", id); err != nil {
		return false, fmt.Errorf("delete announcement categories: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete announcement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete announcement rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete announcement: %w", err)
	}
	return affected > 0, nil
}

func ensureCategoriesExist(ctx context.Context, tx *sqlx.Tx, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM categories WHERE id = ANY($1)", pq.Array(categoryIDs)); err != nil {
		return fmt.Errorf("check category ids: %w", err)
	}
	if count != len(categoryIDs) {
		return ErrUnknownCategory
	}
	return nil
}

func insertAssociations(ctx context.Context, tx *sqlx.Tx, announcementID string, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO announcement_categories (announcement_id, category_id)
SELECT $1, unnest($2::bigint[])`
	if _, err := tx.ExecContext(ctx, query, announcementID, pq.Array(categoryIDs)); err != nil {
		return fmt.Errorf("insert announcement categories: %w", err)
	}
	return nil
}

func (r *AnnouncementRepository) attachCategoriesTx(ctx context.Context, tx *sqlx.Tx, announcement *models.Announcement) error {
	rows := []models.Announcement{*announcement}
	if err := r.attachCategories(ctx, tx, rows); err != nil {
		return err
	}
	announcement.Categories = rows[0].Categories
	return nil
}

type announcementCategoryRow struct {
	AnnouncementID string `db:"announcement_id"`
	CategoryID     int64  `db:"category_id"`
	CategoryName   string `db:"name"`
}

func (r *AnnouncementRepository) attachCategories(ctx context.Context, q sqlx.QueryerContext, announcements []models.Announcement) error {
	if len(announcements) == 0 {
		return nil
	}
	ids := make([]string, len(announcements))
	for i := range announcements {
		ids[i] = announcements[i].ID
	}

	const query = `SELECT ac.announcement_id, c.id AS category_id, c.name
FROM announcement_categories ac
JOIN categories c ON c.id = ac.category_id
WHERE ac.announcement_id = ANY($1)
ORDER BY c.name ASC`
	var rows []announcementCategoryRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load announcement categories: %w", err)
	}

	byAnnouncement := make(map[string][]models.Category, len(announcements))
	for _, row := range rows {
		byAnnouncement[row.AnnouncementID] = append(byAnnouncement[row.AnnouncementID], models.Category{
			ID:   row.CategoryID,
			Name: row.CategoryName,
		})
	}
	for i := range announcements {
		categories := byAnnouncement[announcements[i].ID]
		if categories == nil {
			categories = []models.Category{}
		}
		announcements[i].Categories = categories
	}
	return nil
}

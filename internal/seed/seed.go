// Package seed loads the reference categories and a set of sample
// announcements into an empty database.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var categoryNames = []string{"Company News", "Product Update", "Event", "HR", "Engineering", "Marketing"}

type sampleAnnouncement struct {
	title           string
	body            string
	publicationDate string
	createdAt       string
	updatedAt       string
	categories      []string
}

var sampleAnnouncements = []sampleAnnouncement{
	{
		title:           "Q1 Company All-Hands Meeting",
		body:            "Join us for the quarterly all-hands meeting where we will review our progress, celebrate achievements, and discuss the roadmap for the upcoming quarter.",
		publicationDate: "2025-01-15T10:00:00Z",
		createdAt:       "2025-01-10T08:00:00Z",
		updatedAt:       "2025-01-14T16:30:00Z",
		categories:      []string{"Company News", "Event"},
	},
	{
		title:           "New Feature: Dark Mode Released",
		body:            "We are excited to announce that dark mode is now available across all platforms. Users can toggle it in their settings. This has been one of our most requested features.",
		publicationDate: "2025-02-01T09:00:00Z",
		createdAt:       "2025-01-28T14:00:00Z",
		updatedAt:       "2025-02-01T09:00:00Z",
		categories:      []string{"Product Update", "Engineering"},
	},
	{
		title:           "Summer Internship Program 2025",
		body:            "Applications are now open for our summer internship program. We are looking for talented individuals in engineering, design, and marketing. Apply before March 31st.",
		publicationDate: "2025-02-10T12:00:00Z",
		createdAt:       "2025-02-05T10:00:00Z",
		updatedAt:       "2025-02-10T12:00:00Z",
		categories:      []string{"HR"},
	},
	{
		title:           "Infrastructure Migration to Cloud",
		body:            "Our engineering team has successfully completed the migration of our core services to the cloud. This improves reliability, scalability, and reduces operational costs.",
		publicationDate: "2025-02-20T14:00:00Z",
		createdAt:       "2025-02-18T09:00:00Z",
		updatedAt:       "2025-02-22T11:00:00Z",
		categories:      []string{"Engineering", "Company News"},
	},
	{
		title:           "Marketing Campaign: Spring Launch",
		body:            "Our spring marketing campaign kicks off next week. The campaign includes social media, email newsletters, and partnerships with key influencers in our industry.",
		publicationDate: "2025-03-01T08:00:00Z",
		createdAt:       "2025-02-25T16:00:00Z",
		updatedAt:       "2025-03-01T08:00:00Z",
		categories:      []string{"Marketing"},
	},
	{
		title:           "Updated Employee Benefits Package",
		body:            "We have updated our employee benefits package to include additional wellness programs, flexible work arrangements, and increased parental leave. Check the HR portal for details.",
		publicationDate: "2025-03-05T10:00:00Z",
		createdAt:       "2025-03-01T12:00:00Z",
		updatedAt:       "2025-03-06T09:00:00Z",
		categories:      []string{"HR", "Company News"},
	},
	{
		title:           "API v2.0 Documentation Available",
		body:            "The documentation for API version 2.0 is now live. It includes new endpoints for batch operations, improved authentication, and comprehensive code examples.",
		publicationDate: "2025-03-10T11:00:00Z",
		createdAt:       "2025-03-08T15:00:00Z",
		updatedAt:       "2025-03-10T11:00:00Z",
		categories:      []string{"Product Update", "Engineering"},
	},
	{
		title:           "Annual Company Retreat",
		body:            "Save the date! Our annual company retreat will take place June 15-17. This year we are heading to the mountains for team-building activities, workshops, and fun.",
		publicationDate: "2025-03-15T09:00:00Z",
		createdAt:       "2025-03-12T10:00:00Z",
		updatedAt:       "2025-03-15T09:00:00Z",
		categories:      []string{"Event", "HR"},
	},
	{
		title:           "Customer Satisfaction Survey Results",
		body:            "We achieved a 92% customer satisfaction rate in Q1. Thank you to everyone who contributed to this success. We will continue improving based on the feedback received.",
		publicationDate: "2025-03-20T13:00:00Z",
		createdAt:       "2025-03-18T11:00:00Z",
		updatedAt:       "2025-03-21T08:00:00Z",
		categories:      []string{"Company News", "Marketing"},
	},
	{
		title:           "Security Update: Two-Factor Authentication",
		body:            "Two-factor authentication is now mandatory for all employee accounts. Please set it up by the end of this month using the instructions provided in the security portal.",
		publicationDate: "2025-03-25T10:00:00Z",
		createdAt:       "2025-03-22T14:00:00Z",
		updatedAt:       "2025-03-25T10:00:00Z",
		categories:      []string{"Engineering", "Company News"},
	},
}

// Run inserts the reference data if the database is still empty. It is
// safe to call on every startup.
func Run(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM categories"); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if count > 0 {
		logger.Info("seed skipped, categories already present", zap.Int("categories", count))
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	categoryIDs := make(map[string]int64, len(categoryNames))
	for _, name := range categoryNames {
		var id int64
		if err = tx.GetContext(ctx, &id, "INSERT INTO categories (name) VALUES ($1) RETURNING id", name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		categoryIDs[name] = id
	}

	for _, sample := range sampleAnnouncements {
		id := uuid.NewString()
		publicationDate := mustParse(sample.publicationDate)
		createdAt := mustParse(sample.createdAt)
		updatedAt := mustParse(sample.updatedAt)

		const insertAnnouncement = `INSERT INTO announcements (id, title, body, publication_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err = tx.ExecContext(ctx, insertAnnouncement, id, sample.title, sample.body, publicationDate, createdAt, updatedAt); err != nil {
			return fmt.Errorf("seed announcement %q: %w", sample.title, err)
		}
		for _, name := range sample.categories {
			const insertAssociation = `INSERT INTO announcement_categories (announcement_id, category_id) VALUES ($1, $2)`
			if _, err = tx.ExecContext(ctx, insertAssociation, id, categoryIDs[name]); err != nil {
				return fmt.Errorf("seed announcement categories for %q: %w", sample.title, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	logger.Info("database seeded",
		zap.Int("categories", len(categoryNames)),
		zap.Int("announcements", len(sampleAnnouncements)),
	)
	return nil
}

func mustParse(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(fmt.Sprintf("seed: bad timestamp %q: %v", value, err))
	}
	return t
}

package models

import "time"

// Announcement represents a persisted announcement together with its
// categories. JSON field names follow the public API contract.
type Announcement struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Body            string     `db:"body" json:"body"`
	PublicationDate time.Time  `db:"publication_date" json:"publicationDate"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
	Categories      []Category `db:"-" json:"categories"`
}

// AnnouncementFilter narrows announcement listings. Filters combine
// with logical AND; zero values mean "no filter".
type AnnouncementFilter struct {
	CategoryIDs []int64
	Search      string
}

package models

// Category is a named tag attached to announcements. Categories are
// seeded once and never mutated through the API.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

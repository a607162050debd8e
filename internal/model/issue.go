package model

import "time"

// IssueReport is a citizen-submitted civic complaint as stored in the posts table.
type IssueReport struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Severity    int       `json:"severity"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	ImageURL    *string   `json:"image_url"`
}

// Engagement is upvotes minus downvotes.
func (r IssueReport) Engagement() int {
	return r.Upvotes - r.Downvotes
}

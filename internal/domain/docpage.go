package domain

import "time"

// DocPage is a documentation (wiki) page
type DocPage struct {
	ID            string
	TenantID      string
	Title         string
	Category      string
	Tags          []string
	Published     bool
	Body          string
	BodyObjectKey string
	UpdatedAt     time.Time
}

// DocPageFilter narrows documentation queries
type DocPageFilter struct {
	TenantIDs     []string
	PublishedOnly bool
	Category      string
	Limit         int
}

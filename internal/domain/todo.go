package domain

import "time"

// Domain entity: business object, independent of Gin, Postgres, Redis and S3.
type Todo struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	IsFinished  bool
	// Cover is the opaque blob-store path of the attached image, nil when none.
	Cover *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodoStats aggregates the owner's full collection, independent of any
// active search or filter.
type TodoStats struct {
	Total      int64 `json:"total"`
	Finished   int64 `json:"finished"`
	Unfinished int64 `json:"unfinished"`
}

// TodoPage is one window of a filtered listing plus the filtered total.
type TodoPage struct {
	Items []Todo `json:"items"`
	Total int64  `json:"total"`
}

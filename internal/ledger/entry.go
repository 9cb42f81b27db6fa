package ledger

import (
	"time"
)

// Entry is one append-only ledger record. The payload (Prompt, Diff) is
// immutable once appended; only Status and ValidatedAt ever change.
type Entry struct {
	ID             string     `json:"id"`
	Branch         string     `json:"branch"`
	TimelineBranch int        `json:"timelineBranch"` // monotonically increasing per branch
	Status         Status     `json:"status"`
	UserID         string     `json:"userId,omitempty"`
	Prompt         string     `json:"prompt,omitempty"`
	Diff           string     `json:"diff,omitempty"`
	EntityRefs     []string   `json:"entityRefs,omitempty"` // identity keys the change touches
	ParentID       string     `json:"parentId,omitempty"`
	RewoundFrom    string     `json:"rewoundFrom,omitempty"` // entry this fork rewound from
	CreatedAt      time.Time  `json:"createdAt"`
	ValidatedAt    *time.Time `json:"validatedAt,omitempty"` // stamped on entering working
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Filter selects entries for chronological listing. Zero values mean
// "no constraint".
type Filter struct {
	Branch string
	Status Status
	UserID string
	// Cursor resumes a previous page; opaque to callers.
	Cursor string
	// Limit caps the page size. Zero means the default page size.
	Limit int
}

// Page is one page of chronological results.
type Page struct {
	Entries []Entry `json:"entries"`
	// NextCursor resumes after the last entry, empty on the final page.
	NextCursor string `json:"nextCursor,omitempty"`
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tellyousomeday/api/models"
)

// SearchQuery is the store-level search request. Query is expected to be
// lowercased already; SearchableText is stored lowercased, so a plain
// substring match is case-insensitive.
type SearchQuery struct {
	Query          string
	RecipientType  string
	IsPrivate      *bool
	DeliveryType   string
	IncludePending bool
	Now            time.Time

	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type Stats struct {
	TotalMessages      int64            `json:"totalMessages"`
	PrivateMessages    int64            `json:"privateMessages"`
	ScheduledMessages  int64            `json:"scheduledMessages"`
	DeliveredMessages  int64            `json:"deliveredMessages"`
	TotalViews         int64            `json:"totalViews"`
	RecipientTypeStats map[string]int64 `json:"recipientTypeStats"`
}

// MessageStore is the persistence contract the service depends on. The only
// invariant required of an implementation is id uniqueness; delivered-marking
// must be conditional so concurrent callers cannot both win.
type MessageStore interface {
	Insert(ctx context.Context, m *models.Message) error
	// FindByID returns (nil, nil) when the id does not resolve.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	Search(ctx context.Context, q SearchQuery) ([]models.Message, int64, error)
	FindDueScheduled(ctx context.Context, now time.Time) ([]models.Message, error)
	// MarkDelivered sets isDelivered only if it is still false and reports
	// whether this call performed the transition.
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	IncrementViews(ctx context.Context, id uuid.UUID, at time.Time) error
	Stats(ctx context.Context) (*Stats, error)
}

// Notifier is the external notification collaborator. Failures are always
// logged and swallowed by callers, never surfaced.
type Notifier interface {
	NotifyDelivered(ctx context.Context, m *models.Message) error
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tellyousomeday/api/apperrors"
	"github.com/tellyousomeday/api/models"
	"github.com/tellyousomeday/api/utils"
	"go.uber.org/zap"
)

const previewLength = 100

// MessageService implements the delivery/visibility state machine: creation,
// discovery, password-gated reads and delivered-state bookkeeping.
type MessageService struct {
	store    MessageStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewMessageService(store MessageStore, notifier Notifier, logger *zap.Logger) *MessageService {
	return &MessageService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreatedMessage is the public-safe projection returned from Create.
type CreatedMessage struct {
	ID            uuid.UUID  `json:"id"`
	SenderName    string     `json:"senderName"`
	RecipientType string     `json:"recipientType"`
	RecipientName string     `json:"recipientName,omitempty"`
	DeliveryType  string     `json:"deliveryType"`
	DeliveryDate  *time.Time `json:"deliveryDate,omitempty"`
	IsPrivate     bool       `json:"isPrivate"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (s *MessageService) Create(ctx context.Context, in CreateMessageInput) (*CreatedMessage, error) {
	normalizeCreate(&in)
	if details := validateCreate(&in); len(details) > 0 {
		return nil, apperrors.Validation(details)
	}

	m := &models.Message{
		SenderName:    in.SenderName,
		RecipientType: in.RecipientType,
		RecipientName: in.RecipientName,
		Body:          in.Body,
		DeliveryType:  in.DeliveryType,
		DeliveryDate:  in.DeliveryDate,
		IsPrivate:     in.IsPrivate,
		PasswordHint:  in.PasswordHint,
		// Lowercased sender name keeps search case-insensitive without
		// per-query normalization in the store.
		SearchableText: strings.ToLower(in.SenderName),
	}

	if in.IsPrivate {
		// Secrets are lowercased and trimmed before hashing; verification is
		// deliberately case- and whitespace-insensitive. Clients depend on it.
		hash, err := utils.HashSecret(normalizeSecret(in.Password))
		if err != nil {
			return nil, apperrors.Internal("Failed to save message", err)
		}
		m.PasswordHash = hash
	}

	if err := s.store.Insert(ctx, m); err != nil {
		return nil, apperrors.Internal("Failed to save message", err)
	}

	return &CreatedMessage{
		ID:            m.ID,
		SenderName:    m.SenderName,
		RecipientType: m.RecipientType,
		RecipientName: m.RecipientName,
		DeliveryType:  m.DeliveryType,
		DeliveryDate:  m.DeliveryDate,
		IsPrivate:     m.IsPrivate,
		CreatedAt:     m.CreatedAt,
	}, nil
}

// SearchInput carries the API-level search parameters before validation.
type SearchInput struct {
	SenderName    string
	RecipientType string
	IsPrivate     *bool
	DeliveryType  string
	Page          int
	Limit         int
	SortBy        string
	SortOrder     string
}

// MessagePreview is the redacted projection returned from Search. Private
// messages expose the hint but never any of the body.
type MessagePreview struct {
	ID            uuid.UUID  `json:"id"`
	SenderName    string     `json:"senderName"`
	RecipientType string     `json:"recipientType"`
	RecipientName string     `json:"recipientName,omitempty"`
	PreviewText   string     `json:"previewText"`
	DeliveryType  string     `json:"deliveryType"`
	DeliveryDate  *time.Time `json:"deliveryDate,omitempty"`
	IsPrivate     bool       `json:"isPrivate"`
	PasswordHint  string     `json:"passwordHint,omitempty"`
	Views         int64      `json:"views"`
	CreatedAt     time.Time  `json:"createdAt"`
	CanRead       bool       `json:"canRead"`
}

type SearchResult struct {
	Messages    []MessagePreview `json:"messages"`
	TotalCount  int64            `json:"totalCount"`
	Page        int              `json:"page"`
	Limit       int              `json:"limit"`
	HasNextPage bool             `json:"hasNextPage"`
	HasPrevPage bool             `json:"hasPrevPage"`
}

func (s *MessageService) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	query := strings.TrimSpace(in.SenderName)

	var details []string
	if len(query) < 2 {
		details = append(details, "Sender name must be at least 2 characters long")
	}
	if len(query) > 100 {
		details = append(details, "Sender name must be less than 100 characters")
	}
	switch in.RecipientType {
	case "", "all", models.RecipientPerson, models.RecipientFamily, models.RecipientWorld:
	default:
		details = append(details, "Invalid recipient type")
	}
	switch in.DeliveryType {
	case "", models.DeliveryImmediate, models.DeliveryScheduled:
	default:
		details = append(details, "Invalid delivery type")
	}
	if in.Limit < 0 || in.Limit > 100 {
		details = append(details, "Limit must be a number between 1 and 100")
	}
	if in.Page < 0 {
		details = append(details, "Page must be a positive integer")
	}
	if len(details) > 0 {
		return nil, apperrors.Validation(details)
	}

	if in.Limit == 0 {
		in.Limit = 20
	}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.RecipientType == "all" {
		in.RecipientType = ""
	}

	now := s.now()
	items, total, err := s.store.Search(ctx, SearchQuery{
		Query:         strings.ToLower(query),
		RecipientType: in.RecipientType,
		IsPrivate:     in.IsPrivate,
		DeliveryType:  in.DeliveryType,
		Now:           now,
		SortBy:        in.SortBy,
		SortOrder:     in.SortOrder,
		Page:          in.Page,
		Limit:         in.Limit,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to search messages", err)
	}

	previews := make([]MessagePreview, 0, len(items))
	for i := range items {
		previews = append(previews, newPreview(&items[i], now))
	}

	return &SearchResult{
		Messages:    previews,
		TotalCount:  total,
		Page:        in.Page,
		Limit:       in.Limit,
		HasNextPage: int64(in.Page*in.Limit) < total,
		HasPrevPage: in.Page > 1,
	}, nil
}

func newPreview(m *models.Message, now time.Time) MessagePreview {
	p := MessagePreview{
		ID:            m.ID,
		SenderName:    m.SenderName,
		RecipientType: m.RecipientType,
		RecipientName: m.RecipientName,
		DeliveryType:  m.DeliveryType,
		DeliveryDate:  m.DeliveryDate,
		IsPrivate:     m.IsPrivate,
		Views:         m.Views,
		CreatedAt:     m.CreatedAt,
		CanRead:       m.CanRead(now),
	}
	if m.IsPrivate {
		p.PasswordHint = m.PasswordHint
	} else {
		p.PreviewText = previewText(m.Body)
	}
	return p
}

func previewText(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "..."
}

// Read returns the full message once visibility holds and, for private
// messages, the presented secret verifies. Each successful read increments the
// view counter and records first delivery.
func (s *MessageService) Read(ctx context.Context, id uuid.UUID, secret string) (*models.Message, error) {
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to read message", err)
	}
	if m == nil {
		return nil, apperrors.NotFound("Message not found")
	}

	now := s.now()
	if !m.Eligible(now) {
		availableAt := now
		if m.DeliveryDate != nil {
			availableAt = *m.DeliveryDate
		}
		return nil, apperrors.NotAvailableYet(availableAt)
	}

	if m.IsPrivate {
		if secret == "" {
			return nil, apperrors.SecretRequired(m.PasswordHint)
		}
		if !utils.VerifySecret(normalizeSecret(secret), m.PasswordHash) {
			return nil, apperrors.InvalidSecret(m.PasswordHint)
		}
	}

	if err := s.store.IncrementViews(ctx, m.ID, now); err != nil {
		return nil, apperrors.Internal("Failed to read message", err)
	}
	m.Views++
	m.LastViewedAt = &now

	if !m.IsDelivered {
		won, err := s.store.MarkDelivered(ctx, m.ID, now)
		if err != nil {
			// Bookkeeping only; the read itself already succeeded.
			s.logger.Warn("failed to mark message delivered",
				zap.String("id", m.ID.String()), zap.Error(err))
		} else if won {
			m.IsDelivered = true
			m.DeliveredAt = &now
			if m.DeliveryType == models.DeliveryScheduled {
				s.notifyAsync(*m)
			}
		}
	}

	return m, nil
}

func (s *MessageService) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to get statistics", err)
	}
	return stats, nil
}

// DeliverDue promotes every due scheduled message to delivered and triggers a
// best-effort notification for each one the caller won. A failure on one
// message never aborts the rest of the batch.
func (s *MessageService) DeliverDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.FindDueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range due {
		m := &due[i]
		won, err := s.store.MarkDelivered(ctx, m.ID, now)
		if err != nil {
			s.logger.Error("failed to mark scheduled message delivered",
				zap.String("id", m.ID.String()), zap.Error(err))
			continue
		}
		if !won {
			continue
		}
		delivered++
		m.IsDelivered = true
		m.DeliveredAt = &now
		if err := s.notify(ctx, m); err != nil {
			s.logger.Warn("delivery notification failed",
				zap.String("id", m.ID.String()), zap.Error(err))
		}
	}
	return delivered, nil
}

func (s *MessageService) notify(ctx context.Context, m *models.Message) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.NotifyDelivered(ctx, m)
}

func (s *MessageService) notifyAsync(m models.Message) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifyDelivered(ctx, &m); err != nil {
			s.logger.Warn("delivery notification failed",
				zap.String("id", m.ID.String()), zap.Error(err))
		}
	}()
}

// normalizeSecret lowercases and trims the secret. Applied identically at
// creation and verification time.
func normalizeSecret(secret string) string {
	return strings.ToLower(strings.TrimSpace(secret))
}

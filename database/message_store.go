package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tellyousomeday/api/models"
	"github.com/tellyousomeday/api/services"
	"gorm.io/gorm"
)

// MessageStore is the Postgres-backed implementation of services.MessageStore.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Insert(ctx context.Context, m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *MessageStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"deliveryDate": "delivery_date",
	"views":        "views",
	"senderName":   "sender_name",
}

func (s *MessageStore) Search(ctx context.Context, q services.SearchQuery) ([]models.Message, int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("searchable_text LIKE ?", "%"+q.Query+"%")

	if !q.IncludePending {
		tx = tx.Where("delivery_type = ? OR delivery_date <= ?", models.DeliveryImmediate, q.Now)
	}
	if q.RecipientType != "" {
		tx = tx.Where("recipient_type = ?", q.RecipientType)
	}
	if q.IsPrivate != nil {
		tx = tx.Where("is_private = ?", *q.IsPrivate)
	}
	if q.DeliveryType != "" {
		tx = tx.Where("delivery_type = ?", q.DeliveryType)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}

	var messages []models.Message
	err := tx.Order(column + " " + order).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (s *MessageStore) FindDueScheduled(ctx context.Context, now time.Time) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("delivery_type = ? AND is_delivered = ? AND delivery_date <= ?",
			models.DeliveryScheduled, false, now).
		Find(&messages).Error
	return messages, err
}

// MarkDelivered is conditional so the read path and the sweep can race without
// double-notifying: only the caller whose update changed a row wins.
func (s *MessageStore) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND is_delivered = ?", id, false).
		Updates(map[string]interface{}{
			"is_delivered": true,
			"delivered_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *MessageStore) IncrementViews(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"views":          gorm.Expr("views + 1"),
			"last_viewed_at": at,
			"updated_at":     at,
		}).Error
}

func (s *MessageStore) Stats(ctx context.Context) (*services.Stats, error) {
	var row struct {
		Total     int64
		Private   int64
		Scheduled int64
		Delivered int64
		Views     int64
	}
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_private) AS private,
			COUNT(*) FILTER (WHERE delivery_type = 'scheduled') AS scheduled,
			COUNT(*) FILTER (WHERE is_delivered) AS delivered,
			COALESCE(SUM(views), 0) AS views`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	var byType []struct {
		RecipientType string
		Count         int64
	}
	err = s.db.WithContext(ctx).Model(&models.Message{}).
		Select("recipient_type, COUNT(*) AS count").
		Group("recipient_type").
		Scan(&byType).Error
	if err != nil {
		return nil, err
	}

	stats := &services.Stats{
		TotalMessages:      row.Total,
		PrivateMessages:    row.Private,
		ScheduledMessages:  row.Scheduled,
		DeliveredMessages:  row.Delivered,
		TotalViews:         row.Views,
		RecipientTypeStats: make(map[string]int64, len(byType)),
	}
	for _, r := range byType {
		stats.RecipientTypeStats[r.RecipientType] = r.Count
	}
	return stats, nil
}

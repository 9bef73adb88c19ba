package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecipientPerson = "person"
	RecipientFamily = "family"
	RecipientWorld  = "world"

	DeliveryImmediate = "immediate"
	DeliveryScheduled = "scheduled"
)

type Message struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SenderName    string    `gorm:"size:100;not null" json:"senderName"`
	RecipientType string    `gorm:"size:20;not null" json:"recipientType"`
	RecipientName string    `gorm:"size:100" json:"recipientName,omitempty"`
	Body          string    `gorm:"type:text;not null" json:"message"`

	DeliveryType string     `gorm:"size:20;not null;default:'immediate'" json:"deliveryType"`
	DeliveryDate *time.Time `gorm:"index:idx_messages_due,priority:1" json:"deliveryDate,omitempty"`

	IsPrivate    bool   `gorm:"not null;default:false" json:"isPrivate"`
	PasswordHint string `gorm:"size:200" json:"passwordHint,omitempty"`
	PasswordHash string `gorm:"size:100" json:"-"`

	IsDelivered  bool       `gorm:"not null;default:false;index:idx_messages_due,priority:2" json:"isDelivered"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	Views        int64      `gorm:"not null;default:0" json:"views"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`

	// Lowercase sender name, maintained on every write, used for search.
	SearchableText string `gorm:"size:100;index" json:"-"`

	CreatedAt time.Time `gorm:"index:,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Eligible reports whether the message may be discovered and read: immediate
// messages always, scheduled ones once their delivery date has passed.
func (m *Message) Eligible(now time.Time) bool {
	if m.DeliveryType != DeliveryScheduled {
		return true
	}
	return m.DeliveryDate != nil && !now.Before(*m.DeliveryDate)
}

// CanRead reports whether the full body is readable without presenting a secret.
func (m *Message) CanRead(now time.Time) bool {
	return m.Eligible(now) && !m.IsPrivate
}

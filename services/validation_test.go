package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tellyousomeday/api/models"
)

func validInput() CreateMessageInput {
	return CreateMessageInput{
		SenderName:    "Alice Smith",
		RecipientType: models.RecipientWorld,
		Body:          "Hello there, this is a test message.",
	}
}

func TestNormalizeCreate(t *testing.T) {
	t.Run("trims strings and defaults delivery type", func(t *testing.T) {
		in := CreateMessageInput{
			SenderName:    "  Alice Smith  ",
			RecipientType: models.RecipientWorld,
			Body:          "  Hello there, this is a test message.  ",
		}
		normalizeCreate(&in)
		assert.Equal(t, "Alice Smith", in.SenderName)
		assert.Equal(t, "Hello there, this is a test message.", in.Body)
		assert.Equal(t, models.DeliveryImmediate, in.DeliveryType)
	})

	t.Run("drops fields that do not apply", func(t *testing.T) {
		date := time.Now().Add(time.Hour)
		in := validInput()
		in.RecipientName = "Bob"
		in.DeliveryDate = &date
		in.PasswordHint = "pet name"
		in.Password = "rex"

		normalizeCreate(&in)

		assert.Empty(t, in.RecipientName, "recipientName only applies to person messages")
		assert.Nil(t, in.DeliveryDate, "deliveryDate only applies to scheduled messages")
		assert.Empty(t, in.PasswordHint)
		assert.Empty(t, in.Password)
	})
}

func TestValidateCreate(t *testing.T) {
	t.Run("accepts a valid input", func(t *testing.T) {
		in := validInput()
		normalizeCreate(&in)
		assert.Empty(t, validateCreate(&in))
	})

	t.Run("reports every violation at once", func(t *testing.T) {
		in := CreateMessageInput{
			SenderName:    "A",
			RecipientType: "everyone",
			Body:          "too short",
		}
		details := validateCreate(&in)
		require.Len(t, details, 3)
		assert.Contains(t, details, "Sender name must be at least 2 characters long")
		assert.Contains(t, details, "Invalid recipient type")
		assert.Contains(t, details, "Message must be at least 10 characters long")
	})

	t.Run("person requires recipient name", func(t *testing.T) {
		in := validInput()
		in.RecipientType = models.RecipientPerson
		normalizeCreate(&in)
		details := validateCreate(&in)
		require.Len(t, details, 1)
		assert.Contains(t, details[0], "Recipient name")
	})

	t.Run("scheduled requires delivery date", func(t *testing.T) {
		in := validInput()
		in.DeliveryType = models.DeliveryScheduled
		normalizeCreate(&in)
		details := validateCreate(&in)
		require.Len(t, details, 1)
		assert.Contains(t, details[0], "Delivery date")
	})

	t.Run("private requires hint and password", func(t *testing.T) {
		in := validInput()
		in.IsPrivate = true
		in.PasswordHint = "pet name"
		normalizeCreate(&in)
		details := validateCreate(&in)
		require.Len(t, details, 1)
		assert.Contains(t, details[0], "Password hint and password are required")
	})

	t.Run("rejects sender names with invalid characters", func(t *testing.T) {
		in := validInput()
		in.SenderName = "alice<script>"
		details := validateCreate(&in)
		require.Len(t, details, 1)
		assert.Contains(t, details[0], "invalid characters")
	})

	t.Run("rejects oversized fields", func(t *testing.T) {
		in := validInput()
		in.SenderName = strings.Repeat("a", 101)
		in.Body = strings.Repeat("b", 10001)
		details := validateCreate(&in)
		assert.Contains(t, details, "Sender name must be less than 100 characters")
		assert.Contains(t, details, "Message must be less than 10,000 characters")
	})
}

package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tellyousomeday/api/models"
)

// CreateMessageInput is the create request body. Tag checks cover the simple
// bounds; conditional requirements are evaluated explicitly in validateCreate
// against the whole struct so every violation is reported at once.
type CreateMessageInput struct {
	SenderName    string     `json:"senderName" validate:"required,min=2,max=100"`
	RecipientType string     `json:"recipientType" validate:"required,oneof=person family world"`
	RecipientName string     `json:"recipientName" validate:"max=100"`
	Body          string     `json:"message" validate:"required,min=10,max=10000"`
	DeliveryType  string     `json:"deliveryType" validate:"omitempty,oneof=immediate scheduled"`
	DeliveryDate  *time.Time `json:"deliveryDate"`
	IsPrivate     bool       `json:"isPrivate"`
	PasswordHint  string     `json:"passwordHint" validate:"max=200"`
	Password      string     `json:"password" validate:"max=100"`
}

var validate = validator.New()

// Sender names allow ASCII letters, digits, spaces, dots and hyphens.
var senderNamePattern = regexp.MustCompile(`^[a-zA-Z0-9 .\-]+$`)

// normalizeCreate trims every string field and drops conditional fields that
// do not apply, so the stored record always satisfies the schema invariants.
func normalizeCreate(in *CreateMessageInput) {
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.RecipientName = strings.TrimSpace(in.RecipientName)
	in.Body = strings.TrimSpace(in.Body)
	in.PasswordHint = strings.TrimSpace(in.PasswordHint)

	if in.DeliveryType == "" {
		in.DeliveryType = models.DeliveryImmediate
	}
	if in.RecipientType != models.RecipientPerson {
		in.RecipientName = ""
	}
	if in.DeliveryType != models.DeliveryScheduled {
		in.DeliveryDate = nil
	}
	if !in.IsPrivate {
		in.PasswordHint = ""
		in.Password = ""
	}
}

func validateCreate(in *CreateMessageInput) []string {
	var details []string

	if err := validate.Struct(in); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details = append(details, createFieldMessage(fe))
			}
		} else {
			details = append(details, err.Error())
		}
	}

	if in.SenderName != "" && !senderNamePattern.MatchString(in.SenderName) {
		details = append(details, "Sender name contains invalid characters")
	}
	if in.RecipientType == models.RecipientPerson && in.RecipientName == "" {
		details = append(details, "Recipient name is required for personal messages")
	}
	if in.DeliveryType == models.DeliveryScheduled && in.DeliveryDate == nil {
		details = append(details, "Delivery date is required for scheduled messages")
	}
	if in.IsPrivate && (in.PasswordHint == "" || in.Password == "") {
		details = append(details, "Password hint and password are required for private messages")
	}

	return details
}

func createFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "SenderName":
		switch fe.Tag() {
		case "required":
			return "Sender name is required"
		case "min":
			return "Sender name must be at least 2 characters long"
		case "max":
			return "Sender name must be less than 100 characters"
		}
	case "RecipientType":
		if fe.Tag() == "required" {
			return "Recipient type is required"
		}
		return "Invalid recipient type"
	case "RecipientName":
		return "Recipient name must be less than 100 characters"
	case "Body":
		switch fe.Tag() {
		case "required":
			return "Message content is required"
		case "min":
			return "Message must be at least 10 characters long"
		case "max":
			return "Message must be less than 10,000 characters"
		}
	case "DeliveryType":
		return "Invalid delivery type"
	case "PasswordHint":
		return "Password hint must be less than 200 characters"
	case "Password":
		return "Password is too long"
	}
	return fe.Field() + " is invalid"
}

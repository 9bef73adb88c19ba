package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tellyousomeday/api/models"
	"go.uber.org/zap"
)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

// EmailService sends delivery notices through the Brevo transactional API.
// It satisfies services.Notifier; callers treat every failure as best-effort.
type EmailService struct {
	apiKey      string
	senderEmail string
	senderName  string
	notifyEmail string
	frontendURL string
	client      *http.Client
	logger      *zap.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewEmailService returns nil when the required settings are missing; the
// service and the sweep both treat a nil notifier as "notifications disabled".
func NewEmailService(apiKey, senderEmail, senderName, notifyEmail, frontendURL string, logger *zap.Logger) *EmailService {
	if apiKey == "" || senderEmail == "" || notifyEmail == "" {
		logger.Info("email service not configured, delivery notifications disabled")
		return nil
	}
	return &EmailService{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		notifyEmail: notifyEmail,
		frontendURL: frontendURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// NotifyDelivered emails a delivery notice for a message that just became
// readable.
func (s *EmailService) NotifyDelivered(ctx context.Context, m *models.Message) error {
	subject := fmt.Sprintf("New message from %s", m.SenderName)
	if err := s.send(ctx, s.notifyEmail, subject, deliveryNoticeHTML(m, s.frontendURL)); err != nil {
		return err
	}
	s.logger.Info("delivery notification sent", zap.String("id", m.ID.String()))
	return nil
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	if !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.senderName, "email": s.senderEmail},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func deliveryNoticeHTML(m *models.Message, frontendURL string) string {
	recipient := m.RecipientName
	if recipient == "" {
		recipient = "You"
	}
	preview := m.Body
	if len([]rune(preview)) > 100 {
		preview = string([]rune(preview)[:100]) + "..."
	}

	var footer string
	if m.DeliveryDate != nil {
		footer = fmt.Sprintf(
			`<p style="margin-top: 30px; color: #666; font-size: 14px;">This message was scheduled to be delivered on %s.</p>`,
			m.DeliveryDate.Format("Mon Jan 2 2006"))
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		  <h2 style="color: #e74c3c;">You have a new message on TellYouSomeday</h2>
		  <p>Someone left a message for you that's now ready to be read.</p>
		  <div style="background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
		    <p><strong>From:</strong> %s</p>
		    <p><strong>To:</strong> %s</p>
		    <p><strong>Preview:</strong> %s</p>
		  </div>
		  <a href="%s/search"
		     style="background: #e74c3c; color: white; padding: 12px 24px;
		            text-decoration: none; border-radius: 6px; display: inline-block;">
		    Read Your Message
		  </a>
		  %s
		</div>`,
		m.SenderName, recipient, preview, frontendURL, footer)
}

package mail

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/models/pricing_models"
	"github.com/shopspring/decimal"
	gomail "gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const payoutPaidTemplate = "payout_paid.html"

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPConfigFromEnv reads SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD and FROM_EMAIL.
func SMTPConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Host:     config.GetString("SMTP_HOST", ""),
		Port:     config.GetInt("SMTP_PORT", 587),
		Username: config.GetString("SMTP_USERNAME", ""),
		Password: config.GetString("SMTP_PASSWORD", ""),
		From:     config.GetString("FROM_EMAIL", "payouts@localhost"),
	}
}

// PayoutPaid is the data rendered into the "payout paid" email.
type PayoutPaid struct {
	SellerName    string
	PayoutID      string
	Amount        decimal.Decimal
	TransactionID string
	PaidAt        time.Time
}

func (p PayoutPaid) FormattedAmount() string { return pricing_models.FormatINR(p.Amount) }

type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg SMTPConfig) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         cfg.Host,
	}
	return &Mailer{cfg: cfg, dialer: dialer}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m != nil && m.cfg.Host != "" }

func (m *Mailer) newMessage(toEmail, subject, name string, data any) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		logger.ErrorLogger.Errorf("Failed to execute email template %s: %v", name, err)
		return nil, fmt.Errorf("failed to execute email template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())
	return msg, nil
}

// SendPayoutPaid tells a seller their payout has been settled.
func (m *Mailer) SendPayoutPaid(toEmail string, data PayoutPaid) error {
	if !m.Enabled() {
		logger.WarnLogger.Warnf("SMTP not configured, skipping payout mail to %s", toEmail)
		return nil
	}

	msg, err := m.newMessage(toEmail, "Your payout has been sent", payoutPaidTemplate, data)
	if err != nil {
		return err
	}

	logger.InfoLogger.Infof("Sending payout paid mail for %s to %s", data.PayoutID, toEmail)
	if err := m.dialer.DialAndSend(msg); err != nil {
		logger.ErrorLogger.Errorf("Failed to send email to %s: %v", toEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

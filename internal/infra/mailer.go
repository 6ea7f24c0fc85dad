package infra

import (
	"bytes"
	"fmt"
	"net/smtp"
	"net/textproto"

	"github.com/tea-tech/simple-inventory/internal/config"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
)

// Mailer sends transactional mail (CSV export deliveries).
type Mailer struct {
	cfg *config.Config
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Configured reports whether SMTP credentials are present. An unconfigured
// mailer makes email-export jobs fail fast instead of timing out.
func (m *Mailer) Configured() bool {
	return m.cfg.SMTPHost != "" && m.cfg.SMTPUser != ""
}

// SendCSVExport mails a CSV attachment to the given address.
func (m *Mailer) SendCSVExport(to, filename string, csvData []byte) error {
	if !m.Configured() {
		return fmt.Errorf("smtp is not configured")
	}

	e := &email.Email{
		From:    m.cfg.SMTPUser,
		To:      []string{to},
		Subject: "Inventory export: " + filename,
		Text:    []byte("Your requested inventory export is attached."),
		Headers: textproto.MIMEHeader{},
	}
	if _, err := e.Attach(bytes.NewReader(csvData), filename, "text/csv"); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		return err
	}

	log.Info().Str("to", to).Str("file", filename).Msg("export mailed")
	return nil
}

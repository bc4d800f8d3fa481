package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"hermes/internal/adapters/config"
	"hermes/internal/market"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Service sends portfolio update and alert emails. Without an SMTP host it
// runs in mock mode: messages are logged instead of delivered, which keeps
// local development working without a mail server.
type Service struct {
	cfg  config.EmailConfig
	log  *logger.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates the email service.
func NewService(cfg config.EmailConfig, log *logger.Logger) *Service {
	return &Service{
		cfg:  cfg,
		log:  log.With("service", "email"),
		send: smtp.SendMail,
	}
}

var updateTemplate = template.Must(template.New("portfolio_update").Parse(`<html>
<body style="font-family: sans-serif; color: #222;">
<h2>PSX Portfolio Update</h2>
<p>{{.Text}}</p>
{{if .Stocks}}
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Symbol</th><th>Price (PKR)</th><th>Change %</th><th>Signal</th><th>Reason</th></tr>
{{range .Stocks}}
<tr>
<td>{{.Symbol}}</td>
<td>{{printf "%.2f" .Price}}</td>
<td>{{printf "%.2f" .ChangePercent}}</td>
<td><b>{{.Recommendation.Label}}</b></td>
<td>{{.Recommendation.Reason}}</td>
</tr>
{{end}}
</table>
{{end}}
{{if .Alerts}}
<h3>Alerts Triggered</h3>
<ul>
{{range .Alerts}}
<li><b>{{.Symbol}}</b>: {{.AlertType}}</li>
{{end}}
</ul>
{{end}}
<p style="color: #888; font-size: 12px;">Generated {{.GeneratedAt}}. Not financial advice.</p>
</body>
</html>`))

type updateData struct {
	Text        string
	Stocks      []market.StockRecord
	Alerts      []market.Alert
	GeneratedAt string
}

// SendPortfolioUpdate renders and sends a portfolio summary with the
// assistant's narrative, the per-stock signals and any alerts that
// triggered the update.
func (s *Service) SendPortfolioUpdate(ctx context.Context, to, text string, stocks []market.StockRecord, alerts []market.Alert) error {
	var body bytes.Buffer
	err := updateTemplate.Execute(&body, updateData{
		Text:        text,
		Stocks:      stocks,
		Alerts:      alerts,
		GeneratedAt: time.Now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("portfolio_update", "error").Inc()
		return errors.Wrap(err, "render portfolio update")
	}

	if err := s.deliver(ctx, to, "Your PSX Portfolio Update", body.String()); err != nil {
		metrics.EmailsSent.WithLabelValues("portfolio_update", "error").Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues("portfolio_update", "success").Inc()
	return nil
}

var alertTemplate = template.Must(template.New("alert").Parse(`<html>
<body style="font-family: sans-serif; color: #222;">
<h2>{{.Subject}}</h2>
<p>{{.Body}}</p>
<p style="color: #888; font-size: 12px;">Generated {{.GeneratedAt}}. Not financial advice.</p>
</body>
</html>`))

// SendAlert sends a one-off alert email.
func (s *Service) SendAlert(ctx context.Context, to, subject, message string) error {
	var body bytes.Buffer
	err := alertTemplate.Execute(&body, map[string]string{
		"Subject":     subject,
		"Body":        message,
		"GeneratedAt": time.Now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("alert", "error").Inc()
		return errors.Wrap(err, "render alert")
	}

	if err := s.deliver(ctx, to, subject, body.String()); err != nil {
		metrics.EmailsSent.WithLabelValues("alert", "error").Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues("alert", "success").Inc()
	return nil
}

func (s *Service) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "email delivery canceled")
	}
	if strings.TrimSpace(to) == "" {
		return errors.Wrap(errors.ErrInvalidInput, "recipient is required")
	}

	if s.cfg.MockMode() {
		s.log.Infow("mock email (no SMTP host configured)",
			"to", to, "subject", subject, "bytes", len(htmlBody))
		return nil
	}

	msg := buildMIME(s.cfg.From, to, subject, htmlBody)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}

	if err := s.send(s.cfg.Addr(), auth, s.cfg.From, []string{to}, msg); err != nil {
		return errors.Wrapf(errors.ErrExternal, "smtp send to %s: %v", to, err)
	}

	s.log.Infow("email sent", "to", to, "subject", subject)
	return nil
}

func buildMIME(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

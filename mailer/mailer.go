// Package mailer sends booking emails rendered from HTML templates.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wanderlust/config"
	"wanderlust/models"
	"wanderlust/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplConfirmed = "booking_confirmed"
	tmplCancelled = "booking_cancelled"
)

var subjects = map[string]string{
	tmplConfirmed: "Your booking %s is confirmed",
	tmplCancelled: "Your booking %s has been cancelled",
}

// PackageLookup fills in the package title for the email body.
type PackageLookup interface {
	Summaries(ctx context.Context, ids []string) (map[string]models.PackageSummary, error)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg      config.MailConfig
	currency string
	packages PackageLookup
	tmpl     map[string]*template.Template
	send     sendFunc
}

func New(cfg config.MailConfig, currency string, packages PackageLookup) (*Mailer, error) {
	m := &Mailer{
		cfg:      cfg,
		currency: currency,
		packages: packages,
		tmpl:     map[string]*template.Template{},
		send:     smtp.SendMail,
	}
	for name := range subjects {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		m.tmpl[name] = t
	}
	return m, nil
}

type view struct {
	Name         string
	Ref          string
	PackageTitle string
	StartDate    string
	People       int
	Total        string
	Refunded     bool
}

// HandleBookingEvent mails the customer when a booking is confirmed or
// cancelled. Other events are ignored.
func (m *Mailer) HandleBookingEvent(ctx context.Context, ev models.BookingEvent) {
	var name string
	switch ev.Type {
	case models.EventBookingConfirmed, models.EventPaymentCompleted:
		name = tmplConfirmed
	case models.EventBookingCancelled:
		name = tmplCancelled
	default:
		return
	}
	if err := m.Send(ctx, name, &ev.Booking); err != nil {
		log.Error().Err(err).Str("booking", ev.Booking.ID).Str("template", name).Msg("[Mailer] send failed")
	}
}

// Send renders template name for b and delivers it to the booking contact.
func (m *Mailer) Send(ctx context.Context, name string, b *models.Booking) error {
	t, ok := m.tmpl[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	to := strings.TrimSpace(b.ContactInfo.Email)
	if to == "" {
		return fmt.Errorf("booking %s has no contact email", b.ID)
	}

	v := view{
		Name:      b.ContactInfo.Name,
		Ref:       utils.ShortRef(b.ID),
		StartDate: b.StartDate.UTC().Format("Mon, 02 Jan 2006"),
		People:    b.NumberOfPeople,
		Total:     fmt.Sprintf("%s %.2f", m.currency, b.TotalAmount),
		Refunded:  b.PaymentStatus == models.PaymentRefunded,
	}
	if b.Package != nil {
		v.PackageTitle = b.Package.Title
	} else if m.packages != nil {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		sums, err := m.packages.Summaries(ctx, []string{b.PackageID})
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("booking", b.ID).Msg("[Mailer] package lookup failed")
		}
		v.PackageTitle = sums[b.PackageID].Title
	}

	var body bytes.Buffer
	if err := t.ExecuteTemplate(&body, "layout", v); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	subject := fmt.Sprintf(subjects[name], v.Ref)

	if !m.cfg.Enabled() {
		log.Info().Str("to", to).Str("subject", subject).Msg("[Mailer] smtp disabled, not sent")
		return nil
	}

	msg := message(m.cfg.From, to, subject, body.Bytes())
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("[Mailer] sent")
	return nil
}

func message(from, to, subject string, html []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.Write(html)
	return b.Bytes()
}

package mailer

import (
	"context"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/config"
	"wanderlust/models"
)

type sent struct {
	addr string
	from string
	to   []string
	msg  string
}

type lookup map[string]models.PackageSummary

func (l lookup) Summaries(_ context.Context, ids []string) (map[string]models.PackageSummary, error) {
	out := map[string]models.PackageSummary{}
	for _, id := range ids {
		if s, ok := l[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func newTestMailer(t *testing.T, cfg config.MailConfig) (*Mailer, *[]sent) {
	t.Helper()
	m, err := New(cfg, "INR", lookup{"p1": {ID: "p1", Title: "Kerala Backwaters <3 nights>"}})
	require.NoError(t, err)
	var out []sent
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		out = append(out, sent{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m, &out
}

func booking() models.Booking {
	return models.Booking{
		ID:             "3f2a9c1e-0000-4000-8000-000000000000",
		PackageID:      "p1",
		StartDate:      time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		NumberOfPeople: 2,
		TotalAmount:    45000,
		Status:         models.BookingConfirmed,
		PaymentStatus:  models.PaymentCompleted,
		ContactInfo:    models.ContactInfo{Name: "Priya", Email: "priya@example.com", Phone: "+91 98765 43210"},
	}
}

func TestConfirmedEmail(t *testing.T) {
	m, out := newTestMailer(t, config.MailConfig{Host: "smtp.example.com", Port: 587, From: "bookings@example.com"})

	m.HandleBookingEvent(context.Background(), models.BookingEvent{Type: models.EventPaymentCompleted, Booking: booking()})
	require.Len(t, *out, 1)
	s := (*out)[0]
	assert.Equal(t, "smtp.example.com:587", s.addr)
	assert.Equal(t, []string{"priya@example.com"}, s.to)
	assert.Contains(t, s.msg, "Subject: Your booking 3F2A9C1E is confirmed\r\n")
	assert.Contains(t, s.msg, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, s.msg, "Hi Priya,")
	assert.Contains(t, s.msg, "INR 45000.00")
	assert.Contains(t, s.msg, "Mon, 02 Nov 2026")
	assert.Contains(t, s.msg, "Kerala Backwaters &lt;3 nights&gt;", "template output is escaped")
}

func TestCancelledEmailMentionsRefund(t *testing.T) {
	m, out := newTestMailer(t, config.MailConfig{Host: "smtp.example.com", Port: 25})

	b := booking()
	b.Status = models.BookingCancelled
	b.PaymentStatus = models.PaymentRefunded
	m.HandleBookingEvent(context.Background(), models.BookingEvent{Type: models.EventBookingCancelled, Booking: b})
	require.Len(t, *out, 1)
	assert.Contains(t, (*out)[0].msg, "has been cancelled")
	assert.Contains(t, (*out)[0].msg, "refunded")

	b.PaymentStatus = models.PaymentPending
	m.HandleBookingEvent(context.Background(), models.BookingEvent{Type: models.EventBookingCancelled, Booking: b})
	require.Len(t, *out, 2)
	assert.NotContains(t, (*out)[1].msg, "refunded")
}

func TestIgnoredEventsAndDisabledSMTP(t *testing.T) {
	m, out := newTestMailer(t, config.MailConfig{Host: "smtp.example.com", Port: 25})
	m.HandleBookingEvent(context.Background(), models.BookingEvent{Type: models.EventBookingCreated, Booking: booking()})
	m.HandleBookingEvent(context.Background(), models.BookingEvent{Type: models.EventPaymentFailed, Booking: booking()})
	assert.Empty(t, *out)

	disabled, out := newTestMailer(t, config.MailConfig{})
	require.NoError(t, disabled.Send(context.Background(), tmplConfirmed, &models.Booking{
		ID: "b1", ContactInfo: models.ContactInfo{Email: "a@example.com"},
	}))
	assert.Empty(t, *out)
}

func TestSendErrors(t *testing.T) {
	m, _ := newTestMailer(t, config.MailConfig{Host: "smtp.example.com"})
	assert.Error(t, m.Send(context.Background(), "welcome", &models.Booking{ID: "b1"}))

	b := booking()
	b.ContactInfo.Email = ""
	assert.Error(t, m.Send(context.Background(), tmplConfirmed, &b))
}

package bookings

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"wanderlust/models"
	"wanderlust/utils"
)

// VoucherPayload is the QR content: bookingId|userId|signature.
func VoucherPayload(b *models.Booking, secret []byte) string {
	data := b.ID + "|" + b.UserID
	return data + "|" + voucherSig(data, secret)
}

// VerifyVoucherPayload checks the signature and returns the booking id.
func VerifyVoucherPayload(payload string, secret []byte) (string, bool) {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 || parts[0] == "" {
		return "", false
	}
	want := voucherSig(parts[0]+"|"+parts[1], secret)
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", false
	}
	return parts[0], true
}

func voucherSig(data string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Voucherable reports whether a voucher may be issued for b.
func Voucherable(b *models.Booking) bool {
	return b.Status == models.BookingConfirmed || b.Status == models.BookingCompleted
}

// RenderVoucher draws a one-page A4 voucher with the booking details and a
// signed QR code.
func RenderVoucher(b *models.Booking, secret []byte) ([]byte, error) {
	qrPNG, err := qrcode.Encode(VoucherPayload(b, secret), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking voucher "+utils.ShortRef(b.ID), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Travel Voucher")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	title, location, duration := "", "", 0
	if b.Package != nil {
		title, location, duration = b.Package.Title, b.Package.Location, b.Package.Duration
	}
	rows := [][2]string{
		{"Reference", utils.ShortRef(b.ID)},
		{"Package", title},
		{"Destination", location},
		{"Start date", b.StartDate.Format("02 Jan 2006")},
		{"Duration", fmt.Sprintf("%d days", duration)},
		{"Travellers", fmt.Sprintf("%d", b.NumberOfPeople)},
		{"Lead traveller", b.ContactInfo.Name},
		{"Email", b.ContactInfo.Email},
		{"Phone", b.ContactInfo.Phone},
		{"Amount paid", fmt.Sprintf("%.2f", b.TotalAmount)},
		{"Status", string(b.Status)},
	}
	// gofpdf core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(45, 8, row[0])
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 8, tr(row[1]))
		pdf.Ln(8)
	}
	if b.SpecialRequests != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(120, 5, tr("Requests: "+b.SpecialRequests), "", "L", false)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 30, 45, 45, false, imageOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, "Present this voucher at check-in. The QR code is verified against our records.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render voucher: %w", err)
	}
	return buf.Bytes(), nil
}

package pay

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"wanderlust/utils"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

type orderBody struct {
	BookingID string `json:"bookingId" validate:"required"`
}

type orderResponse struct {
	OrderID   string  `json:"orderId"`
	BookingID string  `json:"bookingId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	KeyID     string  `json:"keyId"`
}

// POST /api/payments/order
func (p *PaymentService) OrderHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body orderBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	rec, err := p.CreateOrder(ctx, utils.CurrentUser(r), body.BookingID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, orderResponse{
		OrderID:   rec.OrderID,
		BookingID: rec.BookingID,
		Amount:    rec.Amount,
		Currency:  rec.Currency,
		KeyID:     p.cfg.KeyID,
	})
}

// POST /api/payments/verify
func (p *PaymentService) VerifyHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in VerifyInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	b, err := p.Verify(ctx, utils.CurrentUser(r), in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// POST /api/payments/webhook
func (p *PaymentService) WebhookHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := p.HandleWebhook(ctx, body, r.Header.Get(webhookSignatureHeader)); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
}

package pay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func sign(secret string, msg []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(msg)
	return hex.EncodeToString(h.Sum(nil))
}

// PaymentSignature is what the checkout returns for a completed payment:
// hex HMAC-SHA256 of "orderId|paymentId" keyed with the API secret.
func PaymentSignature(secret, orderID, paymentID string) string {
	return sign(secret, []byte(orderID+"|"+paymentID))
}

func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	want := PaymentSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}

// VerifyWebhookSignature checks the hex HMAC of the raw webhook body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(sign(secret, body)), []byte(signature))
}

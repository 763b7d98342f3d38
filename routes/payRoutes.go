package routes

import (
	"github.com/julienschmidt/httprouter"

	"wanderlust/middleware"
	"wanderlust/pay"
)

// AddPayRoutes mounts the gateway order, client verification and webhook
// endpoints. The webhook authenticates by signature, not by token.
func AddPayRoutes(router *httprouter.Router, d Deps) {
	idempotent := func(next httprouter.Handle) httprouter.Handle {
		return pay.Idempotent(d.Idempotency, next)
	}

	router.POST("/api/payments/order",
		middleware.Chain(
			d.Limiter.Limit,
			middleware.RequireUser,
			idempotent,
		)(d.Payments.OrderHandler),
	)

	router.POST("/api/payments/verify",
		middleware.Chain(
			d.Limiter.Limit,
			middleware.RequireUser,
		)(d.Payments.VerifyHandler),
	)

	router.POST("/api/payments/webhook", d.Payments.WebhookHandler)
}

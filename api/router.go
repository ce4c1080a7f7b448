// Package api exposes the settlement engine over HTTP. Caller identity
// arrives in the X-Paychain-Caller header, set by the authenticating
// proxy in front of the daemon; the engine re-checks authorization per
// operation.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pay-chain/paychain/logger"
)

// Routes builds the daemon's HTTP router.
func Routes(h *Handlers, log logger.Logger, enableMetrics bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(RequestID)
	r.Use(AccessLog(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if enableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/initialize", h.Initialize)
		r.Get("/config", h.GetConfig)
		r.Get("/vault", h.GetVault)
		r.Get("/quote", h.GetQuote)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.CreatePayment)
			r.Get("/{paymentID}", h.GetPayment)
			r.Post("/{paymentID}/refund", h.ProcessRefund)
		})

		r.Post("/relay/confirmations", h.ReceiveConfirmation)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreatePaymentRequest)
			r.Get("/{requestID}", h.GetPaymentRequest)
			r.Post("/{requestID}/pay", h.PayRequest)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/authority", h.UpdateAuthority)
			r.Post("/fee-recipient", h.SetFeeRecipient)
		})
	})

	return r
}

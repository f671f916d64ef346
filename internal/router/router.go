package router

import (
	"net/http"

	"checkout-engine/internal/handler"
	"checkout-engine/internal/middleware"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PublicPaths are reachable without an API key: storefront pages holding an
// order key and gateway callbacks that authenticate by signature.
var PublicPaths = []string{
	"/health",
	"/payments/webhook",
	"/orders/check-status",
	"/orders/events",
	"/checkout/order-received",
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	checkoutHandler *handler.CheckoutHandler,
	paymentHandler *handler.PaymentHandler,
	orderHandler *handler.OrderHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Cart and checkout
	mux.HandleFunc("POST /cart/apply-coupon", checkoutHandler.ApplyCoupon)
	mux.HandleFunc("GET /tax-rate/get-by-country", checkoutHandler.TaxRates)
	mux.HandleFunc("POST /checkout/quote", checkoutHandler.Quote)
	mux.HandleFunc("POST /checkout/orders", checkoutHandler.PlaceOrder)

	// Payment
	mux.HandleFunc("POST /payment-method/confirm", paymentHandler.Confirm)
	mux.HandleFunc("POST /payments/webhook/stripe", paymentHandler.StripeWebhook)

	// Order key lookups
	mux.HandleFunc("GET /orders/check-status", orderHandler.CheckStatus)
	mux.HandleFunc("GET /orders/events", orderHandler.Events)
	mux.HandleFunc("GET /checkout/order-received/{orderKey}", orderHandler.OrderReceived)

	// Apply middleware in order: Recovery -> Logging -> CorrelationID -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, PublicPaths, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.CorrelationID(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return otelhttp.NewHandler(handler, "checkout-engine",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

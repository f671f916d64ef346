// Command orderwatch polls an order's payment status until it is paid or the
// order key stops resolving.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-engine/internal/config"
	"checkout-engine/internal/model"
	"checkout-engine/internal/payment"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "checkout engine base URL")
	orderKey := flag.String("key", "", "order key to watch")
	interval := flag.Duration("interval", 0, "poll interval (0 follows the server's pollAfterMs hint)")
	timeout := flag.Duration("timeout", 10*time.Minute, "give up after this long")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if *orderKey == "" {
		fmt.Fprintln(os.Stderr, "Error: -key is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := config.NewLogger(config.LoggerConfig{Level: *logLevel, Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := newStatusClient(*baseURL, &http.Client{Timeout: 10 * time.Second})
	poller := payment.NewStatusPoller(*interval,
		func(ctx context.Context) (model.OrderStatus, error) {
			return client.CheckStatus(ctx, *orderKey)
		},
		func(st model.OrderStatus) {
			logger.Info().
				Bool("is_paid", st.IsPaid).
				Str("status", string(st.Status)).
				Msg("payment status")
		},
		logger,
	)

	st, err := poller.Run(ctx)
	switch {
	case err == nil:
		logger.Info().
			Str("amount", st.PaymentAmount.StringFixed(2)).
			Str("currency", st.Currency).
			Msg("order paid")
	case errors.Is(err, model.ErrInvalidOrderKey):
		logger.Error().Msg("order key expired or invalid")
		os.Exit(1)
	default:
		logger.Error().Err(err).Msg("stopped watching before payment completed")
		os.Exit(1)
	}
}

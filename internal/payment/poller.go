package payment

import (
	"context"
	"errors"
	"time"

	"checkout-engine/internal/model"

	"github.com/rs/zerolog"
)

// DefaultPollInterval matches the storefront's order-received refresh cadence.
const DefaultPollInterval = 3 * time.Second

// StatusFunc reports the current payment state of one order.
type StatusFunc func(ctx context.Context) (model.OrderStatus, error)

// StatusPoller checks an order's payment state on a fixed interval until it is paid.
type StatusPoller struct {
	interval   time.Duration
	followHint bool
	check      StatusFunc
	onUpdate func(model.OrderStatus)
	logger   zerolog.Logger
}

// NewStatusPoller creates a poller. A non-positive interval starts at
// DefaultPollInterval and then follows the server's PollAfterMs hint.
func NewStatusPoller(interval time.Duration, check StatusFunc, onUpdate func(model.OrderStatus), logger zerolog.Logger) *StatusPoller {
	followHint := interval <= 0
	if followHint {
		interval = DefaultPollInterval
	}
	return &StatusPoller{
		interval:   interval,
		followHint: followHint,
		check:      check,
		onUpdate:   onUpdate,
		logger:     logger.With().Str("component", "status-poller").Logger(),
	}
}

// Run polls immediately and then every interval. It returns the paid status,
// ctx.Err() when cancelled, or ErrInvalidOrderKey once the key stops resolving.
// Other errors are logged and polling continues.
func (p *StatusPoller) Run(ctx context.Context) (model.OrderStatus, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		st, err := p.check(ctx)
		switch {
		case err == nil:
			if p.onUpdate != nil {
				p.onUpdate(st)
			}
			if st.IsPaid {
				return st, nil
			}
			if hint := time.Duration(st.PollAfterMs) * time.Millisecond; p.followHint && hint > 0 && hint != p.interval {
				p.logger.Debug().Dur("interval", hint).Msg("following server poll interval")
				p.interval = hint
				ticker.Reset(hint)
			}
		case errors.Is(err, model.ErrInvalidOrderKey):
			return model.OrderStatus{}, err
		case ctx.Err() != nil:
			return model.OrderStatus{}, ctx.Err()
		default:
			p.logger.Warn().Err(err).Msg("status check failed, will retry")
		}

		select {
		case <-ctx.Done():
			return model.OrderStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

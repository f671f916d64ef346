// Package payment hands orders to payment gateways and reconciles their asynchronous outcome.
package payment

import (
	"context"
	"sort"
	"strings"

	"checkout-engine/internal/model"

	"github.com/shopspring/decimal"
)

// ConfirmRequest carries what an adapter needs to start collecting payment.
type ConfirmRequest struct {
	Amount        decimal.Decimal
	Currency      string
	PublicOrderID string
	RedirectURL   string
	Locale        string
	Order         *model.Order
}

// ConfirmResult is the adapter's answer. Success false with an Error message is
// a gateway-level refusal rather than a transport failure.
type ConfirmResult struct {
	Success      bool
	RedirectTo   string
	ClientSecret string
	Reference    string
	Error        string
}

// Adapter is a payment gateway integration.
type Adapter interface {
	Name() string
	Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error)
}

// TransactionStore persists gateway transactions keyed by gateway and reference.
type TransactionStore interface {
	Upsert(ctx context.Context, txn *model.PaymentTransaction) (*model.PaymentTransaction, error)
}

// Registry resolves adapters by name.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry registers adapters. Later adapters replace earlier ones with the same name.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[strings.ToLower(a.Name())] = a
		}
	}
	return r
}

// Get looks up an adapter, ignoring case.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names lists registered adapters in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

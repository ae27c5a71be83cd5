package payments

import (
	"sort"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Registry holds the configured providers by name.
type Registry struct {
	providers map[enums.PaymentProvider]Provider
}

// NewRegistry indexes providers by their name. Nil providers are skipped.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[enums.PaymentProvider]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Name()] = p
	}
	return r
}

// Get resolves a provider from its raw name.
func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider not enabled")
	}
	parsed, err := enums.ParsePaymentProvider(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider").
			WithDetails(map[string]any{"allowed": r.Names()})
	}
	p, ok := r.providers[parsed]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider not enabled").
			WithDetails(map[string]any{"allowed": r.Names()})
	}
	return p, nil
}

// Names lists the enabled providers in stable order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name.String())
	}
	sort.Strings(out)
	return out
}

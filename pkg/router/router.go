// Package router maps the model names the assistant asks for onto ordered
// chains of upstream provider targets.
package router

import (
	"errors"
	"fmt"

	"github.com/pario-ai/semcache/pkg/config"
)

// ErrNoProviders is returned when no upstream provider is configured.
var ErrNoProviders = errors.New("no providers configured")

// Route is one provider and model to try.
type Route struct {
	Provider config.ProviderConfig
	Model    string
}

// Router resolves model aliases to fallback chains.
type Router struct {
	providers []config.ProviderConfig
	byName    map[string]config.ProviderConfig
	routes    map[string][]config.RouteTarget
}

// New indexes the providers and routes in cfg.
func New(cfg *config.Config) *Router {
	r := &Router{
		providers: cfg.Providers,
		byName:    make(map[string]config.ProviderConfig, len(cfg.Providers)),
		routes:    make(map[string][]config.RouteTarget, len(cfg.Router.Routes)),
	}
	for _, p := range cfg.Providers {
		r.byName[p.Name] = p
	}
	for _, route := range cfg.Router.Routes {
		// First definition of an alias wins.
		if _, ok := r.routes[route.Model]; !ok {
			r.routes[route.Model] = route.Targets
		}
	}
	return r
}

// Resolve returns the ordered routes for model. A configured alias expands
// to its targets, skipping unknown providers; any other name goes to the
// first provider unchanged.
func (r *Router) Resolve(model string) ([]Route, error) {
	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}

	targets, ok := r.routes[model]
	if !ok {
		return []Route{{Provider: r.providers[0], Model: model}}, nil
	}

	routes := make([]Route, 0, len(targets))
	for _, target := range targets {
		provider, ok := r.byName[target.Provider]
		if !ok {
			continue
		}
		m := target.Model
		if m == "" {
			m = model
		}
		routes = append(routes, Route{Provider: provider, Model: m})
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("route %q: all providers unknown", model)
	}
	return routes, nil
}

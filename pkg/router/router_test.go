package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/semcache/pkg/config"
)

func twoProviders() []config.ProviderConfig {
	return []config.ProviderConfig{
		{Name: "gemini", URL: "https://generativelanguage.googleapis.com/v1beta/openai", APIKey: "k-1"},
		{Name: "openai", URL: "https://api.openai.com/v1", APIKey: "sk-2"},
	}
}

func TestResolveUnroutedModel(t *testing.T) {
	r := New(&config.Config{Providers: twoProviders()})

	routes, err := r.Resolve("gemini-2.5-flash")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "gemini", routes[0].Provider.Name)
	assert.Equal(t, "gemini-2.5-flash", routes[0].Model)
}

func TestResolveAlias(t *testing.T) {
	r := New(&config.Config{
		Providers: twoProviders(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model: "tools",
			Targets: []config.RouteTarget{
				{Provider: "gemini", Model: "gemini-2.5-flash"},
				{Provider: "openai", Model: "gpt-4o-mini"},
			},
		}}},
	})

	routes, err := r.Resolve("tools")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, Route{Provider: twoProviders()[0], Model: "gemini-2.5-flash"}, routes[0])
	assert.Equal(t, Route{Provider: twoProviders()[1], Model: "gpt-4o-mini"}, routes[1])
}

func TestResolveTargetWithoutModel(t *testing.T) {
	r := New(&config.Config{
		Providers: twoProviders(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model:   "gpt-4o",
			Targets: []config.RouteTarget{{Provider: "openai"}},
		}}},
	})

	routes, err := r.Resolve("gpt-4o")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "openai", routes[0].Provider.Name)
	assert.Equal(t, "gpt-4o", routes[0].Model)
}

func TestResolveSkipsUnknownProviders(t *testing.T) {
	r := New(&config.Config{
		Providers: twoProviders(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model: "chat",
			Targets: []config.RouteTarget{
				{Provider: "missing", Model: "x"},
				{Provider: "openai", Model: "gpt-4o"},
			},
		}}},
	})

	routes, err := r.Resolve("chat")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "openai", routes[0].Provider.Name)
}

func TestResolveAllUnknown(t *testing.T) {
	r := New(&config.Config{
		Providers: twoProviders(),
		Router: config.RouterConfig{Routes: []config.RouteConfig{{
			Model:   "chat",
			Targets: []config.RouteTarget{{Provider: "missing"}},
		}}},
	})

	_, err := r.Resolve("chat")
	assert.Error(t, err)
}

func TestResolveNoProviders(t *testing.T) {
	_, err := New(&config.Config{}).Resolve("anything")
	assert.ErrorIs(t, err, ErrNoProviders)
}

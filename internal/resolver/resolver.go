// Package resolver decides whether a provider's requests are sent from the
// client or relayed through the server.
package resolver

import (
	"aiinfra/internal/models"
	"aiinfra/internal/providers"
)

// Rules are the static inputs of the fetch-on-client decision.
type Rules struct {
	// DisableBrowserRequest lists providers that must always go through the server.
	DisableBrowserRequest map[string]struct{}
	// Whitelist lists providers whose explicit user preference wins before
	// the endpoint and secret checks.
	Whitelist map[string]struct{}
}

// DefaultRules builds the rules from the builtin catalog. Only ollama is
// whitelisted.
func DefaultRules() Rules {
	disabled := make(map[string]struct{})
	for _, card := range providers.Cards() {
		if card.DisableBrowserRequest {
			disabled[card.ID] = struct{}{}
		}
	}

	return Rules{
		DisableBrowserRequest: disabled,
		Whitelist:             map[string]struct{}{"ollama": {}},
	}
}

// IsEndpointNotEmpty reports whether a base URL or endpoint is configured.
func IsEndpointNotEmpty(detail *models.ProviderDetail) bool {
	if detail == nil {
		return false
	}
	return detail.KeyVaults.BaseURL() != "" || detail.KeyVaults.Endpoint() != ""
}

// IsAPIKeyNotEmpty reports whether any secret is configured.
func IsAPIKeyNotEmpty(detail *models.ProviderDetail) bool {
	if detail == nil {
		return false
	}
	kv := detail.KeyVaults
	return kv.APIKey() != "" || kv.AccessKeyID() != "" || kv.SecretAccessKey() != ""
}

// IsProviderFetchOnClient evaluates the dispatch rules in priority order;
// the first match wins:
//
//  1. provider in the disable list: server
//  2. whitelisted provider with an explicit preference: the preference
//  3. neither endpoint nor secret: server
//  4. endpoint without secret: client
//  5. explicit preference: the preference
//  6. server
//
// detail is the loaded configuration of the provider and may be nil.
func IsProviderFetchOnClient(providerID string, detail *models.ProviderDetail, rules Rules) bool {
	if _, ok := rules.DisableBrowserRequest[providerID]; ok {
		return false
	}

	var preference *bool
	if detail != nil {
		preference = detail.FetchOnClient
	}

	if _, ok := rules.Whitelist[providerID]; ok && preference != nil {
		return *preference
	}

	hasEndpoint := IsEndpointNotEmpty(detail)
	hasSecret := IsAPIKeyNotEmpty(detail)

	if !hasEndpoint && !hasSecret {
		return false
	}

	if hasEndpoint && !hasSecret {
		return true
	}

	if preference != nil {
		return *preference
	}

	return false
}

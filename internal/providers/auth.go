package providers

import (
	"context"
	"fmt"
	"net/http"
)

// Authenticator handles authentication for a provider request.
type Authenticator interface {
	// Authenticate prepares authentication for a request
	Authenticate(ctx context.Context) (AuthContext, error)
}

// AuthContext holds authentication information for a request
type AuthContext interface {
	// ApplyToRequest applies authentication to an HTTP request
	ApplyToRequest(ctx context.Context, req *http.Request) error
}

// SimpleAPIKeyAuth implements API key authentication (OpenAI-style)
type SimpleAPIKeyAuth struct {
	apiKey     string
	headerName string // e.g., "Authorization"
	prefix     string // e.g., "Bearer "
}

// NewSimpleAPIKeyAuth creates a new simple API key authenticator.
// An empty headerName selects "Authorization" with a "Bearer " prefix.
func NewSimpleAPIKeyAuth(apiKey, headerName, prefix string) *SimpleAPIKeyAuth {
	if headerName == "" {
		headerName = "Authorization"
		if prefix == "" {
			prefix = "Bearer "
		}
	}

	return &SimpleAPIKeyAuth{
		apiKey:     apiKey,
		headerName: headerName,
		prefix:     prefix,
	}
}

// Authenticate returns an auth context with the API key
func (a *SimpleAPIKeyAuth) Authenticate(ctx context.Context) (AuthContext, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	return &simpleAPIKeyAuthContext{
		apiKey:     a.apiKey,
		headerName: a.headerName,
		prefix:     a.prefix,
	}, nil
}

type simpleAPIKeyAuthContext struct {
	apiKey     string
	headerName string
	prefix     string
}

func (c *simpleAPIKeyAuthContext) ApplyToRequest(ctx context.Context, req *http.Request) error {
	req.Header.Set(c.headerName, c.prefix+c.apiKey)
	return nil
}

type noAuth struct{}

func (noAuth) Authenticate(context.Context) (AuthContext, error) { return noAuth{}, nil }

func (noAuth) ApplyToRequest(context.Context, *http.Request) error { return nil }

package httpclient

import "net/http"

// DefaultAPIKeyHeader is the header sidecars read their shared key from.
const DefaultAPIKeyHeader = "X-API-Key"

// AuthType identifies how a request is authenticated.
type AuthType int

const (
	// AuthNone sends no credentials.
	AuthNone AuthType = iota
	// AuthBearer sends "Authorization: Bearer <token>" (OpenAI-style APIs).
	AuthBearer
	// AuthAPIKey sends a shared key in a header (self-hosted sidecars).
	AuthAPIKey
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type   AuthType
	Token  string
	Header string
}

// BearerAuth authenticates with a bearer token. An empty token yields nil.
func BearerAuth(token string) *AuthConfig {
	if token == "" {
		return nil
	}
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// APIKeyAuth sends key in header, or in X-API-Key when header is empty. An
// empty key yields nil.
func APIKeyAuth(key, header string) *AuthConfig {
	if key == "" {
		return nil
	}
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &AuthConfig{Type: AuthAPIKey, Token: key, Header: header}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthAPIKey:
		req.Header.Set(a.Header, a.Token)
	}
}

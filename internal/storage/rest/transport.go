package rest

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/oauth2"
)

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching.
func NewTransport(resolver *dnscache.Resolver) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: 32,
		MaxConnsPerHost:     64,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// APIKeyTransport is an http.RoundTripper that injects the project API key
// header on every outbound request.
type APIKeyTransport struct {
	Key  string
	Base http.RoundTripper
}

// RoundTrip clones the request and sets the apikey header.
func (t *APIKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.Header.Set("apikey", t.Key)
	return t.base().RoundTrip(r2)
}

func (t *APIKeyTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// authTransport layers the API key and, when src is non-nil, an OAuth2
// bearer token over base. Without a token source the API key doubles as the
// bearer, which is how anonymous-role requests authenticate.
func authTransport(base http.RoundTripper, apiKey string, src oauth2.TokenSource) http.RoundTripper {
	if src == nil && apiKey != "" {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	}
	var rt http.RoundTripper = &APIKeyTransport{Key: apiKey, Base: base}
	if src != nil {
		rt = &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, src), Base: rt}
	}
	return rt
}

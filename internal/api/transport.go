package api

import (
	"context"
	"net/http"
)

// Authorizer supplies the credential for outgoing requests and is told when
// the backend rejects it. *session.Manager implements it.
type Authorizer interface {
	AuthHeader() (string, bool)
	Invalidate()
}

type anonymousKey struct{}

// withoutAuth marks a request that must not carry the session credential
func withoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// authTransport attaches the Authorization header before a request is sent and
// clears the session when the backend answers 401.
type authTransport struct {
	base http.RoundTripper
	auth Authorizer
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	anonymous := isAnonymous(req.Context())

	if t.auth != nil && !anonymous {
		if header, ok := t.auth.AuthHeader(); ok {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", header)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// The credential request itself carries no credential; a 401 there means
	// bad username/password and the caller handles it.
	if resp.StatusCode == http.StatusUnauthorized && t.auth != nil && !anonymous {
		t.auth.Invalidate()
	}
	return resp, nil
}

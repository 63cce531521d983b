package transport

import (
	"net/http"
)

type HeaderRt struct {
	headers http.Header
	next    http.RoundTripper
}

// NewHeaderMw returns a middleware that sets a fixed set of headers on
// every outgoing request
func NewHeaderMw(headers http.Header) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewHeader(headers, next)
	}
}

func NewHeader(headers http.Header, next http.RoundTripper) *HeaderRt {
	return &HeaderRt{headers: headers.Clone(), next: next}
}

func (rt *HeaderRt) RoundTrip(r *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	r2 := r.Clone(r.Context())
	for name, values := range rt.headers {
		r2.Header.Del(name)
		for _, v := range values {
			r2.Header.Add(name, v)
		}
	}

	return rt.next.RoundTrip(r2)
}

package testutil

import (
	"net/http"

	"whaled/pkg/requestcontext"
)

// WithMinter marks the request as authenticated for minting.
// This simulates what the auth middleware does after validating a bearer token.
func WithMinter(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithMinter(req.Context(), subject))
}

// WithRequestID stamps a fixed request id on the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

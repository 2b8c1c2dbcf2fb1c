package testutil

import (
	"net/http"

	"numintel/pkg/requestcontext"
)

// WithClientIP sets the client IP the way the metadata middleware would, so
// rate limited handlers can be exercised without the full chain.
func WithClientIP(req *http.Request, ip string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent())
	return req.WithContext(ctx)
}

// WithRequestID sets the request ID the way the request middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/shp2pg/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx so the import
// history can attribute each attempt.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}

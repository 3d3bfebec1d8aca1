package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/errs"
)

// HeaderRequestID carries a per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// Invoker sends a request and returns a 2xx response or an error.
type Invoker func(ctx context.Context, req *http.Request) (*http.Response, error)

// Interceptor wraps an Invoker. It must return next's error unchanged.
type Interceptor func(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error)

// Chain composes interceptors around final; the first interceptor is outermost.
func Chain(final Invoker, ics ...Interceptor) Invoker {
	for i := len(ics) - 1; i >= 0; i-- {
		ic, next := ics[i], final
		final = func(ctx context.Context, req *http.Request) (*http.Response, error) {
			return ic(ctx, req, next)
		}
	}
	return final
}

// RequestID stamps a fresh UUID on requests that do not carry one yet.
func RequestID() Interceptor {
	return func(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error) {
		if req.Header.Get(HeaderRequestID) == "" {
			if id, err := uuid.NewV4(); err == nil {
				req.Header.Set(HeaderRequestID, id.String())
			}
		}
		return next(ctx, req)
	}
}

// Logging returns an interceptor for structured request logging.
func Logging(log *zap.Logger) Interceptor {
	return func(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		status := 0
		var he *errs.HTTPError
		switch {
		case resp != nil:
			status = resp.StatusCode
		case errors.As(err, &he):
			status = he.Status
		}

		// metadata only, never bodies: they may carry item passwords
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", status),
			zap.Duration("dur", time.Since(start)),
			zap.String("request_id", req.Header.Get(HeaderRequestID)),
		}
		if status == 0 && err != nil {
			log.Warn("http", append(fields, zap.Error(err))...)
		} else {
			log.Info("http", fields...)
		}
		return resp, err
	}
}

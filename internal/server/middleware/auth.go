package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/ident"
)

// Header names for signed requests.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// maxSignedBody bounds how much request body the middleware will buffer for
// digest computation.
const maxSignedBody = 1 << 20

type callerKey struct{}

// Caller returns the authenticated address stored by the Signature
// middleware, if the request was signed.
func Caller(ctx context.Context) (domain.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(domain.Address)
	return addr, ok
}

// WithCaller returns a context carrying an authenticated address, as the
// Signature middleware would set it.
func WithCaller(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, addr)
}

// Signature returns middleware that authenticates requests carrying an
// X-Signature / X-Timestamp header pair. The signature covers the method,
// path, body digest, and timestamp; the recovered signer address is stored
// in the request context for handlers to authorize against. Unsigned
// requests pass through without a caller, letting read-only endpoints stay
// public while mutating handlers demand an identity.
func Signature(clock domain.Clock, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := r.Header.Get(HeaderSignature)
			if sig == "" {
				next.ServeHTTP(w, r)
				return
			}

			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			if err != nil {
				writeUnauthorized(w, "missing or malformed timestamp")
				return
			}
			if err := ident.CheckTimestamp(ts, clock.Now()); err != nil {
				writeUnauthorized(w, "request timestamp outside allowed window")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
			if err != nil {
				writeUnauthorized(w, "failed to read request body")
				return
			}
			if len(body) > maxSignedBody {
				writeUnauthorized(w, "request body too large to sign")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			payload := ident.SigningPayload(r.Method, r.URL.Path, body, ts)
			addr, err := ident.Recover(payload, sig)
			if err != nil {
				logger.WarnContext(r.Context(), "signature verification failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w, "invalid signature")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), addr)))
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

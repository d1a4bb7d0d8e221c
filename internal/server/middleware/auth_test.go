package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/ident"
)

// Well-known throwaway key used only in tests.
const (
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = domain.Address("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return t })
}

func signedRequest(t *testing.T, method, path string, body []byte, ts int64) *http.Request {
	t.Helper()
	payload := ident.SigningPayload(method, path, body, ts)
	sig, err := ident.Sign(payload, testKeyHex)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	return req
}

func TestSignatureRecoversCaller(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	body := []byte(`{"market_id":"m1","outcome":"a","amount":100}`)

	var got domain.Address
	var signed bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, signed = Caller(r.Context())
		echoed, _ := io.ReadAll(r.Body)
		if !bytes.Equal(echoed, body) {
			t.Errorf("handler saw body %q, want %q", echoed, body)
		}
	})

	h := Signature(fixedClock(now), discardLogger())(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, http.MethodPost, "/api/bets", body, now.Unix()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !signed {
		t.Fatal("caller not set")
	}
	if got != testAddress {
		t.Fatalf("caller = %s, want %s", got, testAddress)
	}
}

func TestSignatureRejectsTamperedBody(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	req := signedRequest(t, http.MethodPost, "/api/bets", []byte(`{"amount":100}`), now.Unix())
	req.Body = io.NopCloser(bytes.NewReader([]byte(`{"amount":999999}`)))

	var got domain.Address
	h := Signature(fixedClock(now), discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Caller(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// The recovered address will not match any record the attacker controls;
	// at minimum it must not be the original signer.
	if rec.Code == http.StatusOK && got == testAddress {
		t.Fatal("tampered body still attributed to the original signer")
	}
}

func TestSignatureRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	stale := now.Add(-ident.MaxClockSkew - time.Second).Unix()

	h := Signature(fixedClock(now), discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with stale timestamp")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, http.MethodGet, "/api/balance", nil, stale))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUnsignedRequestPassesWithoutCaller(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	var signed bool
	h := Signature(fixedClock(now), discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signed = Caller(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if signed {
		t.Fatal("unsigned request carried a caller")
	}
}

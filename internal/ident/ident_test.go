package ident

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/poolbet/poolbet/internal/domain"
)

func TestSignRecover_Roundtrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyHex := crypto.FromECDSA(key)
	want := domain.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())

	payload := SigningPayload("POST", "/api/markets/mkt-1/bets", []byte(`{"outcome":"a","amount":1000}`), 1750000000)

	sig, err := Sign(payload, "0x"+hex.EncodeToString(keyHex))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := Recover(payload, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got != want {
		t.Fatalf("recovered %s, want %s", got, want)
	}
}

func TestRecover_TamperedPayload(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	want := domain.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())

	payload := SigningPayload("POST", "/api/markets/mkt-1/claim", nil, 1750000000)
	sig, err := Sign(payload, hex.EncodeToString(crypto.FromECDSA(key)))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// A different path must not recover to the same signer.
	tampered := SigningPayload("POST", "/api/markets/mkt-2/claim", nil, 1750000000)
	got, err := Recover(tampered, sig)
	if err == nil && got == want {
		t.Fatalf("tampered payload recovered the original signer")
	}
}

func TestRecover_BadSignature(t *testing.T) {
	if _, err := Recover("payload", "zz"); err == nil {
		t.Fatalf("expected error for non-hex signature")
	}
	if _, err := Recover("payload", "0102"); err == nil {
		t.Fatalf("expected error for short signature")
	}
}

func TestSigningPayload_CoversBody(t *testing.T) {
	a := SigningPayload("POST", "/api/x", []byte("one"), 1)
	b := SigningPayload("POST", "/api/x", []byte("two"), 1)
	if a == b {
		t.Fatalf("payloads with different bodies must differ")
	}
}

func TestCheckTimestamp(t *testing.T) {
	now := time.Unix(1750000000, 0)

	if err := CheckTimestamp(now.Unix()-60, now); err != nil {
		t.Fatalf("recent timestamp rejected: %v", err)
	}
	err := CheckTimestamp(now.Unix()-3600, now)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for stale timestamp, got %v", err)
	}
	err = CheckTimestamp(now.Unix()+3600, now)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for future timestamp, got %v", err)
	}
}

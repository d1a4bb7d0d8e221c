// Package ident authenticates callers. A caller proves control of a
// secp256k1 key by signing a canonical request payload; the server recovers
// the signer address from the signature and uses address equality as the
// authorization check everywhere else in the system.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/poolbet/poolbet/internal/domain"
)

// MaxClockSkew bounds how far a request timestamp may drift from server time
// before the signature is rejected as stale or replayed.
const MaxClockSkew = 5 * time.Minute

// SigningPayload builds the canonical string a caller signs: the request
// method, path, a SHA-256 digest of the body, and a unix-second timestamp,
// joined with pipes under a fixed prefix. Everything that affects the
// request's meaning is covered, so a captured signature cannot be replayed
// against a different endpoint or body.
func SigningPayload(method, path string, body []byte, ts int64) string {
	sum := sha256.Sum256(body)
	return strings.Join([]string{
		"poolbet",
		strings.ToUpper(method),
		path,
		hex.EncodeToString(sum[:]),
		strconv.FormatInt(ts, 10),
	}, "|")
}

// Sign produces a hex signature over the canonical payload with the given
// private key. Exposed for tests and client tooling.
func Sign(payload string, keyHex string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("ident: parse key: %w", err)
	}

	digest := accounts.TextHash([]byte(payload))
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("ident: sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Recover returns the address that produced sigHex over the canonical
// payload. The signature uses the EIP-191 personal-sign digest, so wallets
// and command-line signers produce compatible output.
func Recover(payload string, sigHex string) (domain.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("ident: decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("ident: signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28; crypto.SigToPub wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest := accounts.TextHash([]byte(payload))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("ident: recover: %w", err)
	}

	addr := crypto.PubkeyToAddress(*pub)
	return domain.NormalizeAddress(addr.Hex()), nil
}

// CheckTimestamp rejects request timestamps outside the allowed skew window.
func CheckTimestamp(ts int64, now time.Time) error {
	reqTime := time.Unix(ts, 0)
	drift := now.Sub(reqTime)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxClockSkew {
		return fmt.Errorf("ident: request timestamp outside allowed window: %w", domain.ErrUnauthorized)
	}
	return nil
}

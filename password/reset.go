package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const resetNonceLength = 16

// DefaultResetTTL bounds reset-token validity when the caller does not
// override Config.
const DefaultResetTTL = time.Hour

// ResetConfig defines a public type used by authkit APIs.
//
// ResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResetConfig struct {
	Secret []byte
	TTL    time.Duration
}

// ResetIssuer mints and verifies opaque, HMAC-SHA256-signed reset tokens.
// Tokens embed their issue timestamp and are bound to the subject they were
// issued for; a token minted for one subject never verifies for another.
// The issuer keeps no per-token state — single-use enforcement belongs to
// the caller.
type ResetIssuer struct {
	config ResetConfig
	now    func() time.Time
}

// NewResetIssuer describes the newresetissuer operation and its observable behavior.
//
// NewResetIssuer may return an error when input validation, dependency calls, or security checks fail.
// NewResetIssuer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewResetIssuer(cfg ResetConfig) (*ResetIssuer, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("reset secret must be at least 16 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultResetTTL
	}

	return &ResetIssuer{config: cfg, now: time.Now}, nil
}

// Generate mints a new reset token for subject. The token is opaque to
// callers: base64url(nonce || issuedAtUnix) + "." + base64url(signature),
// where the signature covers the payload and the subject.
func (r *ResetIssuer) Generate(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("reset subject is required")
	}

	payload := make([]byte, resetNonceLength+8)
	if _, err := io.ReadFull(rand.Reader, payload[:resetNonceLength]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(payload[resetNonceLength:], uint64(r.now().Unix()))

	sig := r.sign(subject, payload)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(sig), nil
}

// Verify reports whether token carries a valid signature for subject and was
// issued within the configured TTL. Malformed tokens verify as false, never
// error.
func (r *ResetIssuer) Verify(subject, token string) bool {
	if subject == "" {
		return false
	}
	enc := base64.RawURLEncoding

	dot := -1
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			dot = i
			break
		}
	}
	if dot <= 0 || dot == len(token)-1 {
		return false
	}

	payload, err := enc.DecodeString(token[:dot])
	if err != nil || len(payload) != resetNonceLength+8 {
		return false
	}
	sig, err := enc.DecodeString(token[dot+1:])
	if err != nil {
		return false
	}

	if !hmac.Equal(sig, r.sign(subject, payload)) {
		return false
	}

	issuedAt := time.Unix(int64(binary.BigEndian.Uint64(payload[resetNonceLength:])), 0)
	now := r.now()
	if issuedAt.After(now) {
		return false
	}
	return now.Sub(issuedAt) <= r.config.TTL
}

func (r *ResetIssuer) sign(subject string, payload []byte) []byte {
	// Payload is fixed-length, so appending the subject is unambiguous.
	mac := hmac.New(sha256.New, r.config.Secret)
	mac.Write(payload)
	mac.Write([]byte(subject))
	return mac.Sum(nil)
}

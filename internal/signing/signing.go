// Package signing attaches tamper-evidence to audit results. The server
// signs a canonical subset of every result; consumers holding the key (or
// the Ed25519 public key) can check that a stored or forwarded report was
// not altered after the audit ran.
package signing

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/audit"
)

var (
	ErrBadSignature     = errors.New("signature verification failed")
	ErrInvalidSignature = errors.New("signature is not valid base64")
)

// subset is the canonical signed portion of a result. Struct field order
// fixes the JSON marshaling order, so the payload is byte-stable across
// processes. Scores were already rounded by the orchestrator.
type subset struct {
	AuditID         string  `json:"audit_id"`
	GeneratedAt     string  `json:"generated_at"`
	OverallStatus   string  `json:"overall_status"`
	RiskTier        string  `json:"risk_level"`
	ComplianceScore float64 `json:"compliance_score"`
}

// Payload returns the canonical byte payload signed for a result.
func Payload(res *audit.Result) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("result is required")
	}
	return json.Marshal(subset{
		AuditID:         res.AuditID,
		GeneratedAt:     res.GeneratedAt.UTC().Format(time.RFC3339Nano),
		OverallStatus:   string(res.Summary.OverallStatus),
		RiskTier:        string(res.Summary.RiskTier),
		ComplianceScore: api.Round4(res.ComplianceScore),
	})
}

// Signer produces a base64 signature over a result's canonical payload.
type Signer interface {
	Sign(res *audit.Result) (string, error)
	Algorithm() string
}

// Verifier checks a base64 signature against a result.
type Verifier interface {
	Verify(res *audit.Result, sig string) error
}

// HMACSigner signs and verifies with HMAC-SHA256 over the canonical payload.
type HMACSigner struct {
	key []byte
}

func NewHMACSigner(key string) *HMACSigner {
	return &HMACSigner{key: []byte(key)}
}

func (h *HMACSigner) Algorithm() string { return "hmac" }

func (h *HMACSigner) Sign(res *audit.Result) (string, error) {
	payload, err := Payload(res)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (h *HMACSigner) Verify(res *audit.Result, sig string) error {
	want, err := h.Sign(res)
	if err != nil {
		return err
	}
	got, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	expected, _ := base64.StdEncoding.DecodeString(want)
	if !hmac.Equal(expected, got) {
		return ErrBadSignature
	}
	return nil
}

// Ed25519Signer signs with an Ed25519 private key derived from a base64
// 32-byte seed.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(seedB64 string) (*Ed25519Signer, error) {
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (e *Ed25519Signer) Algorithm() string { return "ed25519" }

func (e *Ed25519Signer) Sign(res *audit.Result) (string, error) {
	payload, err := Payload(res)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(e.priv, payload)), nil
}

// PublicKey returns the base64 public key for distribution to verifiers.
func (e *Ed25519Signer) PublicKey() string {
	pub := e.priv.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub)
}

// Ed25519Verifier checks Ed25519 signatures with a base64 public key.
type Ed25519Verifier struct {
	pub ed25519.PublicKey
}

func NewEd25519Verifier(pubB64 string) (*Ed25519Verifier, error) {
	pub, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return &Ed25519Verifier{pub: pub}, nil
}

func (e *Ed25519Verifier) Verify(res *audit.Result, sig string) error {
	payload, err := Payload(res)
	if err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(e.pub, payload, raw) {
		return ErrBadSignature
	}
	return nil
}

// FromConfig builds the configured signer. The "none" algorithm yields a
// nil signer; callers treat that as signing disabled.
func FromConfig(algorithm, key string) (Signer, error) {
	switch algorithm {
	case "", "none":
		return nil, nil
	case "hmac":
		if key == "" {
			return nil, fmt.Errorf("hmac signing needs a key")
		}
		return NewHMACSigner(key), nil
	case "ed25519":
		s, err := NewEd25519Signer(key)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
}

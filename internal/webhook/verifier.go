// package webhook authenticates completion callbacks from the external
// analysis worker before any state changes.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gitlab.com/resultrelay.net/internal/config"
	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
)

const (
	SignatureHeader = "X-Webhook-Signature"
	TimestampHeader = "X-Webhook-Timestamp"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrMissingTimestamp = errors.New("missing webhook timestamp")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside freshness window")
	ErrBadSignature     = errors.New("webhook signature mismatch")
	ErrReplayed         = errors.New("webhook signature already used")
)

// CompletionEvent is the callback body reported by the worker. Either the
// path or the key field may carry the primary result location.
type CompletionEvent struct {
	JobID         string   `json:"job_id"`
	S3ResultPath  string   `json:"s3_result_path"`
	S3ResultKey   string   `json:"s3_result_key"`
	S3ResultPaths []string `json:"s3_result_paths"`
}

// PrimaryKey returns the single result location, preferring s3_result_path
func (e CompletionEvent) PrimaryKey() string {
	if e.S3ResultPath != "" {
		return e.S3ResultPath
	}
	return e.S3ResultKey
}

// VerifiedCallback is the explicit proof of verification the completion
// ingestor requires. It can only be produced by a Verifier (or a test).
type VerifiedCallback struct {
	Event      CompletionEvent
	Signature  string
	ReceivedAt time.Time
}

// Verifier checks the caller's HMAC signature and timestamp freshness, and
// rejects replayed deliveries through the guard.
type Verifier struct {
	secret  []byte
	maxSkew time.Duration
	guard   secondary.ReplayGuard
	logger  primary.Logger
}

// NewVerifier creates a new webhook verifier
func NewVerifier(cfg *config.WebhookConfig, guard secondary.ReplayGuard, logger primary.Logger) *Verifier {
	return &Verifier{
		secret:  []byte(cfg.Secret),
		maxSkew: cfg.MaxSkew,
		guard:   guard,
		logger:  logger,
	}
}

// Verify authenticates the request and decodes the callback body. Any
// error means the caller must be answered with unauthorized and nothing
// else may run.
func (v *Verifier) Verify(r *http.Request, body []byte) (*VerifiedCallback, error) {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return nil, ErrMissingSignature
	}
	timestamp := r.Header.Get(TimestampHeader)
	if timestamp == "" {
		return nil, ErrMissingTimestamp
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingTimestamp, timestamp)
	}

	now := time.Now()
	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return nil, ErrStaleTimestamp
	}

	expected := Sign(v.secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrBadSignature
	}

	first, err := v.guard.FirstUse(r.Context(), signature, v.maxSkew*2)
	if err != nil {
		// the guard failing open is preferable to black-holing completions
		v.logger.Warn("Replay guard unavailable, accepting delivery", "error", err)
	} else if !first {
		return nil, ErrReplayed
	}

	var event CompletionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode callback body: %w", err)
	}

	return &VerifiedCallback{
		Event:      event,
		Signature:  signature,
		ReceivedAt: now,
	}, nil
}

// Sign computes the hex HMAC-SHA256 over "timestamp.body", the scheme the
// worker uses when calling back.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

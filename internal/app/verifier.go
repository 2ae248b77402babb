// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"time"

	"github.com/planet-nine-app/continuebee/internal/domain"
	"github.com/planet-nine-app/continuebee/pkg/crypto"
)

// DefaultHashWindowSeconds is the fallback replay window when the
// configured value is missing or non-positive.
const DefaultHashWindowSeconds = 60

// VerificationResult is the outcome of checking a signed request. An empty
// reason list means the request verified. All applicable reasons are
// collected, not just the first.
type VerificationResult struct {
	Reasons []string
}

// OK reports whether verification succeeded.
func (r VerificationResult) OK() bool {
	return len(r.Reasons) == 0
}

// Err returns the result as a *domain.ValidationError, or nil on success.
func (r VerificationResult) Err() error {
	if r.OK() {
		return nil
	}
	return domain.NewValidationError(r.Reasons...)
}

// MessageVerifier decides whether a signed request is authentic and
// current. It never mutates state: calling it twice with the same inputs
// yields the same result, modulo the wall clock read for freshness.
type MessageVerifier struct {
	windowSeconds int64
	now           func() time.Time
}

// NewMessageVerifier creates a MessageVerifier with the given replay
// window in seconds.
func NewMessageVerifier(windowSeconds int) *MessageVerifier {
	if windowSeconds <= 0 {
		windowSeconds = DefaultHashWindowSeconds
	}
	return &MessageVerifier{
		windowSeconds: int64(windowSeconds),
		now:           time.Now,
	}
}

// isFresh accepts any timestamp no older than the window. Timestamps from
// the future are accepted: clock skew between client and server is
// tolerated, only staleness is rejected.
func (v *MessageVerifier) isFresh(timestamp, now int64) bool {
	return now-timestamp <= v.windowSeconds
}

// Verify checks timestamp freshness and the signature over the canonical
// payload against the given public key.
func (v *MessageVerifier) Verify(pubKey domain.PublicKey, signature string, payload []byte, timestamp int64) VerificationResult {
	var reasons []string

	now := v.now().UTC().Unix()
	if !v.isFresh(timestamp, now) {
		reasons = append(reasons, fmt.Sprintf(
			"timestamp only valid within %d seconds (now=%d, provided=%d)",
			v.windowSeconds, now, timestamp))
	}

	if signature == "" {
		reasons = append(reasons, domain.ErrMissingSignature.Error())
	} else if !crypto.Verify(pubKey.String(), payload, signature) {
		reasons = append(reasons, "signature does not verify against public key")
	}

	return VerificationResult{Reasons: reasons}
}

// VerifyForUser runs Verify against the user's stored public key and
// additionally checks that the asserted hash matches the stored one. Used
// by every operation except creation, where no stored record exists yet.
func (v *MessageVerifier) VerifyForUser(user *domain.User, signature string, payload []byte, timestamp int64, assertedHash string) VerificationResult {
	result := v.Verify(user.PubKey, signature, payload, timestamp)

	if assertedHash != user.Hash {
		result.Reasons = append(result.Reasons, "asserted hash does not match stored hash")
	}

	return result
}

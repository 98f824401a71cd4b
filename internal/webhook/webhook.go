// Package webhook signs and verifies the completion callback URLs handed to
// the remote engine. The engine echoes the URL back verbatim, so the
// signature is the only authentication on that channel.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
)

// messagePrefix namespaces the signed message so a signature cannot be
// replayed against another HMAC use of the same secret.
const messagePrefix = "mosaic-webhook:"

// Sign computes the hex-encoded HMAC-SHA256 signature for a job's callback.
func Sign(secret, jobID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(messagePrefix + jobID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether a presented signature matches the expected one.
// Comparison is constant time.
func Verify(secret, jobID, signature string) bool {
	expected := Sign(secret, jobID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CallbackURL builds the signed URL embedded in an engine task submission.
func CallbackURL(publicBaseURL, secret, jobID string) string {
	return fmt.Sprintf("%s/webhook/%s?sig=%s", publicBaseURL, url.PathEscape(jobID), Sign(secret, jobID))
}

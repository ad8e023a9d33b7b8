package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const signatureScheme = "v1"

// ComputeSignature returns the hex-encoded HMAC-SHA256 digest of
// "{timestamp}.{payload}" keyed with secret. The payload must be the exact
// bytes placed on the wire; re-serializing before signing breaks
// verification because key ordering is not stable.
func ComputeSignature(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload builds the X-Webhook-Signature header value in its stable wire
// form: t=<unix-seconds>,v1=<hex digest>. Pure function, no I/O; callers that
// need determinism substitute the timestamp.
func SignPayload(secret string, timestamp int64, payload []byte) string {
	return fmt.Sprintf("t=%d,%s=%s", timestamp, signatureScheme, ComputeSignature(secret, timestamp, payload))
}

// SignatureHeader is the parsed form of a signature header value.
type SignatureHeader struct {
	Timestamp int64
	Signature string
}

// ParseSignatureHeader splits a header value on "," then "=" and extracts
// the timestamp and v1 digest. Unknown pairs are ignored so later scheme
// revisions can add entries without breaking existing receivers.
func ParseSignatureHeader(value string) (SignatureHeader, error) {
	var parsed SignatureHeader
	var sawTimestamp, sawSignature bool

	for _, pair := range strings.Split(strings.TrimSpace(value), ",") {
		key, raw, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return SignatureHeader{}, fmt.Errorf("core: malformed signature header segment %q", pair)
		}
		switch key {
		case "t":
			timestamp, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return SignatureHeader{}, fmt.Errorf("core: parse signature timestamp: %w", err)
			}
			parsed.Timestamp = timestamp
			sawTimestamp = true
		case signatureScheme:
			if strings.TrimSpace(raw) == "" {
				return SignatureHeader{}, fmt.Errorf("core: signature digest is required")
			}
			parsed.Signature = raw
			sawSignature = true
		}
	}

	if !sawTimestamp {
		return SignatureHeader{}, fmt.Errorf("core: signature header is missing t segment")
	}
	if !sawSignature {
		return SignatureHeader{}, fmt.Errorf("core: signature header is missing %s segment", signatureScheme)
	}
	return parsed, nil
}

// VerifySignature is the receiver-side contract for subscriber
// implementations: recompute the HMAC over "{t}.{body}" with the shared
// secret and compare digests in constant time. A positive tolerance rejects
// headers whose timestamp is older than now minus the window; the sender
// never enforces this, only receivers do.
func VerifySignature(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("core: signing secret is required")
	}
	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		if now.IsZero() {
			now = time.Now().UTC()
		}
		issuedAt := time.Unix(parsed.Timestamp, 0)
		if now.Sub(issuedAt) > tolerance {
			return fmt.Errorf("core: signature timestamp outside tolerance window")
		}
	}

	provided, err := hex.DecodeString(parsed.Signature)
	if err != nil {
		return fmt.Errorf("core: decode hex signature: %w", err)
	}
	expected, err := hex.DecodeString(ComputeSignature(secret, parsed.Timestamp, payload))
	if err != nil {
		return fmt.Errorf("core: decode computed signature: %w", err)
	}
	if subtle.ConstantTimeCompare(provided, expected) != 1 {
		return fmt.Errorf("core: signature verification failed")
	}
	return nil
}

package codes

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Generate computes the RFC 6238 time-based one-time code for the secret at
// the given instant. The secret is base32 without regard to case, spaces or
// padding, as it appears in otpauth URIs.
func Generate(secret string, at time.Time, digits, periodSeconds int) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	if digits < 6 || digits > 8 {
		return "", fmt.Errorf("unsupported digit count %d", digits)
	}
	if periodSeconds <= 0 {
		return "", fmt.Errorf("invalid period %d", periodSeconds)
	}

	counter := uint64(at.Unix()) / uint64(periodSeconds)
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 §5.3.
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, value%mod), nil
}

// Remaining returns how long the code for the given period stays valid
// after the given instant.
func Remaining(at time.Time, periodSeconds int) time.Duration {
	if periodSeconds <= 0 {
		return 0
	}
	period := time.Duration(periodSeconds) * time.Second
	elapsed := time.Duration(at.UnixNano()) % period
	return period - elapsed
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	normalized = strings.TrimRight(normalized, "=")
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid base32 secret: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty secret")
	}
	return key, nil
}

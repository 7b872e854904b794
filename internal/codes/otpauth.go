package codes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseURI extracts a Code from an otpauth:// URI as scanned from a QR
// payload. Only the totp type is supported; hotp counters have no place in
// this app.
func ParseURI(raw string) (Code, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Code{}, fmt.Errorf("parsing otpauth uri: %w", err)
	}
	if u.Scheme != "otpauth" {
		return Code{}, fmt.Errorf("not an otpauth uri (scheme %q)", u.Scheme)
	}
	if u.Host != "totp" {
		return Code{}, fmt.Errorf("unsupported otp type %q", u.Host)
	}

	query := u.Query()
	secret := query.Get("secret")
	if secret == "" {
		return Code{}, fmt.Errorf("otpauth uri without secret")
	}
	if _, err := decodeSecret(secret); err != nil {
		return Code{}, err
	}

	// The label is "issuer:account" or just "account".
	label := strings.TrimPrefix(u.Path, "/")
	label, err = url.PathUnescape(label)
	if err != nil {
		label = strings.TrimPrefix(u.Path, "/")
	}
	issuer := query.Get("issuer")
	name := label
	if i := strings.IndexByte(label, ':'); i >= 0 {
		if issuer == "" {
			issuer = strings.TrimSpace(label[:i])
		}
		name = strings.TrimSpace(label[i+1:])
	}
	if name == "" {
		name = issuer
	}
	if name == "" {
		return Code{}, fmt.Errorf("otpauth uri without account label")
	}

	code := Code{
		Name:   name,
		Issuer: issuer,
		Secret: secret,
		Digits: 6,
		Period: 30,
	}
	if d := query.Get("digits"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 6 || n > 8 {
			return Code{}, fmt.Errorf("invalid digits parameter %q", d)
		}
		code.Digits = n
	}
	if p := query.Get("period"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return Code{}, fmt.Errorf("invalid period parameter %q", p)
		}
		code.Period = n
	}
	return code, nil
}

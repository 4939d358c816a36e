package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeRUT strips formatting from a raw RUT and returns its digit body
// together with the verifier digit, if one was supplied. "91.297.000-5"
// yields ("91297000", "5"); "91297000" yields ("91297000", "").
func NormalizeRUT(raw string) (body, dv string, err error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	cleaned = strings.ToUpper(cleaned)

	if idx := strings.LastIndexByte(cleaned, '-'); idx >= 0 {
		body, dv = cleaned[:idx], cleaned[idx+1:]
		if len(dv) != 1 || !isVerifier(dv[0]) {
			return "", "", fmt.Errorf("%w %q: verifier must be one digit or K", ErrInvalidRUT, raw)
		}
	} else {
		body = cleaned
	}

	if body == "" {
		return "", "", fmt.Errorf("%w %q: empty", ErrInvalidRUT, raw)
	}
	if len(body) > 9 {
		return "", "", fmt.Errorf("%w %q: too long", ErrInvalidRUT, raw)
	}
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return "", "", fmt.Errorf("%w %q: non-digit in body", ErrInvalidRUT, raw)
		}
	}
	body = strings.TrimLeft(body, "0")
	if body == "" {
		return "", "", fmt.Errorf("%w %q: zero body", ErrInvalidRUT, raw)
	}
	return body, dv, nil
}

func isVerifier(c byte) bool {
	return (c >= '0' && c <= '9') || c == 'K'
}

// VerifierDigit computes the module-11 verifier for a digit body.
func VerifierDigit(body string) (string, error) {
	if _, err := strconv.ParseUint(body, 10, 64); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidRUT, body, err)
	}
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch rest := 11 - sum%11; rest {
	case 11:
		return "0", nil
	case 10:
		return "K", nil
	default:
		return strconv.Itoa(rest), nil
	}
}

// ValidRUT reports whether raw is well formed and, when it carries a
// verifier digit, whether that digit matches.
func ValidRUT(raw string) bool {
	_, err := CanonicalRUT(raw)
	return err == nil
}

// CanonicalRUT normalizes raw and checks its verifier, returning the digit
// body used as the entity key.
func CanonicalRUT(raw string) (string, error) {
	body, dv, err := NormalizeRUT(raw)
	if err != nil {
		return "", err
	}
	if dv == "" {
		return body, nil
	}
	want, err := VerifierDigit(body)
	if err != nil {
		return "", err
	}
	if want != dv {
		return "", fmt.Errorf("%w %q: verifier %s does not match %s", ErrInvalidRUT, raw, dv, want)
	}
	return body, nil
}

// FormatRUT renders a digit body in the dotted display form with its
// verifier, e.g. 91.297.000-5.
func FormatRUT(body string) string {
	dv, err := VerifierDigit(body)
	if err != nil {
		return body
	}
	var b strings.Builder
	lead := len(body) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(body[:lead])
	for i := lead; i < len(body); i += 3 {
		b.WriteByte('.')
		b.WriteString(body[i : i+3])
	}
	b.WriteByte('-')
	b.WriteString(dv)
	return b.String()
}

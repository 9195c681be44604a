// Package redact strips sensitive values from log output and structured
// fields before they leave the process boundary. Plaintext credentials
// resolved by the secret store must never reach a log line (spec.md §4.A,
// §5); redaction is the last line of defense for call sites that forget.
package redact

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with a
// fingerprinted placeholder. Values shorter than 4 characters are skipped
// to avoid spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, fingerprint(v))
	}
	return s
}

// fingerprint renders a stable, non-reversible tag for v so that repeated
// occurrences of the same secret across log lines stay correlatable
// without ever reproducing the plaintext.
func fingerprint(v string) string {
	return fmt.Sprintf("%s:%08x", placeholder, xxhash.Sum64String(v))
}

// Map returns a shallow copy of m with values replaced by [REDACTED] for
// every key whose name suggests it holds a secret (password, token, key,
// secret, credential, auth). Non-string values are left unchanged.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			if str, ok := v.(string); ok && str != "" {
				out[k] = placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "token", "secret", "key", "credential", "auth", "apikey"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

package ratelimit

import "strings"

// UnknownClient is the identity used when no proxy header is present.
const UnknownClient = "unknown"

// HeaderSource is satisfied by *fasthttp.RequestHeader.
type HeaderSource interface {
	Peek(key string) []byte
}

// ClientID derives the rate-limit identity from proxy headers, in order:
// the first entry of X-Forwarded-For, X-Real-IP, CF-Connecting-IP.
//
// The headers are trusted as-is. Behind anything other than a trusted
// reverse proxy or CDN a client can pick its own identity.
func ClientID(h HeaderSource) string {
	if fwd := string(h.Peek("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	for _, name := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if v := strings.TrimSpace(string(h.Peek(name))); v != "" {
			return v
		}
	}
	return UnknownClient
}

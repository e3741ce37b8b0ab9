package llm

import (
	"errors"
	"strings"
)

// ErrRateLimited marks a completion failure caused by provider-side
// throttling. Callers detect it with errors.Is and may fall back to a
// partial answer instead of failing the whole turn.
var ErrRateLimited = errors.New("llm: rate limited")

// rateLimitMarkers are substrings that identify a throttling failure in
// provider error text. Provider SDKs do not share a common error type for
// HTTP 429, so classification is textual.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota exceeded",
}

// IsRateLimit reports whether err looks like a provider throttling failure,
// either via the [ErrRateLimited] sentinel or by its error text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

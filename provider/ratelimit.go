package provider

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimits is the vendor's view of the caller's remaining quota, taken from
// the response headers. Reset values are always relative delays.
type RateLimits struct {
	LimitRequests     int           `json:"limit_requests"`
	LimitTokens       int           `json:"limit_tokens"`
	RemainingRequests int           `json:"remaining_requests"`
	RemainingTokens   int           `json:"remaining_tokens"`
	ResetRequests     time.Duration `json:"reset_requests"`
	ResetTokens       time.Duration `json:"reset_tokens"`
}

// RateLimitHeaders names the headers a vendor uses for each value.
// Empty names are not read.
type RateLimitHeaders struct {
	LimitRequests     string
	LimitTokens       string
	RemainingRequests string
	RemainingTokens   string
	ResetRequests     string
	ResetTokens       string
}

var (
	OpenAIRateLimitHeaders = RateLimitHeaders{
		LimitRequests:     "x-ratelimit-limit-requests",
		LimitTokens:       "x-ratelimit-limit-tokens",
		RemainingRequests: "x-ratelimit-remaining-requests",
		RemainingTokens:   "x-ratelimit-remaining-tokens",
		ResetRequests:     "x-ratelimit-reset-requests",
		ResetTokens:       "x-ratelimit-reset-tokens",
	}

	AnthropicRateLimitHeaders = RateLimitHeaders{
		LimitRequests:     "anthropic-ratelimit-requests-limit",
		LimitTokens:       "anthropic-ratelimit-tokens-limit",
		RemainingRequests: "anthropic-ratelimit-requests-remaining",
		RemainingTokens:   "anthropic-ratelimit-tokens-remaining",
		ResetRequests:     "anthropic-ratelimit-requests-reset",
		ResetTokens:       "anthropic-ratelimit-tokens-reset",
	}
)

// ParseRateLimits reads the named headers. It never returns nil: missing or
// malformed values, and vendors without rate limit headers, leave fields at zero.
func ParseRateLimits(h http.Header, names RateLimitHeaders, now time.Time) *RateLimits {
	rl := &RateLimits{}
	if h == nil {
		return rl
	}
	readInt := func(name string, dst *int) {
		if v, ok := lookup(h, name); ok {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				*dst = n
			}
		}
	}
	readReset := func(name string, dst *time.Duration) {
		if v, ok := lookup(h, name); ok {
			if d, ok := ParseReset(v, now); ok {
				*dst = d
			}
		}
	}
	readInt(names.LimitRequests, &rl.LimitRequests)
	readInt(names.LimitTokens, &rl.LimitTokens)
	readInt(names.RemainingRequests, &rl.RemainingRequests)
	readInt(names.RemainingTokens, &rl.RemainingTokens)
	readReset(names.ResetRequests, &rl.ResetRequests)
	readReset(names.ResetTokens, &rl.ResetTokens)
	return rl
}

func lookup(h http.Header, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := strings.TrimSpace(h.Get(name))
	return v, v != ""
}

// ParseReset understands the reset formats vendors send: Go style durations
// ("6m0s", "1.5s", "20ms"), plain seconds ("12", "0.5") and absolute RFC 3339
// timestamps, which are turned into a delay from now. Negative delays clamp to zero.
func ParseReset(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return clamp(time.Duration(secs * float64(time.Second))), true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return clamp(d), true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return clamp(t.Sub(now)), true
	}
	return 0, false
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// Package resilience wraps provider calls with a sliding window rate limiter,
// a per-attempt timeout and retries that honour the vendor's rate limit reset
// hints. A gobreaker circuit breaker can be enabled on top.
//
// Only transient failures are retried, as reported by provider.IsTransient.
// When a failed attempt carried rate limit headers the next attempt waits for
// the request reset, else the token reset, else an exponential backoff with jitter.
package resilience

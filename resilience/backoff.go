package resilience

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/casualjim/omnichat/provider"
)

type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
}

var (
	jitterMu  sync.Mutex
	jitterRng = rand.New(rand.NewPCG(seed64(), seed64()))
)

func seed64() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:])
	}
	return uint64(time.Now().UnixNano())
}

func jitterFloat64() float64 {
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return jitterRng.Float64()
}

// next returns the delay before retry number attempt, starting at 1.
func (b backoff) next(attempt int) time.Duration {
	attempt = max(attempt, 1)
	base := b.base
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	ceiling := b.max
	if ceiling <= 0 {
		ceiling = 3 * time.Second
	}

	d := base
	for i := 1; i < attempt; i++ {
		if d >= ceiling/2 {
			d = ceiling
			break
		}
		d *= 2
	}
	d = min(d, ceiling)

	j := min(b.jitter, 1)
	if j <= 0 {
		return d
	}
	f := max(1+(jitterFloat64()*2-1)*j, 0)
	return time.Duration(float64(d) * f)
}

// hintedDelay picks the vendor's reset hint from a failed attempt: requests
// first, then tokens.
func hintedDelay(err error) (time.Duration, bool) {
	te, ok := provider.AsTransportError(err)
	if !ok || te.RateLimits == nil {
		return 0, false
	}
	if te.RateLimits.ResetRequests > 0 {
		return te.RateLimits.ResetRequests, true
	}
	if te.RateLimits.ResetTokens > 0 {
		return te.RateLimits.ResetTokens, true
	}
	return 0, false
}

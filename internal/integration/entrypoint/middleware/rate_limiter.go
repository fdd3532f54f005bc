package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/entrypoint/dto"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = time.Minute
)

// WindowCounter counts hits per key in fixed windows. Hit returns the count
// including this hit and the time left in the current window.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// KeyFunc picks the bucket a request is counted in.
type KeyFunc func(c *gin.Context) string

func ClientIPKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return c.Request.RemoteAddr
}

// UserKey buckets by authenticated user and falls back to the client IP.
// Mount it after Authenticate.
func UserKey(c *gin.Context) string {
	if userID, ok := GetUserIDFromContext(c); ok {
		return "user:" + userID.String()
	}
	return ClientIPKey(c)
}

// RateLimiter allows maxAttempts requests per key and window.
type RateLimiter struct {
	name        string
	counter     WindowCounter
	maxAttempts int
	window      time.Duration
	keyFunc     KeyFunc
}

// NewRateLimiter limits by client IP with five attempts a minute, counting
// in process memory.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(defaultMaxAttempts, defaultWindow)
}

func NewRateLimiterWithConfig(maxAttempts int, window time.Duration) *RateLimiter {
	return NewKeyedRateLimiter(maxAttempts, window, ClientIPKey)
}

func NewKeyedRateLimiter(maxAttempts int, window time.Duration, keyFunc KeyFunc) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	return &RateLimiter{
		name:        "default",
		counter:     NewMemoryCounter(),
		maxAttempts: maxAttempts,
		window:      window,
		keyFunc:     keyFunc,
	}
}

// WithCounter moves the counts to counter under a name prefix, so limiters
// sharing a store keep separate buckets.
func (rl *RateLimiter) WithCounter(name string, counter WindowCounter) *RateLimiter {
	rl.name = name
	rl.counter = counter
	return rl
}

// Middleware answers 429 with Retry-After once a key is over its limit.
// Limits are off when ENV is test or E2E_MODE is set. Counter failures let
// the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if os.Getenv("E2E_MODE") == "true" || os.Getenv("ENV") == "test" {
			c.Next()
			return
		}

		allowed, retryAfter, err := rl.allow(c.Request.Context(), rl.keyFunc(c))
		if err != nil {
			slog.Warn("Rate limit counter unavailable", "limiter", rl.name, "error", err)
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(seconds, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error: "Too many requests. Please try again later.",
				Code:  string(domainerror.ErrCodeRateLimited),
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, time.Duration, error) {
	count, remaining, err := rl.counter.Hit(ctx, rl.name+":"+key, rl.window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(rl.maxAttempts) {
		return false, remaining, nil
	}
	return true, 0, nil
}

type memoryWindow struct {
	hits    int64
	resetAt time.Time
}

// MemoryCounter is a WindowCounter for a single process.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*memoryWindow), now: time.Now}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.hits++
	return w.hits, w.resetAt.Sub(now), nil
}

// Cleanup drops windows that have ended.
func (m *MemoryCounter) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until stop is closed.
func (m *MemoryCounter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}

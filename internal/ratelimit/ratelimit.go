package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// ParseRate reads rates like "10-2m", "5-1h" or "20-10s": a request limit and
// the period it applies to.
func ParseRate(s string) (limiter.Rate, error) {
	limitPart, periodPart, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %q", s)
	}

	limit, err := strconv.ParseInt(limitPart, 10, 64)
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %q", limitPart)
	}
	if len(periodPart) < 2 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %q", periodPart)
	}

	var unit time.Duration
	switch periodPart[len(periodPart)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %q", periodPart)
	}
	n, err := strconv.Atoi(periodPart[:len(periodPart)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %q", periodPart)
	}

	return limiter.Rate{
		Formatted: s,
		Period:    time.Duration(n) * unit,
		Limit:     limit,
	}, nil
}

// NewStore returns a Redis-backed store when redisURL is set so limits are
// shared between instances, and a process-local store otherwise.
func NewStore(ctx context.Context, redisURL, prefix string, period time.Duration, log logrus.FieldLogger) (limiter.Store, func() error, error) {
	opts := limiter.StoreOptions{
		Prefix:          "rate_limiter:" + prefix,
		MaxRetry:        3,
		CleanUpInterval: period,
	}

	if redisURL == "" {
		log.Warn("REDIS_URL not set, rate limits are per process")
		return memory.NewStoreWithOptions(opts), func() error { return nil }, nil
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	store, err := redisstore.NewStoreWithOptions(client, opts)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create redis store for %s: %w", prefix, err)
	}
	return store, client.Close, nil
}

type Options struct {
	// KeyGetter identifies the caller. Defaults to the client IP.
	KeyGetter func(r *http.Request) string
	// LimitReached writes the response for rejected requests.
	LimitReached func(w http.ResponseWriter, r *http.Request)
	// OnError handles store failures. Defaults to letting the request through.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware limits requests per key. It sets the X-RateLimit-* headers on
// every response.
func Middleware(store limiter.Store, rate limiter.Rate, next http.Handler, opts Options) http.Handler {
	mwOpts := []stdlib.Option{}
	if opts.KeyGetter != nil {
		mwOpts = append(mwOpts, stdlib.WithKeyGetter(opts.KeyGetter))
	}
	if opts.LimitReached != nil {
		mwOpts = append(mwOpts, stdlib.WithLimitReachedHandler(opts.LimitReached))
	}

	if opts.OnError != nil {
		mwOpts = append(mwOpts, stdlib.WithErrorHandler(opts.OnError))
	} else {
		mwOpts = append(mwOpts, stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			next.ServeHTTP(w, r)
		}))
	}

	return stdlib.NewMiddleware(limiter.New(store, rate), mwOpts...).Handler(next)
}

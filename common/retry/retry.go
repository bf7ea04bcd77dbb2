// Package retry wraps cenkalti/backoff with the bounded exponential policy the
// scheduler uses for store writes and driver calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultAttempts        = 5
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = 5 * time.Second
)

// Policy describes how many times an operation is tried and how long to wait in between.
type Policy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:        DefaultAttempts,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

// NewBackOff builds the backoff.BackOff for this policy, bound to ctx.
func (p Policy) NewBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	// The attempt count bounds the retries, not the elapsed time.
	exp.MaxElapsedTime = 0

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a Permanent error, ctx is canceled or the policy is exhausted.
// The last error is returned.
func Do(ctx context.Context, p Policy, name string, op func() error) error {
	try := 1
	return backoff.RetryNotify(func() error {
		log.Debugf("%s: try #%d", name, try)
		try++
		return op()
	}, p.NewBackOff(ctx), func(err error, wait time.Duration) {
		log.Infof("%s failed, retrying in %s: %v", name, wait, err)
	})
}

// Permanent marks err so that Do stops retrying immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

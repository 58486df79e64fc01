package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// sessionTimer wraps a host-registered cancel func so it runs at most once.
type sessionTimer struct {
	once   sync.Once
	cancel func()
}

func (t *sessionTimer) stop() { t.once.Do(t.cancel) }

// RegisterTimer hands a keep-alive cancel func to the client. Logout runs it
// exactly once; the returned stop may be called any number of times.
func (c *SessionClient) RegisterTimer(cancel func()) (stop func()) {
	t := &sessionTimer{cancel: cancel}
	c.timersMu.Lock()
	c.timers = append(c.timers, t)
	c.timersMu.Unlock()
	return t.stop
}

func (c *SessionClient) cancelTimers() {
	c.timersMu.Lock()
	timers := c.timers
	c.timers = nil
	c.timersMu.Unlock()

	for _, t := range timers {
		t.stop()
	}
}

// StartKeepAlive refreshes the identity every interval until stopped, until
// ctx ends, or until the session is gone. Transient failures are logged.
func (c *SessionClient) StartKeepAlive(ctx context.Context, interval time.Duration) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)
	stop = c.RegisterTimer(cancel)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				_, err := c.Identity(loopCtx)
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrNoCredential), domain.IsAuthRejection(err):
					stop()
					return
				case loopCtx.Err() != nil:
					return
				default:
					c.log.Warn().Err(err).Msg("keep-alive refresh failed")
				}
			}
		}
	}()
	return stop
}
